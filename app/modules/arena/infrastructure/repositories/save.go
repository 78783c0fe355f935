package arenadb

import (
	"context"
	"fmt"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/uptrace/bun"
)

// SaveArena brings the stored rows in line with a. New entities get their ids
// written back. Classes are deleted last so side links are gone first, and
// events no longer held by the arena are archived rather than deleted.
func (r *Impl) SaveArena(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error {
	db = r.resolveDB(db)

	if err := r.saveArenaRow(ctx, db, a); err != nil {
		return err
	}
	if err := r.saveClasses(ctx, db, a); err != nil {
		return err
	}
	if err := r.saveEventTypes(ctx, db, a); err != nil {
		return err
	}
	if err := r.deleteRemovedClasses(ctx, db, a); err != nil {
		return err
	}
	if err := r.saveEvents(ctx, db, a); err != nil {
		return err
	}
	a.MarkClean()
	return nil
}

func (r *Impl) saveArenaRow(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error {
	row := arenaRow(a)
	switch {
	case a.ID == 0:
		if err := r.InsertArena(ctx, db, row); err != nil {
			return err
		}
		a.ID = arenadomain.ArenaID(row.ID)
	case a.IsDirty():
		if err := r.UpdateArena(ctx, db, row); err != nil {
			return err
		}
	default:
		return nil
	}

	managers := make([]int64, 0)
	for _, m := range a.Managers() {
		managers = append(managers, int64(m))
	}
	if err := r.ReplaceManagers(ctx, db, row.ID, managers); err != nil {
		return err
	}
	var rooms []ArenaRoom
	for _, role := range arenadomain.AllRoomRoles {
		for _, room := range a.Rooms(role) {
			rooms = append(rooms, ArenaRoom{Role: role.String(), RoomID: int64(room)})
		}
	}
	return r.ReplaceRooms(ctx, db, row.ID, rooms)
}

func (r *Impl) storedIDs(ctx context.Context, db bun.IDB, model any, column string, value any, extra ...string) (map[int64]bool, error) {
	q := db.NewSelect().Model(model).Column("id").Where("? = ?", bun.Ident(column), value)
	for _, cond := range extra {
		q = q.Where(cond)
	}
	var ids []int64
	if err := q.Scan(ctx, &ids); err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *Impl) saveClasses(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error {
	for _, c := range a.CombatantClasses() {
		row := classRow(a.ID, c)
		switch {
		case c.ID == 0:
			if err := r.InsertCombatantClass(ctx, db, row); err != nil {
				return err
			}
			c.ID = arenadomain.ClassID(row.ID)
		case c.IsDirty():
			if err := r.UpdateCombatantClass(ctx, db, row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Impl) deleteRemovedClasses(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error {
	stored, err := r.storedIDs(ctx, db, (*CombatantClass)(nil), "arena_id", int64(a.ID))
	if err != nil {
		return fmt.Errorf("failed to list combatant classes: %w", err)
	}
	for _, c := range a.CombatantClasses() {
		delete(stored, int64(c.ID))
	}
	for id := range stored {
		if err := r.DeleteCombatantClass(ctx, db, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Impl) saveEventTypes(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error {
	stored, err := r.storedIDs(ctx, db, (*EventType)(nil), "arena_id", int64(a.ID))
	if err != nil {
		return fmt.Errorf("failed to list event types: %w", err)
	}
	for _, t := range a.EventTypes() {
		delete(stored, int64(t.ID))
	}
	for id := range stored {
		if err := r.DeleteEventType(ctx, db, id); err != nil {
			return err
		}
	}

	for _, t := range a.EventTypes() {
		row := eventTypeRow(a.ID, t)
		switch {
		case t.ID == 0:
			if err := r.InsertEventType(ctx, db, row); err != nil {
				return err
			}
			t.ID = arenadomain.EventTypeID(row.ID)
		case t.IsDirty():
			if err := r.UpdateEventType(ctx, db, row); err != nil {
				return err
			}
		}
		if err := r.saveSides(ctx, db, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *Impl) saveSides(ctx context.Context, db bun.IDB, t *arenadomain.EventType) error {
	stored, err := r.storedIDs(ctx, db, (*EventTypeSide)(nil), "event_type_id", int64(t.ID))
	if err != nil {
		return fmt.Errorf("failed to list sides: %w", err)
	}
	for _, s := range t.Sides() {
		delete(stored, int64(s.ID))
	}
	for id := range stored {
		if err := r.DeleteSide(ctx, db, id); err != nil {
			return err
		}
	}

	for _, s := range t.Sides() {
		row := sideRow(t.ID, s)
		switch {
		case s.ID == 0:
			if err := r.InsertSide(ctx, db, row); err != nil {
				return err
			}
			s.ID = arenadomain.SideID(row.ID)
		case s.IsDirty():
			if err := r.UpdateSide(ctx, db, row); err != nil {
				return err
			}
		default:
			continue
		}
		classIDs := make([]int64, 0)
		for _, c := range s.EligibleClasses() {
			classIDs = append(classIDs, int64(c.ID))
		}
		if err := r.ReplaceSideClasses(ctx, db, int64(s.ID), classIDs); err != nil {
			return err
		}
	}
	return nil
}

func (r *Impl) saveEvents(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error {
	stored, err := r.storedIDs(ctx, db, (*Event)(nil), "arena_id", int64(a.ID), "archived = false")
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	store := r.EventStore(db)
	for _, e := range a.Events() {
		delete(stored, int64(e.ID))
		row := eventRow(a.ID, e)
		switch {
		case e.ID == 0:
			if err := r.InsertEvent(ctx, db, row); err != nil {
				return err
			}
			e.ID = arenadomain.EventID(row.ID)
			if err := e.PersistPendingReservations(ctx, store); err != nil {
				return fmt.Errorf("failed to persist reservations: %w", err)
			}
		case e.IsDirty():
			if err := r.UpdateEvent(ctx, db, row); err != nil {
				return err
			}
		}
		for _, id := range e.TakePrunedReservations() {
			if err := store.DeleteReservation(ctx, id); err != nil {
				return err
			}
		}
	}

	archived := make([]int64, 0, len(stored))
	for id := range stored {
		archived = append(archived, id)
	}
	return r.ArchiveEvents(ctx, db, archived)
}
