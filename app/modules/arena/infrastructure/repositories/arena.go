package arenadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("arena record not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new arena repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func checkAffected(res sql.Result, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (r *Impl) ListArenas(ctx context.Context, db bun.IDB) ([]Arena, error) {
	db = r.resolveDB(db)
	var arenas []Arena
	if err := db.NewSelect().Model(&arenas).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list arenas: %w", err)
	}
	return arenas, nil
}

// FindEventArena returns the arena owning eventID.
func (r *Impl) FindEventArena(ctx context.Context, db bun.IDB, eventID arenadomain.EventID) (arenadomain.ArenaID, error) {
	db = r.resolveDB(db)
	var arenaID int64
	err := db.NewSelect().
		Model((*Event)(nil)).
		Column("arena_id").
		Where("id = ?", int64(eventID)).
		Scan(ctx, &arenaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to find event arena: %w", err)
	}
	return arenadomain.ArenaID(arenaID), nil
}

// ListUnfinishedEvents returns events that are neither terminal nor archived
// and are scheduled before the given time.
func (r *Impl) ListUnfinishedEvents(ctx context.Context, db bun.IDB, before time.Time) ([]DueEvent, error) {
	db = r.resolveDB(db)
	var due []DueEvent
	err := db.NewSelect().
		Model((*Event)(nil)).
		Column("id", "arena_id", "state", "scheduled_at").
		Where("archived = ?", false).
		Where("state NOT IN (?)", bun.In([]string{
			arenadomain.StateCompleted.String(),
			arenadomain.StateAborted.String(),
		})).
		Where("scheduled_at < ?", before).
		Order("scheduled_at ASC").
		Scan(ctx, &due)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished events: %w", err)
	}
	return due, nil
}

func (r *Impl) InsertArena(ctx context.Context, db bun.IDB, a *Arena) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(a).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert arena: %w", err)
	}
	return nil
}

func (r *Impl) UpdateArena(ctx context.Context, db bun.IDB, a *Arena) error {
	db = r.resolveDB(db)
	a.UpdatedAt = time.Now().UTC()
	res, err := db.NewUpdate().
		Model(a).
		Column("name", "economic_zone_id", "currency", "bank_account_id", "virtual_balance", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update arena: %w", err)
	}
	return checkAffected(res, "arena")
}

// ReplaceManagers rewrites the manager set of an arena.
func (r *Impl) ReplaceManagers(ctx context.Context, db bun.IDB, arenaID int64, managers []int64) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().Model((*ArenaManager)(nil)).Where("arena_id = ?", arenaID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear arena managers: %w", err)
	}
	if len(managers) == 0 {
		return nil
	}
	rows := make([]ArenaManager, 0, len(managers))
	for _, m := range managers {
		rows = append(rows, ArenaManager{ArenaID: arenaID, CharacterID: m})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert arena managers: %w", err)
	}
	return nil
}

// ReplaceRooms rewrites every room assignment of an arena.
func (r *Impl) ReplaceRooms(ctx context.Context, db bun.IDB, arenaID int64, rooms []ArenaRoom) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().Model((*ArenaRoom)(nil)).Where("arena_id = ?", arenaID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear arena rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil
	}
	for i := range rooms {
		rooms[i].ArenaID = arenaID
	}
	if _, err := db.NewInsert().Model(&rooms).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert arena rooms: %w", err)
	}
	return nil
}

func (r *Impl) InsertCombatantClass(ctx context.Context, db bun.IDB, c *CombatantClass) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(c).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert combatant class: %w", err)
	}
	return nil
}

func (r *Impl) UpdateCombatantClass(ctx context.Context, db bun.IDB, c *CombatantClass) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model(c).ExcludeColumn("id", "arena_id").WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update combatant class: %w", err)
	}
	return checkAffected(res, "combatant class")
}

// DeleteCombatantClass removes a class. It is refused while any side still
// links to it.
func (r *Impl) DeleteCombatantClass(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	links, err := db.NewSelect().Model((*SideClass)(nil)).Where("class_id = ?", id).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to check combatant class links: %w", err)
	}
	if links > 0 {
		return arenadomain.ErrClassInUse
	}
	if _, err := db.NewDelete().Model((*CombatantClass)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete combatant class: %w", err)
	}
	return nil
}

func (r *Impl) InsertEventType(ctx context.Context, db bun.IDB, t *EventType) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(t).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert event type: %w", err)
	}
	return nil
}

func (r *Impl) UpdateEventType(ctx context.Context, db bun.IDB, t *EventType) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model(t).ExcludeColumn("id", "arena_id").WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update event type: %w", err)
	}
	return checkAffected(res, "event type")
}

// DeleteEventType cascades to the type's sides, their class links, and its
// events. It is refused while any of those events is unfinished.
func (r *Impl) DeleteEventType(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	live, err := db.NewSelect().
		Model((*Event)(nil)).
		Where("event_type_id = ?", id).
		Where("state NOT IN (?)", bun.In([]string{
			arenadomain.StateCompleted.String(),
			arenadomain.StateAborted.String(),
		})).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to check event type usage: %w", err)
	}
	if live > 0 {
		return arenadomain.ErrTypeInUse
	}

	var eventIDs []int64
	if err := db.NewSelect().Model((*Event)(nil)).Column("id").Where("event_type_id = ?", id).Scan(ctx, &eventIDs); err != nil {
		return fmt.Errorf("failed to list event type events: %w", err)
	}
	for _, eid := range eventIDs {
		if err := r.DeleteEvent(ctx, db, eid); err != nil {
			return err
		}
	}

	sideIDs := db.NewSelect().Model((*EventTypeSide)(nil)).Column("id").Where("event_type_id = ?", id)
	if _, err := db.NewDelete().Model((*SideClass)(nil)).Where("side_id IN (?)", sideIDs).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete side class links: %w", err)
	}
	if _, err := db.NewDelete().Model((*EventTypeSide)(nil)).Where("event_type_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete event type sides: %w", err)
	}
	if _, err := db.NewDelete().Model((*EventType)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete event type: %w", err)
	}
	return nil
}

func (r *Impl) InsertSide(ctx context.Context, db bun.IDB, s *EventTypeSide) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(s).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert side: %w", err)
	}
	return nil
}

func (r *Impl) UpdateSide(ctx context.Context, db bun.IDB, s *EventTypeSide) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model(s).ExcludeColumn("id", "event_type_id").WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update side: %w", err)
	}
	return checkAffected(res, "side")
}

func (r *Impl) DeleteSide(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().Model((*SideClass)(nil)).Where("side_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete side class links: %w", err)
	}
	if _, err := db.NewDelete().Model((*EventTypeSide)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete side: %w", err)
	}
	return nil
}

// ReplaceSideClasses deletes the side's class links and inserts classIDs.
func (r *Impl) ReplaceSideClasses(ctx context.Context, db bun.IDB, sideID int64, classIDs []int64) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().Model((*SideClass)(nil)).Where("side_id = ?", sideID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear side classes: %w", err)
	}
	if len(classIDs) == 0 {
		return nil
	}
	rows := make([]SideClass, 0, len(classIDs))
	for _, id := range classIDs {
		rows = append(rows, SideClass{SideID: sideID, ClassID: id})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert side classes: %w", err)
	}
	return nil
}

func (r *Impl) InsertEvent(ctx context.Context, db bun.IDB, e *Event) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(e).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *Impl) UpdateEvent(ctx context.Context, db bun.IDB, e *Event) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(e).
		ExcludeColumn("id", "arena_id", "event_type_id", "created_at", "archived").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return checkAffected(res, "event")
}

// DeleteEvent removes an event with its signups and reservations.
func (r *Impl) DeleteEvent(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().Model((*Signup)(nil)).Where("event_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete event signups: %w", err)
	}
	if _, err := db.NewDelete().Model((*Reservation)(nil)).Where("event_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete event reservations: %w", err)
	}
	if _, err := db.NewDelete().Model((*Event)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// ArchiveEvents flags events so LoadArena no longer returns them.
func (r *Impl) ArchiveEvents(ctx context.Context, db bun.IDB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*Event)(nil)).
		Set("archived = ?", true).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to archive events: %w", err)
	}
	return nil
}
