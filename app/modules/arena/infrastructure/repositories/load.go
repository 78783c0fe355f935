package arenadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/uptrace/bun"
)

// unresolvedProg stands in for a program when no resolver was supplied, so a
// later save keeps the stored id.
type unresolvedProg struct {
	id arenadomain.ProgramID
}

func (p unresolvedProg) ID() arenadomain.ProgramID { return p.id }
func (p unresolvedProg) Name() string              { return fmt.Sprintf("program #%d", p.id) }
func (p unresolvedProg) Execute(context.Context, ...any) (any, error) {
	return nil, fmt.Errorf("program #%d is not loaded", p.id)
}

// LoadArena rebuilds the aggregate and returns it clean.
func (r *Impl) LoadArena(ctx context.Context, db bun.IDB, id arenadomain.ArenaID, opts LoadOptions) (*arenadomain.Arena, error) {
	db = r.resolveDB(db)

	row := new(Arena)
	if err := db.NewSelect().Model(row).Where("id = ?", int64(id)).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get arena: %w", err)
	}

	var managers []ArenaManager
	if err := db.NewSelect().Model(&managers).Where("arena_id = ?", row.ID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to get arena managers: %w", err)
	}
	var rooms []ArenaRoom
	if err := db.NewSelect().Model(&rooms).Where("arena_id = ?", row.ID).Order("role ASC", "room_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to get arena rooms: %w", err)
	}

	snap := arenadomain.ArenaSnapshot{
		ID:             arenadomain.ArenaID(row.ID),
		Name:           row.Name,
		EconomicZoneID: row.EconomicZoneID,
		Currency:       row.Currency,
		BankAccountID:  row.BankAccountID,
		VirtualBalance: row.VirtualBalance,
		Rooms:          make(map[arenadomain.RoomRole][]arenadomain.RoomID),
	}
	for _, m := range managers {
		snap.Managers = append(snap.Managers, arenadomain.CharacterID(m.CharacterID))
	}
	for _, rm := range rooms {
		role, err := arenadomain.ParseRoomRole(rm.Role)
		if err != nil {
			return nil, fmt.Errorf("arena %d: %w", row.ID, err)
		}
		snap.Rooms[role] = append(snap.Rooms[role], arenadomain.RoomID(rm.RoomID))
	}

	var account arenadomain.BankAccount
	if row.BankAccountID != nil && opts.Accounts != nil {
		acct, err := opts.Accounts(ctx, db, *row.BankAccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to open bank account %d: %w", *row.BankAccountID, err)
		}
		account = acct
	}
	a := arenadomain.RestoreArena(snap, opts.Deps, account)

	if err := r.loadTemplates(ctx, db, a, opts); err != nil {
		return nil, err
	}
	if err := r.loadEvents(ctx, db, a); err != nil {
		return nil, err
	}
	a.MarkClean()
	return a, nil
}

func (r *Impl) loadTemplates(ctx context.Context, db bun.IDB, a *arenadomain.Arena, opts LoadOptions) error {
	var classes []CombatantClass
	if err := db.NewSelect().Model(&classes).Where("arena_id = ?", int64(a.ID)).Order("id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("failed to get combatant classes: %w", err)
	}
	for _, c := range classes {
		a.AttachCombatantClass(opts.classFromRow(c))
	}

	var types []EventType
	if err := db.NewSelect().Model(&types).Where("arena_id = ?", int64(a.ID)).Order("id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("failed to get event types: %w", err)
	}
	if len(types) == 0 {
		return nil
	}
	typeIDs := make([]int64, 0, len(types))
	for _, t := range types {
		a.AttachEventType(opts.eventTypeFromRow(t))
		typeIDs = append(typeIDs, t.ID)
	}

	var sides []EventTypeSide
	err := db.NewSelect().
		Model(&sides).
		Where("event_type_id IN (?)", bun.In(typeIDs)).
		Order("event_type_id ASC", "side_index ASC").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to get event type sides: %w", err)
	}
	if len(sides) == 0 {
		return nil
	}
	sideByID := make(map[int64]*arenadomain.EventTypeSide, len(sides))
	sideIDs := make([]int64, 0, len(sides))
	for _, s := range sides {
		side := opts.sideFromRow(s)
		a.EventType(arenadomain.EventTypeID(s.EventTypeID)).AttachSide(side)
		sideByID[s.ID] = side
		sideIDs = append(sideIDs, s.ID)
	}

	var links []SideClass
	if err := db.NewSelect().Model(&links).Where("side_id IN (?)", bun.In(sideIDs)).Order("class_id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("failed to get side classes: %w", err)
	}
	for _, l := range links {
		if side := sideByID[l.SideID]; side != nil {
			side.AttachClass(a.CombatantClass(arenadomain.ClassID(l.ClassID)))
		}
	}
	return nil
}

func (r *Impl) loadEvents(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error {
	var events []Event
	err := db.NewSelect().
		Model(&events).
		Where("arena_id = ?", int64(a.ID)).
		Where("archived = ?", false).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	var signups []Signup
	if err := db.NewSelect().Model(&signups).Where("event_id IN (?)", bun.In(ids)).Order("id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("failed to get signups: %w", err)
	}
	var reservations []Reservation
	if err := db.NewSelect().Model(&reservations).Where("event_id IN (?)", bun.In(ids)).Order("id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("failed to get reservations: %w", err)
	}
	signupsByEvent := make(map[int64][]Signup)
	for _, s := range signups {
		signupsByEvent[s.EventID] = append(signupsByEvent[s.EventID], s)
	}
	reservationsByEvent := make(map[int64][]Reservation)
	for _, res := range reservations {
		reservationsByEvent[res.EventID] = append(reservationsByEvent[res.EventID], res)
	}

	for _, e := range events {
		t := a.EventType(arenadomain.EventTypeID(e.EventTypeID))
		if t == nil {
			return fmt.Errorf("event %d references missing event type %d: %w", e.ID, e.EventTypeID, ErrNotFound)
		}
		snap, err := eventSnapshot(e, a, signupsByEvent[e.ID], reservationsByEvent[e.ID])
		if err != nil {
			return err
		}
		arenadomain.RestoreEvent(t, snap)
	}
	return nil
}
