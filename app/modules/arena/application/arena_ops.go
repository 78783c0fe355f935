package arenaservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenadb "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/app/shared/results"
	"github.com/uptrace/bun"
)

// Session is the loaded arena a MutateArena callback edits. Store writes
// signups and reservations inside the same transaction.
type Session struct {
	Arena *arenadomain.Arena
	Store arenadomain.EventStore

	svc *ArenaService
	db  bun.IDB
}

// Program resolves a stored program of this arena by name.
func (m *Session) Program(ctx context.Context, name string) (arenadomain.Prog, error) {
	p, err := m.svc.repo.GetProgramByName(ctx, m.db, int64(m.Arena.ID), name)
	if err != nil {
		if errors.Is(err, arenadb.ErrNotFound) {
			return nil, fmt.Errorf("%q: %w", name, ErrProgramNotFound)
		}
		return nil, err
	}
	return m.svc.scripts.Resolver(m.svc.programLoader(m.db))(arenadomain.ProgramID(p.ID)), nil
}

// LinkBankAccount backs the arena's funds with a stored bank account.
func (m *Session) LinkBankAccount(ctx context.Context, accountID int64) error {
	if m.svc.accounts == nil {
		return fmt.Errorf("bank accounts are not configured")
	}
	acct, err := m.svc.accounts.Resolve(ctx, m.db, accountID)
	if err != nil {
		return err
	}
	m.Arena.LinkBankAccount(accountID, acct)
	return nil
}

// CreateArena creates an empty arena.
func (s *ArenaService) CreateArena(ctx context.Context, name, currency string, managers []arenadomain.CharacterID) (*ArenaInfo, error) {
	createTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*ArenaInfo, error], error) {
		if strings.TrimSpace(name) == "" {
			return results.FailureResult[*ArenaInfo, error](arenadomain.ErrEmptyName), nil
		}
		a := arenadomain.NewArena(name, arenadomain.Collaborators{Clock: s.clock})
		a.Currency = currency
		if a.Currency == "" {
			a.Currency = s.cfg.DefaultCurrency
		}
		for _, m := range managers {
			a.AddManager(m)
		}
		if err := s.repo.SaveArena(ctx, db, a); err != nil {
			return results.OperationResult[*ArenaInfo, error]{}, fmt.Errorf("failed to save arena: %w", err)
		}
		info, err := s.arenaInfo(ctx, a)
		if err != nil {
			return results.OperationResult[*ArenaInfo, error]{}, err
		}
		return results.SuccessResult[*ArenaInfo, error](info), nil
	}

	return unwrap(withTelemetry(s, ctx, "CreateArena", name, func(ctx context.Context) (results.OperationResult[*ArenaInfo, error], error) {
		return runInTx(s, ctx, createTx)
	}))
}

// GetArena returns a summary of the arena.
func (s *ArenaService) GetArena(ctx context.Context, id arenadomain.ArenaID) (*ArenaInfo, error) {
	getTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*ArenaInfo, error], error) {
		a, err := s.loadArena(ctx, db, id)
		if err != nil {
			if IsDomainFailure(err) {
				return results.FailureResult[*ArenaInfo, error](err), nil
			}
			return results.OperationResult[*ArenaInfo, error]{}, err
		}
		info, err := s.arenaInfo(ctx, a)
		if err != nil {
			return results.OperationResult[*ArenaInfo, error]{}, err
		}
		return results.SuccessResult[*ArenaInfo, error](info), nil
	}

	return unwrap(withTelemetry(s, ctx, "GetArena", arenaIdent(id), func(ctx context.Context) (results.OperationResult[*ArenaInfo, error], error) {
		return runInTx(s, ctx, getTx)
	}))
}

// MutateArena runs fn and saves the arena. Event types fn touched are
// resynced with the scheduler after commit.
func (s *ArenaService) MutateArena(ctx context.Context, id arenadomain.ArenaID, fn func(ctx context.Context, m *Session) error) error {
	var touched []*arenadomain.EventType
	mutate := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (struct{}, error) {
		before := a.EventTypes()
		if err := fn(ctx, &Session{Arena: a, Store: s.repo.EventStore(db), svc: s, db: db}); err != nil {
			return struct{}{}, err
		}
		touched = touched[:0]
		for _, t := range a.EventTypes() {
			if t.IsDirty() || t.ID == 0 {
				touched = append(touched, t)
			}
		}
		for _, t := range before {
			if t.Arena() == nil {
				touched = append(touched, t)
			}
		}
		return struct{}{}, nil
	}

	_, err := unwrap(withTelemetry(s, ctx, "MutateArena", arenaIdent(id), func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return withArena(s, ctx, id, mutate)
	}))
	if err != nil {
		return err
	}
	for _, t := range touched {
		s.syncRecurring(ctx, t)
	}
	return nil
}

// UpsertProgram validates and stores a Lua program under name.
func (s *ArenaService) UpsertProgram(ctx context.Context, arenaID arenadomain.ArenaID, name, source string) (arenadomain.ProgramID, error) {
	upsert := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (arenadomain.ProgramID, error) {
		if strings.TrimSpace(name) == "" {
			return 0, arenadomain.ErrEmptyName
		}
		if err := s.scripts.Compile(source); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
		}
		p := &arenadb.Program{ArenaID: int64(a.ID), Name: name, Source: source}
		if err := s.repo.UpsertProgram(ctx, db, p); err != nil {
			return 0, err
		}
		return arenadomain.ProgramID(p.ID), nil
	}

	id, err := unwrap(withTelemetry(s, ctx, "UpsertProgram", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[arenadomain.ProgramID, error], error) {
		return withArena(s, ctx, arenaID, upsert)
	}))
	if err != nil {
		return 0, err
	}
	s.scripts.Invalidate(id)
	return id, nil
}

func (s *ArenaService) arenaInfo(ctx context.Context, a *arenadomain.Arena) (*ArenaInfo, error) {
	funds, err := a.AvailableFunds(ctx)
	if err != nil {
		return nil, err
	}
	info := &ArenaInfo{
		ID:          a.ID,
		Name:        a.Name,
		Currency:    a.Currency,
		Managers:    a.Managers(),
		Rooms:       make(map[string][]arenadomain.RoomID, len(arenadomain.AllRoomRoles)),
		Funds:       funds,
		BankAccount: a.BankAccountID,
	}
	for _, role := range arenadomain.AllRoomRoles {
		info.Rooms[role.String()] = a.Rooms(role)
	}
	for _, c := range a.CombatantClasses() {
		info.Classes = append(info.Classes, ClassInfo{ID: c.ID, Name: c.Name})
	}
	for _, t := range a.EventTypes() {
		info.EventTypes = append(info.EventTypes, newEventTypeInfo(t))
	}
	for _, e := range a.Events() {
		info.Events = append(info.Events, newEventInfo(e))
	}
	if types := a.EventTypes(); len(types) > 0 {
		info.ReadyToHost, info.ReadyMessage = a.IsReadyToHost(types[0])
	}
	return info, nil
}

// syncRecurring asks the scheduler to resync t. Failures are logged; the
// next reconciliation retries them.
func (s *ArenaService) syncRecurring(ctx context.Context, t *arenadomain.EventType) {
	sc := s.sched()
	if sc == nil {
		return
	}
	if err := sc.SyncRecurringSchedule(ctx, t); err != nil {
		s.logger.ErrorContext(ctx, "Failed to sync recurring schedule",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("event_type_id", int64(t.ID)),
			attr.Error(err),
		)
	}
}

// schedule hands e to the scheduler after commit.
func (s *ArenaService) schedule(ctx context.Context, e *arenadomain.Event) {
	sc := s.sched()
	if sc == nil {
		return
	}
	if err := sc.Schedule(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule event",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("event_id", int64(e.ID)),
			attr.Error(err),
		)
	}
}
