package arenadb

import (
	"context"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/uptrace/bun"
)

// ProgramResolver turns a stored program id into an executable program.
type ProgramResolver func(id arenadomain.ProgramID) arenadomain.Prog

// AccountResolver opens the bank account linked to an arena.
type AccountResolver func(ctx context.Context, db bun.IDB, id int64) (arenadomain.BankAccount, error)

// LoadOptions supplies the runtime pieces a loaded arena is bound to.
type LoadOptions struct {
	Deps     arenadomain.Collaborators
	Programs ProgramResolver
	Accounts AccountResolver
}

// Repository defines the contract for arena persistence. Every method takes a
// bun.IDB so callers can run it inside their transaction; nil uses the
// repository's own connection.
type Repository interface {
	// LoadArena rebuilds the full aggregate: classes, types, sides, and every
	// event that has not been archived.
	LoadArena(ctx context.Context, db bun.IDB, id arenadomain.ArenaID, opts LoadOptions) (*arenadomain.Arena, error)

	// SaveArena writes every new, dirty or removed part of the aggregate and
	// marks it clean.
	SaveArena(ctx context.Context, db bun.IDB, a *arenadomain.Arena) error

	ListArenas(ctx context.Context, db bun.IDB) ([]Arena, error)
	FindEventArena(ctx context.Context, db bun.IDB, eventID arenadomain.EventID) (arenadomain.ArenaID, error)
	ListUnfinishedEvents(ctx context.Context, db bun.IDB, before time.Time) ([]DueEvent, error)

	// Row-level operations used by SaveArena.
	InsertArena(ctx context.Context, db bun.IDB, a *Arena) error
	UpdateArena(ctx context.Context, db bun.IDB, a *Arena) error
	ReplaceManagers(ctx context.Context, db bun.IDB, arenaID int64, managers []int64) error
	ReplaceRooms(ctx context.Context, db bun.IDB, arenaID int64, rooms []ArenaRoom) error
	InsertCombatantClass(ctx context.Context, db bun.IDB, c *CombatantClass) error
	UpdateCombatantClass(ctx context.Context, db bun.IDB, c *CombatantClass) error
	DeleteCombatantClass(ctx context.Context, db bun.IDB, id int64) error
	InsertEventType(ctx context.Context, db bun.IDB, t *EventType) error
	UpdateEventType(ctx context.Context, db bun.IDB, t *EventType) error
	DeleteEventType(ctx context.Context, db bun.IDB, id int64) error
	InsertSide(ctx context.Context, db bun.IDB, s *EventTypeSide) error
	UpdateSide(ctx context.Context, db bun.IDB, s *EventTypeSide) error
	DeleteSide(ctx context.Context, db bun.IDB, id int64) error
	ReplaceSideClasses(ctx context.Context, db bun.IDB, sideID int64, classIDs []int64) error
	InsertEvent(ctx context.Context, db bun.IDB, e *Event) error
	UpdateEvent(ctx context.Context, db bun.IDB, e *Event) error
	DeleteEvent(ctx context.Context, db bun.IDB, id int64) error
	ArchiveEvents(ctx context.Context, db bun.IDB, ids []int64) error

	// EventStore binds the signup and reservation writes to db.
	EventStore(db bun.IDB) arenadomain.EventStore

	GetProgram(ctx context.Context, db bun.IDB, id int64) (*Program, error)
	GetProgramByName(ctx context.Context, db bun.IDB, arenaID int64, name string) (*Program, error)
	UpsertProgram(ctx context.Context, db bun.IDB, p *Program) error
}
