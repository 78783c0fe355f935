package arenaservice

import (
	"context"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

// Service defines the contract for arena operations. Every mutating call
// loads the arena, applies the change and saves it in one transaction.
type Service interface {
	CreateArena(ctx context.Context, name, currency string, managers []arenadomain.CharacterID) (*ArenaInfo, error)
	GetArena(ctx context.Context, id arenadomain.ArenaID) (*ArenaInfo, error)
	// MutateArena runs fn against the loaded arena and saves whatever it changed.
	MutateArena(ctx context.Context, id arenadomain.ArenaID, fn func(ctx context.Context, m *Session) error) error
	UpsertProgram(ctx context.Context, arenaID arenadomain.ArenaID, name, source string) (arenadomain.ProgramID, error)

	CreateEvent(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID, scheduledFor time.Time, reservations []Reservation) (*EventInfo, error)
	CreateNextOccurrence(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID) (*EventInfo, error)
	GetEvent(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID) (*EventInfo, error)
	ApplyTransition(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, t arenadomain.Transition, reason string) (*TransitionResult, error)
	RecordOutcome(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, outcome arenadomain.Outcome, winners []int) (*EventInfo, error)
	ArchiveEvent(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID) (bool, error)

	SignUp(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID, sideIndex int, classID arenadomain.ClassID) (*ParticipantInfo, error)
	Withdraw(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID) (bool, error)
	AddReservation(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, r Reservation) (arenadomain.ReservationID, error)
	RemoveReservation(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, id arenadomain.ReservationID) error

	ConfigureAutoSchedule(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID, interval *time.Duration, reference *time.Time) (*EventTypeInfo, error)
	CloneEventType(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID, newName string, originator arenadomain.CharacterID) (*EventTypeInfo, error)

	// ReconcileSchedules re-registers every unfinished event and recurring
	// event type with the scheduler, typically at startup.
	ReconcileSchedules(ctx context.Context) error
}

var _ Service = (*ArenaService)(nil)
