package arenadomain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Clock supplies the current time. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Character is the slice of the world's actor model the arena needs.
type Character interface {
	ID() CharacterID
	Name() string
	IsNPC() bool
	Clans() []ClanID
	// IsAbleBodied is false once the character can no longer fight.
	IsAbleBodied() bool
}

// CharacterRegistry resolves character ids. Lookups may fail while the actor
// registry is still loading.
type CharacterRegistry interface {
	Character(ctx context.Context, id CharacterID) (Character, error)
}

// RatingLookup returns a character's rating in a combatant class. ok is false
// when the character has never been rated in that class.
type RatingLookup interface {
	Rating(ctx context.Context, id CharacterID, class ClassID) (rating float64, ok bool, err error)
}

// BankAccount is an external account that backs an arena's funds.
type BankAccount interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	Withdraw(ctx context.Context, amount decimal.Decimal) error
	Deposit(ctx context.Context, amount decimal.Decimal) error
}

// Scheduler drives time-based transitions. Implementations must tolerate the
// same event being scheduled twice.
type Scheduler interface {
	Schedule(ctx context.Context, event *Event) error
	SyncRecurringSchedule(ctx context.Context, eventType *EventType) error
}

// EventStore persists the records an event owns. The event calls it before
// touching its in-memory collections so a failed write leaves the event as it was.
type EventStore interface {
	InsertSignup(ctx context.Context, event EventID, p *Participant) (SignupID, error)
	DeleteSignup(ctx context.Context, id SignupID) error
	InsertReservation(ctx context.Context, event EventID, r *Reservation) (ReservationID, error)
	DeleteReservation(ctx context.Context, id ReservationID) error
}

// Collaborators bundles the services an arena consults at runtime.
type Collaborators struct {
	Clock      Clock
	Characters CharacterRegistry
	Ratings    RatingLookup
}

func (c Collaborators) now() time.Time {
	if c.Clock == nil {
		return systemClock{}.Now()
	}
	return c.Clock.Now()
}
