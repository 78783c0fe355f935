package arenadomain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Event is one scheduled occurrence of an event type. Timing, fee and betting
// settings are copied from the type at creation so later template edits do
// not affect it.
type Event struct {
	ID          EventID
	CreatedAt   time.Time
	ScheduledAt time.Time

	BringYourOwn         bool
	RegistrationDuration time.Duration
	PreparationDuration  time.Duration
	TimeLimit            *time.Duration
	BettingModel         BettingModel
	AppearanceFee        decimal.Decimal
	VictoryFee           decimal.Decimal

	state               EventState
	registrationOpensAt *time.Time
	startedAt           *time.Time
	resolvedAt          *time.Time
	completedAt         *time.Time
	outcome             *Outcome
	abortReason         string
	winners             []int

	mu                 sync.Mutex
	participants       []*Participant
	reservations       []*Reservation
	prunedReservations []ReservationID

	arena     *Arena
	eventType *EventType
	dirty     bool
}

func (e *Event) Arena() *Arena                   { return e.arena }
func (e *Event) EventType() *EventType           { return e.eventType }
func (e *Event) State() EventState               { return e.state }
func (e *Event) RegistrationOpensAt() *time.Time { return e.registrationOpensAt }
func (e *Event) StartedAt() *time.Time           { return e.startedAt }
func (e *Event) ResolvedAt() *time.Time          { return e.resolvedAt }
func (e *Event) CompletedAt() *time.Time         { return e.completedAt }
func (e *Event) Outcome() *Outcome               { return e.outcome }
func (e *Event) AbortReason() string             { return e.abortReason }
func (e *Event) IsDirty() bool                   { return e.dirty }
func (e *Event) ClearDirty()                     { e.dirty = false }

// WinningSides returns a copy of the recorded winners, ascending.
func (e *Event) WinningSides() []int {
	if e.winners == nil {
		return nil
	}
	out := make([]int, len(e.winners))
	copy(out, e.winners)
	return out
}

// PreparationStartsAt is when registration closes.
func (e *Event) PreparationStartsAt() time.Time {
	return e.ScheduledAt.Add(-e.PreparationDuration)
}

// TimeLimitAt is when a live event is forced to resolve, if it has a limit.
func (e *Event) TimeLimitAt() (time.Time, bool) {
	if e.TimeLimit == nil {
		return time.Time{}, false
	}
	start := e.ScheduledAt
	if e.startedAt != nil {
		start = *e.startedAt
	}
	return start.Add(*e.TimeLimit), true
}

func (e *Event) Participants() []*Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Participant, len(e.participants))
	copy(out, e.participants)
	return out
}

func (e *Event) ParticipantsOnSide(index int) []*Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*Participant
	for _, p := range e.participants {
		if p.SideIndex == index {
			out = append(out, p)
		}
	}
	return out
}

func (e *Event) Participant(id CharacterID) *Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.participantLocked(id)
}

func (e *Event) participantLocked(id CharacterID) *Participant {
	for _, p := range e.participants {
		if p.CharacterID == id {
			return p
		}
	}
	return nil
}

func (e *Event) countOnSideLocked(index int) int {
	n := 0
	for _, p := range e.participants {
		if p.SideIndex == index {
			n++
		}
	}
	return n
}

// Reservations returns the reservations that have not expired. Expired ones
// are pruned as a side effect.
func (e *Event) Reservations() []*Reservation {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneExpiredLocked()
	out := make([]*Reservation, len(e.reservations))
	copy(out, e.reservations)
	return out
}

// TakePrunedReservations returns and clears the ids of reservations dropped
// by expiry so storage can delete them.
func (e *Event) TakePrunedReservations() []ReservationID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.prunedReservations
	e.prunedReservations = nil
	return out
}

func (e *Event) pruneExpiredLocked() {
	now := e.now()
	kept := e.reservations[:0:0]
	for _, r := range e.reservations {
		if r.Expired(now) {
			if r.ID != 0 {
				e.prunedReservations = append(e.prunedReservations, r.ID)
			}
			e.dirty = true
			continue
		}
		kept = append(kept, r)
	}
	e.reservations = kept
}

func (e *Event) now() time.Time {
	if e.arena == nil {
		return systemClock{}.Now()
	}
	return e.arena.Now()
}

func (e *Event) collaborators() Collaborators {
	if e.arena == nil {
		return Collaborators{}
	}
	return e.arena.deps
}

// EventSnapshot is the stored form of an event used to rebuild it.
type EventSnapshot struct {
	ID                   EventID
	State                EventState
	CreatedAt            time.Time
	ScheduledAt          time.Time
	RegistrationOpensAt  *time.Time
	StartedAt            *time.Time
	ResolvedAt           *time.Time
	CompletedAt          *time.Time
	BringYourOwn         bool
	RegistrationDuration time.Duration
	PreparationDuration  time.Duration
	TimeLimit            *time.Duration
	BettingModel         BettingModel
	AppearanceFee        decimal.Decimal
	VictoryFee           decimal.Decimal
	Outcome              *Outcome
	AbortReason          string
	WinningSides         []int
	Participants         []*Participant
	Reservations         []*Reservation
}

// RestoreEvent rebuilds a stored event of type t and attaches it to t's arena.
func RestoreEvent(t *EventType, s EventSnapshot) *Event {
	e := &Event{
		ID:                   s.ID,
		CreatedAt:            s.CreatedAt,
		ScheduledAt:          s.ScheduledAt,
		BringYourOwn:         s.BringYourOwn,
		RegistrationDuration: s.RegistrationDuration,
		PreparationDuration:  s.PreparationDuration,
		TimeLimit:            s.TimeLimit,
		BettingModel:         s.BettingModel,
		AppearanceFee:        s.AppearanceFee,
		VictoryFee:           s.VictoryFee,
		state:                s.State,
		registrationOpensAt:  s.RegistrationOpensAt,
		startedAt:            s.StartedAt,
		resolvedAt:           s.ResolvedAt,
		completedAt:          s.CompletedAt,
		outcome:              s.Outcome,
		abortReason:          s.AbortReason,
		winners:              s.WinningSides,
		participants:         s.Participants,
		reservations:         s.Reservations,
		eventType:            t,
	}
	if t != nil && t.arena != nil {
		t.arena.AttachEvent(e)
	}
	return e
}

// Snapshot captures the event for storage.
func (e *Event) Snapshot() EventSnapshot {
	return EventSnapshot{
		ID:                   e.ID,
		State:                e.state,
		CreatedAt:            e.CreatedAt,
		ScheduledAt:          e.ScheduledAt,
		RegistrationOpensAt:  e.registrationOpensAt,
		StartedAt:            e.startedAt,
		ResolvedAt:           e.resolvedAt,
		CompletedAt:          e.completedAt,
		BringYourOwn:         e.BringYourOwn,
		RegistrationDuration: e.RegistrationDuration,
		PreparationDuration:  e.PreparationDuration,
		TimeLimit:            e.TimeLimit,
		BettingModel:         e.BettingModel,
		AppearanceFee:        e.AppearanceFee,
		VictoryFee:           e.VictoryFee,
		Outcome:              e.outcome,
		AbortReason:          e.abortReason,
		WinningSides:         e.WinningSides(),
		Participants:         e.Participants(),
		Reservations:         e.reservationsRaw(),
	}
}

func (e *Event) reservationsRaw() []*Reservation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Reservation, len(e.reservations))
	copy(out, e.reservations)
	return out
}
