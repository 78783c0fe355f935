package arenaservice

import (
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/shopspring/decimal"
)

// ArenaInfo is a read-only summary of an arena.
type ArenaInfo struct {
	ID           arenadomain.ArenaID
	Name         string
	Currency     string
	Managers     []arenadomain.CharacterID
	Rooms        map[string][]arenadomain.RoomID
	Funds        decimal.Decimal
	BankAccount  *int64
	Classes      []ClassInfo
	EventTypes   []EventTypeInfo
	Events       []EventInfo
	ReadyToHost  bool
	ReadyMessage string
}

type ClassInfo struct {
	ID   arenadomain.ClassID
	Name string
}

type EventTypeInfo struct {
	ID           arenadomain.EventTypeID
	Name         string
	Sides        int
	AutoSchedule bool
}

type EventInfo struct {
	ID                  arenadomain.EventID
	ArenaID             arenadomain.ArenaID
	EventTypeID         arenadomain.EventTypeID
	EventType           string
	State               string
	ScheduledAt         time.Time
	RegistrationOpensAt *time.Time
	StartedAt           *time.Time
	ResolvedAt          *time.Time
	CompletedAt         *time.Time
	Outcome             string
	WinningSides        []int
	AbortReason         string
	Participants        []ParticipantInfo
	Reservations        int
}

type ParticipantInfo struct {
	SignupID    arenadomain.SignupID
	CharacterID arenadomain.CharacterID
	SideIndex   int
	Class       string
	NPC         bool
	StageName   string
}

// TransitionResult reports a requested lifecycle transition.
type TransitionResult struct {
	Applied bool
	From    string
	Event   EventInfo
}

// Reservation describes a reservation to add. Either CharacterID or ClanID
// should be set; a zero TTL uses the configured default.
type Reservation struct {
	SideIndex   int
	CharacterID *arenadomain.CharacterID
	ClanID      *arenadomain.ClanID
	TTL         time.Duration
}

func newEventInfo(e *arenadomain.Event) EventInfo {
	info := EventInfo{
		ID:                  e.ID,
		State:               e.State().String(),
		ScheduledAt:         e.ScheduledAt,
		RegistrationOpensAt: e.RegistrationOpensAt(),
		StartedAt:           e.StartedAt(),
		ResolvedAt:          e.ResolvedAt(),
		CompletedAt:         e.CompletedAt(),
		WinningSides:        e.WinningSides(),
		AbortReason:         e.AbortReason(),
		Reservations:        len(e.Reservations()),
	}
	if a := e.Arena(); a != nil {
		info.ArenaID = a.ID
	}
	if t := e.EventType(); t != nil {
		info.EventTypeID = t.ID
		info.EventType = t.Name
	}
	if o := e.Outcome(); o != nil {
		info.Outcome = o.String()
	}
	for _, p := range e.Participants() {
		pi := ParticipantInfo{
			SignupID:    p.ID,
			CharacterID: p.CharacterID,
			SideIndex:   p.SideIndex,
			NPC:         p.IsNPC,
			StageName:   p.StageName,
		}
		if p.Class != nil {
			pi.Class = p.Class.Name
		}
		info.Participants = append(info.Participants, pi)
	}
	return info
}

func newEventTypeInfo(t *arenadomain.EventType) EventTypeInfo {
	return EventTypeInfo{
		ID:           t.ID,
		Name:         t.Name,
		Sides:        len(t.Sides()),
		AutoSchedule: t.AutoScheduleEnabled(),
	}
}
