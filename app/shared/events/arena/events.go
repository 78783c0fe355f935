// Package arenaevents defines the topics and payloads the arena module
// exchanges over the event bus.
package arenaevents

import "time"

// Inbound topics.
const (
	SignupRequestedV1   = "arena.signup.requested"
	WithdrawRequestedV1 = "arena.withdraw.requested"
	BuilderCommandV1    = "arena.builder.command"
)

// Outbound topics.
const (
	EventCreatedV1         = "arena.event.created"
	EventStateChangedV1    = "arena.event.state_changed"
	EventOutcomeRecordedV1 = "arena.event.outcome_recorded"
	SignupAcceptedV1       = "arena.signup.accepted"
	SignupRejectedV1       = "arena.signup.rejected"
	WithdrawCompletedV1    = "arena.withdraw.completed"
	BuilderResultV1        = "arena.builder.result"
)

// SignupRequestedPayloadV1 asks to enter a character on one side of an
// event. ClassID zero picks the first eligible class of the side.
type SignupRequestedPayloadV1 struct {
	ArenaID     int64 `json:"arena_id"`
	EventID     int64 `json:"event_id"`
	CharacterID int64 `json:"character_id"`
	SideIndex   int   `json:"side_index"`
	ClassID     int64 `json:"class_id,omitempty"`
}

type WithdrawRequestedPayloadV1 struct {
	ArenaID     int64 `json:"arena_id"`
	EventID     int64 `json:"event_id"`
	CharacterID int64 `json:"character_id"`
}

// BuilderCommandPayloadV1 carries one "<noun> <verb> <args>" line.
type BuilderCommandPayloadV1 struct {
	ArenaID int64  `json:"arena_id"`
	ActorID int64  `json:"actor_id"`
	Command string `json:"command"`
}

type EventCreatedPayloadV1 struct {
	ArenaID             int64      `json:"arena_id"`
	EventID             int64      `json:"event_id"`
	EventTypeID         int64      `json:"event_type_id"`
	EventType           string     `json:"event_type"`
	ScheduledAt         time.Time  `json:"scheduled_at"`
	RegistrationOpensAt *time.Time `json:"registration_opens_at,omitempty"`
}

type EventStateChangedPayloadV1 struct {
	ArenaID    int64     `json:"arena_id"`
	EventID    int64     `json:"event_id"`
	Transition string    `json:"transition"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventOutcomeRecordedPayloadV1 struct {
	ArenaID      int64  `json:"arena_id"`
	EventID      int64  `json:"event_id"`
	Outcome      string `json:"outcome"`
	WinningSides []int  `json:"winning_sides"`
	VictoryFees  string `json:"victory_fees,omitempty"`
}

type SignupAcceptedPayloadV1 struct {
	ArenaID     int64  `json:"arena_id"`
	EventID     int64  `json:"event_id"`
	CharacterID int64  `json:"character_id"`
	SignupID    int64  `json:"signup_id"`
	SideIndex   int    `json:"side_index"`
	Class       string `json:"class"`
	StageName   string `json:"stage_name,omitempty"`
}

type SignupRejectedPayloadV1 struct {
	ArenaID     int64  `json:"arena_id"`
	EventID     int64  `json:"event_id"`
	CharacterID int64  `json:"character_id"`
	Reason      string `json:"reason"`
}

type WithdrawCompletedPayloadV1 struct {
	ArenaID     int64  `json:"arena_id"`
	EventID     int64  `json:"event_id"`
	CharacterID int64  `json:"character_id"`
	Withdrawn   bool   `json:"withdrawn"`
	Reason      string `json:"reason,omitempty"`
}

type BuilderResultPayloadV1 struct {
	ArenaID int64  `json:"arena_id"`
	ActorID int64  `json:"actor_id"`
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
