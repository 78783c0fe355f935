package arenadomain

import "fmt"

// EventState is the lifecycle position of an event. States are ordered; an
// event only ever moves forward through them.
type EventState int

const (
	StateDraft EventState = iota
	StateRegistrationOpen
	StatePreparing
	StateStaged
	StateLive
	StateResolving
	StateCleanup
	StateCompleted
	StateAborted
)

var stateNames = [...]string{
	StateDraft:            "draft",
	StateRegistrationOpen: "registration_open",
	StatePreparing:        "preparing",
	StateStaged:           "staged",
	StateLive:             "live",
	StateResolving:        "resolving",
	StateCleanup:          "cleanup",
	StateCompleted:        "completed",
	StateAborted:          "aborted",
}

func (s EventState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("EventState(%d)", int(s))
}

// IsTerminal reports whether no further transition can leave s.
func (s EventState) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted
}

// ParseEventState is the inverse of String.
func ParseEventState(s string) (EventState, error) {
	for i, name := range stateNames {
		if name == s {
			return EventState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event state %q", s)
}
