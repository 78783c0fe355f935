package arenadomain

import (
	"fmt"
	"strings"
)

type (
	ArenaID       int64
	ClassID       int64
	EventTypeID   int64
	SideID        int64
	EventID       int64
	SignupID      int64
	ReservationID int64
	CharacterID   int64
	ClanID        int64
	RoomID        int64
	ProgramID     int64
)

// RoomRole categorises the rooms an arena uses while running events.
type RoomRole int

const (
	RoomWaiting RoomRole = iota
	RoomFloor
	RoomObservation
	RoomInfirmary
	RoomStables
	RoomAfterFight
)

// AllRoomRoles lists every role in display order.
var AllRoomRoles = [...]RoomRole{
	RoomWaiting,
	RoomFloor,
	RoomObservation,
	RoomInfirmary,
	RoomStables,
	RoomAfterFight,
}

var roomRoleNames = map[RoomRole]string{
	RoomWaiting:     "waiting",
	RoomFloor:       "floor",
	RoomObservation: "observation",
	RoomInfirmary:   "infirmary",
	RoomStables:     "stables",
	RoomAfterFight:  "afterfight",
}

func (r RoomRole) String() string {
	if name, ok := roomRoleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RoomRole(%d)", int(r))
}

// ParseRoomRole accepts the role name or an unambiguous prefix of it.
func ParseRoomRole(s string) (RoomRole, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty room role")
	}
	for _, role := range AllRoomRoles {
		if strings.HasPrefix(role.String(), s) {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown room role %q", s)
}

// SignupPolicy controls who may join a side.
type SignupPolicy int

const (
	PolicyOpen SignupPolicy = iota
	PolicyClosed
	PolicyManagersOnly
	PolicyReservedOnly
)

var policyNames = map[SignupPolicy]string{
	PolicyOpen:         "open",
	PolicyClosed:       "closed",
	PolicyManagersOnly: "managers",
	PolicyReservedOnly: "reserved",
}

func (p SignupPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("SignupPolicy(%d)", int(p))
}

func ParseSignupPolicy(s string) (SignupPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for policy, name := range policyNames {
		if s == name {
			return policy, nil
		}
	}
	switch s {
	case "managersonly", "manager":
		return PolicyManagersOnly, nil
	case "reservedonly", "reservation":
		return PolicyReservedOnly, nil
	}
	return 0, fmt.Errorf("unknown signup policy %q", s)
}

// BettingModel selects how wagers on an event are settled.
type BettingModel int

const (
	BettingFixed BettingModel = iota
	BettingParimutuel
)

func (b BettingModel) String() string {
	switch b {
	case BettingFixed:
		return "fixed"
	case BettingParimutuel:
		return "parimutuel"
	}
	return fmt.Sprintf("BettingModel(%d)", int(b))
}

func ParseBettingModel(s string) (BettingModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return BettingFixed, nil
	case "parimutuel", "pari":
		return BettingParimutuel, nil
	}
	return 0, fmt.Errorf("unknown betting model %q", s)
}

// Outcome is the recorded result of an event.
type Outcome int

const (
	OutcomeVictory Outcome = iota
	OutcomeDraw
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "victory"
	case OutcomeDraw:
		return "draw"
	case OutcomeAborted:
		return "aborted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "victory", "win":
		return OutcomeVictory, nil
	case "draw", "tie":
		return OutcomeDraw, nil
	case "aborted", "abort":
		return OutcomeAborted, nil
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}
