package arenadomain

import (
	"errors"
	"fmt"
)

var (
	// ErrForeignEventType is returned when an event type owned by another arena is used.
	ErrForeignEventType = errors.New("event type does not belong to this arena")

	// ErrForeignClass is returned when a combatant class owned by another arena is used.
	ErrForeignClass = errors.New("combatant class does not belong to this arena")

	// ErrSignupRejected wraps every refused signup.
	ErrSignupRejected = errors.New("signup rejected")

	// ErrWithdrawClosed is returned when a withdrawal is attempted after registration closed.
	ErrWithdrawClosed = errors.New("withdrawals are closed for this event")

	ErrDuplicateName      = errors.New("name already in use")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrInvalidCapacity    = errors.New("capacity must be positive")
	ErrInvalidRatingBand  = errors.New("minimum rating cannot exceed maximum rating")
	ErrInvalidDuration    = errors.New("duration cannot be negative")
	ErrInvalidFee         = errors.New("fee cannot be negative")
	ErrSideNotFound       = errors.New("side not found")
	ErrEligibilityMissing = errors.New("combatant class requires an eligibility program")
	ErrClassInUse         = errors.New("combatant class is still eligible on a side")
	ErrTypeInUse          = errors.New("event type has unfinished events")
	ErrLastSide           = errors.New("an event type needs at least one side")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrReservationUnknown = errors.New("reservation not found")
	ErrEventNotFound      = errors.New("event not found")

	ErrCharacterRegistryMissing = errors.New("no character registry configured")
)

// SignupRejectedError carries the player-facing reason a signup was refused.
type SignupRejectedError struct {
	Reason string
}

func (e *SignupRejectedError) Error() string {
	return fmt.Sprintf("signup rejected: %s", e.Reason)
}

func (e *SignupRejectedError) Unwrap() error { return ErrSignupRejected }
