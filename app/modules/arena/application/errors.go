package arenaservice

import (
	"errors"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenaroster "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/roster"
)

var (
	ErrArenaNotFound     = errors.New("arena not found")
	ErrEventTypeNotFound = errors.New("event type not found")
	ErrClassNotFound     = errors.New("combatant class not found")
	ErrProgramNotFound   = errors.New("program not found")
	ErrInvalidProgram    = errors.New("program is invalid")
	ErrArenaNotReady     = errors.New("arena is not ready to host")
	ErrNotManager        = errors.New("only arena managers may do that")
	ErrOutcomeRecorded   = errors.New("event already has an outcome")
	ErrInvalidOutcome    = errors.New("outcome cannot be recorded directly")
	ErrAutoScheduleOff   = errors.New("event type has no auto-schedule")
	ErrReservationTarget = errors.New("reservation needs a character or a clan")
)

// domainFailures are reported as failure results instead of errors.
var domainFailures = []error{
	ErrArenaNotFound,
	ErrEventTypeNotFound,
	ErrClassNotFound,
	ErrProgramNotFound,
	ErrInvalidProgram,
	ErrArenaNotReady,
	ErrNotManager,
	ErrOutcomeRecorded,
	ErrInvalidOutcome,
	ErrAutoScheduleOff,
	ErrReservationTarget,
	arenadomain.ErrForeignEventType,
	arenadomain.ErrForeignClass,
	arenadomain.ErrSignupRejected,
	arenadomain.ErrWithdrawClosed,
	arenadomain.ErrDuplicateName,
	arenadomain.ErrEmptyName,
	arenadomain.ErrInvalidCapacity,
	arenadomain.ErrInvalidRatingBand,
	arenadomain.ErrInvalidDuration,
	arenadomain.ErrInvalidFee,
	arenadomain.ErrSideNotFound,
	arenadomain.ErrEligibilityMissing,
	arenadomain.ErrClassInUse,
	arenadomain.ErrTypeInUse,
	arenadomain.ErrLastSide,
	arenadomain.ErrInsufficientFunds,
	arenadomain.ErrReservationUnknown,
	arenadomain.ErrEventNotFound,
	arenaroster.ErrUnknownCharacter,
	arenaeconomy.ErrAccountNotFound,
	arenaeconomy.ErrInvalidAmount,
}

// IsDomainFailure reports whether err is a business rule rejection rather
// than an infrastructure fault. Callers answer the former and retry the latter.
func IsDomainFailure(err error) bool {
	for _, target := range domainFailures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
