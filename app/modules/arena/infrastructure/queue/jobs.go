package arenaqueue

import (
	"strconv"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

// EventTransitionJob applies one lifecycle transition to an event when it
// comes due. Args are unique per event and transition, so re-scheduling an
// event never queues the same step twice.
type EventTransitionJob struct {
	ArenaID    int64  `json:"arena_id"`
	EventID    int64  `json:"event_id"`
	Transition string `json:"transition"`
}

// Kind returns the job type identifier for River
func (EventTransitionJob) Kind() string { return "event_transition" }

// Step is the next time-driven transition of an event.
type Step struct {
	Transition arenadomain.Transition
	At         time.Time
}

// DefaultGrace separates Resolving, Cleanup and Completed.
const DefaultGrace = 5 * time.Minute

// Plan returns the next transition the scheduler owes e, if any. Only the
// next step is planned; the service re-schedules after every transition it
// applies. Live events without a time limit wait for a mercy stop or a
// manual resolve.
func Plan(e *arenadomain.Event, grace time.Duration) (Step, bool) {
	if grace <= 0 {
		grace = DefaultGrace
	}
	switch e.State() {
	case arenadomain.StateDraft:
		if e.BringYourOwn {
			return Step{arenadomain.TransitionStartPreparation, e.PreparationStartsAt()}, true
		}
		at := e.CreatedAt
		if opens := e.RegistrationOpensAt(); opens != nil {
			at = *opens
		}
		return Step{arenadomain.TransitionOpenRegistration, at}, true
	case arenadomain.StateRegistrationOpen:
		return Step{arenadomain.TransitionCloseRegistration, e.PreparationStartsAt()}, true
	case arenadomain.StatePreparing:
		return Step{arenadomain.TransitionStage, e.ScheduledAt}, true
	case arenadomain.StateStaged:
		return Step{arenadomain.TransitionStartLive, e.ScheduledAt}, true
	case arenadomain.StateLive:
		if at, ok := e.TimeLimitAt(); ok {
			return Step{arenadomain.TransitionResolve, at}, true
		}
	case arenadomain.StateResolving:
		return Step{arenadomain.TransitionCleanup, resolvedAt(e).Add(grace)}, true
	case arenadomain.StateCleanup:
		return Step{arenadomain.TransitionComplete, resolvedAt(e).Add(2 * grace)}, true
	}
	return Step{}, false
}

func resolvedAt(e *arenadomain.Event) time.Time {
	if at := e.ResolvedAt(); at != nil {
		return *at
	}
	return e.ScheduledAt
}

func newJob(e *arenadomain.Event, t arenadomain.Transition) EventTransitionJob {
	job := EventTransitionJob{EventID: int64(e.ID), Transition: string(t)}
	if a := e.Arena(); a != nil {
		job.ArenaID = int64(a.ID)
	}
	return job
}

// recurringTag names the recurring job of an event type.
func recurringTag(id arenadomain.EventTypeID) string {
	return "event_type:" + strconv.FormatInt(int64(id), 10)
}
