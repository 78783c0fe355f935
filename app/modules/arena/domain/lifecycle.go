package arenadomain

import (
	"context"
	"time"
)

// advance moves the event forward to target. It reports false, leaving the
// event untouched, when the event is terminal or already at or past target.
func (e *Event) advance(target EventState) bool {
	if e.state.IsTerminal() || e.state >= target {
		return false
	}
	e.state = target
	e.dirty = true
	return true
}

func (e *Event) stamp() *time.Time {
	now := e.now()
	return &now
}

// OpenRegistration moves a draft event to RegistrationOpen.
func (e *Event) OpenRegistration() bool {
	if e.state != StateDraft {
		return false
	}
	e.advance(StateRegistrationOpen)
	if e.registrationOpensAt == nil {
		e.registrationOpensAt = e.stamp()
	}
	return true
}

func (e *Event) CloseRegistration() bool {
	return e.advance(StatePreparing)
}

// StartPreparation skips straight to Preparing, as bring-your-own events do.
func (e *Event) StartPreparation() bool {
	return e.advance(StatePreparing)
}

func (e *Event) Stage() bool {
	return e.advance(StateStaged)
}

func (e *Event) StartLive() bool {
	if !e.advance(StateLive) {
		return false
	}
	if e.startedAt == nil {
		e.startedAt = e.stamp()
	}
	return true
}

// MercyStop resolves a live event early when its elimination strategy allows
// it. It reports whether the event was resolved.
func (e *Event) MercyStop(ctx context.Context) bool {
	if e.state != StateLive {
		return false
	}
	if !e.EliminationStrategy().MercyStopAllowed(ctx, e) {
		return false
	}
	return e.Resolve()
}

func (e *Event) Resolve() bool {
	if !e.advance(StateResolving) {
		return false
	}
	e.resolvedAt = e.stamp()
	return true
}

// Cleanup only follows Resolving.
func (e *Event) Cleanup() bool {
	if e.state != StateResolving {
		return false
	}
	return e.advance(StateCleanup)
}

// Complete finishes a resolving or cleaning-up event.
func (e *Event) Complete() bool {
	if e.state != StateResolving && e.state != StateCleanup {
		return false
	}
	if !e.advance(StateCompleted) {
		return false
	}
	e.completedAt = e.stamp()
	return true
}

// Abort cancels the event from any non-terminal state. An event whose
// outcome is already recorded has settled its fees and cannot be aborted.
func (e *Event) Abort(reason string) bool {
	if e.state.IsTerminal() || e.outcome != nil {
		return false
	}
	outcome := OutcomeAborted
	e.outcome = &outcome
	e.winners = nil
	e.abortReason = reason
	e.completedAt = e.stamp()
	e.state = StateAborted
	e.dirty = true
	return true
}

// Transition names a lifecycle step so schedulers and command handlers can
// refer to one without holding a method value.
type Transition string

const (
	TransitionOpenRegistration  Transition = "open_registration"
	TransitionCloseRegistration Transition = "close_registration"
	TransitionStartPreparation  Transition = "start_preparation"
	TransitionStage             Transition = "stage"
	TransitionStartLive         Transition = "start_live"
	TransitionMercyStop         Transition = "mercy_stop"
	TransitionResolve           Transition = "resolve"
	TransitionCleanup           Transition = "cleanup"
	TransitionComplete          Transition = "complete"
	TransitionAbort             Transition = "abort"
)

// Apply runs the named transition. Unknown names change nothing.
func (e *Event) Apply(ctx context.Context, t Transition, reason string) bool {
	switch t {
	case TransitionOpenRegistration:
		return e.OpenRegistration()
	case TransitionCloseRegistration:
		return e.CloseRegistration()
	case TransitionStartPreparation:
		return e.StartPreparation()
	case TransitionStage:
		return e.Stage()
	case TransitionStartLive:
		return e.StartLive()
	case TransitionMercyStop:
		return e.MercyStop(ctx)
	case TransitionResolve:
		return e.Resolve()
	case TransitionCleanup:
		return e.Cleanup()
	case TransitionComplete:
		return e.Complete()
	case TransitionAbort:
		return e.Abort(reason)
	}
	return false
}

// ParseTransition accepts a transition name.
func ParseTransition(s string) (Transition, bool) {
	switch t := Transition(s); t {
	case TransitionOpenRegistration, TransitionCloseRegistration, TransitionStartPreparation,
		TransitionStage, TransitionStartLive, TransitionMercyStop, TransitionResolve,
		TransitionCleanup, TransitionComplete, TransitionAbort:
		return t, true
	}
	return "", false
}
