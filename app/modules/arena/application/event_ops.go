package arenaservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	arenaevents "github.com/Black-And-White-Club/arena-engine/app/shared/events/arena"
	"github.com/Black-And-White-Club/arena-engine/app/shared/results"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const defaultReservationTTL = 24 * time.Hour

// transitionOutput carries what ApplyTransition must publish once the
// transaction has committed.
type transitionOutput struct {
	result  *TransitionResult
	event   *arenadomain.Event
	changed *arenaevents.EventStateChangedPayloadV1
	outcome *arenaevents.EventOutcomeRecordedPayloadV1
}

type occurrence struct {
	event   *arenadomain.Event
	created bool
}

// CreateEvent schedules an instance of an event type.
func (s *ArenaService) CreateEvent(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID, scheduledFor time.Time, reservations []Reservation) (*EventInfo, error) {
	create := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (*arenadomain.Event, error) {
		t := a.EventType(typeID)
		if t == nil {
			return nil, fmt.Errorf("event type %d: %w", typeID, ErrEventTypeNotFound)
		}
		return s.createEvent(a, t, scheduledFor, reservations)
	}

	e, err := unwrap(withTelemetry(s, ctx, "CreateEvent", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[*arenadomain.Event, error], error) {
		return withArena(s, ctx, arenaID, create)
	}))
	if err != nil {
		return nil, err
	}
	s.eventCreated(ctx, e)
	info := newEventInfo(e)
	return &info, nil
}

// CreateNextOccurrence creates the next automatic occurrence of an event
// type. An event of that type already scheduled for the same time is
// returned instead, so repeated firings create one event.
func (s *ArenaService) CreateNextOccurrence(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID) (*EventInfo, error) {
	next := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (occurrence, error) {
		t := a.EventType(typeID)
		if t == nil {
			return occurrence{}, fmt.Errorf("event type %d: %w", typeID, ErrEventTypeNotFound)
		}
		when, ok := t.NextOccurrence(s.clock.Now())
		if !ok {
			return occurrence{}, fmt.Errorf("%s: %w", t.Name, ErrAutoScheduleOff)
		}
		for _, e := range a.Events() {
			if e.EventType() == t && e.ScheduledAt.Equal(when) {
				return occurrence{event: e}, nil
			}
		}
		e, err := s.createEvent(a, t, when, nil)
		if err != nil {
			return occurrence{}, err
		}
		return occurrence{event: e, created: true}, nil
	}

	occ, err := unwrap(withTelemetry(s, ctx, "CreateNextOccurrence", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[occurrence, error], error) {
		return withArena(s, ctx, arenaID, next)
	}))
	if err != nil {
		return nil, err
	}
	if occ.created {
		s.eventCreated(ctx, occ.event)
	}
	info := newEventInfo(occ.event)
	return &info, nil
}

// GetEvent returns a summary of one event.
func (s *ArenaService) GetEvent(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID) (*EventInfo, error) {
	getTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*EventInfo, error], error) {
		fail := func(err error) (results.OperationResult[*EventInfo, error], error) {
			if IsDomainFailure(err) {
				return results.FailureResult[*EventInfo, error](err), nil
			}
			return results.OperationResult[*EventInfo, error]{}, err
		}
		a, err := s.loadArena(ctx, db, arenaID)
		if err != nil {
			return fail(err)
		}
		e, err := findEvent(a, eventID)
		if err != nil {
			return fail(err)
		}
		info := newEventInfo(e)
		return results.SuccessResult[*EventInfo, error](&info), nil
	}

	return unwrap(withTelemetry(s, ctx, "GetEvent", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[*EventInfo, error], error) {
		return runInTx(s, ctx, getTx)
	}))
}

// ApplyTransition runs a lifecycle transition and the work that goes with
// entering the new state. A transition that does not apply is reported with
// Applied false and changes nothing.
func (s *ArenaService) ApplyTransition(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, t arenadomain.Transition, reason string) (*TransitionResult, error) {
	apply := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (transitionOutput, error) {
		e, err := findEvent(a, eventID)
		if err != nil {
			return transitionOutput{}, err
		}
		from := e.State()
		applied := e.Apply(ctx, t, reason)
		s.metrics.RecordTransition(ctx, string(t), applied)

		out := transitionOutput{event: e}
		if applied {
			if out.outcome, err = s.enterState(ctx, db, e, from); err != nil {
				return transitionOutput{}, err
			}
			out.changed = &arenaevents.EventStateChangedPayloadV1{
				ArenaID:    int64(a.ID),
				EventID:    int64(e.ID),
				Transition: string(t),
				From:       from.String(),
				To:         e.State().String(),
				Reason:     reason,
				OccurredAt: s.clock.Now(),
			}
		}
		out.result = &TransitionResult{Applied: applied, From: from.String(), Event: newEventInfo(e)}
		return out, nil
	}

	out, err := unwrap(withTelemetry(s, ctx, "ApplyTransition", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[transitionOutput, error], error) {
		return withArena(s, ctx, arenaID, apply)
	}))
	if err != nil {
		return nil, err
	}
	if out.changed != nil {
		s.publish(ctx, arenaevents.EventStateChangedV1, out.changed)
		s.schedule(ctx, out.event)
	}
	if out.outcome != nil {
		s.publish(ctx, arenaevents.EventOutcomeRecordedV1, out.outcome)
	}
	return out.result, nil
}

// enterState does the work owed for every state e crossed since from: NPC
// auto-fill at Staged, fees and intros at Live, outcome and victory fees at
// Resolving.
func (s *ArenaService) enterState(ctx context.Context, db bun.IDB, e *arenadomain.Event, from arenadomain.EventState) (*arenaevents.EventOutcomeRecordedPayloadV1, error) {
	to := e.State()
	if to == arenadomain.StateAborted {
		return nil, nil
	}
	crossed := func(st arenadomain.EventState) bool { return from < st && to >= st }
	log := s.logger.With(
		attr.ExtractCorrelationID(ctx),
		attr.Int64("arena_id", int64(e.Arena().ID)),
		attr.Int64("event_id", int64(e.ID)),
	)

	if crossed(arenadomain.StateStaged) {
		added, err := e.AutoFillNpcs(ctx, s.repo.EventStore(db))
		switch {
		case errors.Is(err, arenadomain.ErrCharacterRegistryMissing):
			log.WarnContext(ctx, "Skipping NPC auto-fill", attr.Error(err))
		case err != nil:
			return nil, fmt.Errorf("failed to auto-fill NPCs: %w", err)
		case len(added) > 0:
			log.InfoContext(ctx, "NPCs auto-filled", attr.Int("count", len(added)))
		}
	}

	if crossed(arenadomain.StateLive) {
		if ok, why := e.Arena().EnsureFunds(ctx, e.AppearanceFeesDue()); !ok {
			log.WarnContext(ctx, "Skipping appearance fees", attr.String("reason", why))
		} else if paid, err := e.ChargeAppearanceFees(ctx); err != nil {
			log.WarnContext(ctx, "Failed to charge appearance fees", attr.Error(err))
		} else if paid.IsPositive() {
			s.metrics.RecordFundsMovement(ctx, "appearance_fee", paid.Neg().InexactFloat64())
		}
		if err := e.RunIntro(ctx); err != nil {
			log.WarnContext(ctx, "Intro program failed", attr.Error(err))
		}
	}

	if crossed(arenadomain.StateResolving) && e.Outcome() == nil {
		outcome, winners := e.DetermineOutcome(ctx)
		e.RecordOutcome(outcome, winners)
		return s.settle(ctx, e), nil
	}
	return nil, nil
}

// RecordOutcome stores an outcome decided outside the event's own programs
// and pays the victory fees for it.
func (s *ArenaService) RecordOutcome(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, outcome arenadomain.Outcome, winners []int) (*EventInfo, error) {
	type recorded struct {
		info    EventInfo
		payload *arenaevents.EventOutcomeRecordedPayloadV1
	}
	record := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (recorded, error) {
		if outcome == arenadomain.OutcomeAborted {
			return recorded{}, fmt.Errorf("%w: use the abort transition", ErrInvalidOutcome)
		}
		e, err := findEvent(a, eventID)
		if err != nil {
			return recorded{}, err
		}
		if e.Outcome() != nil || !e.RecordOutcome(outcome, winners) {
			return recorded{}, fmt.Errorf("event %d: %w", eventID, ErrOutcomeRecorded)
		}
		payload := s.settle(ctx, e)
		return recorded{info: newEventInfo(e), payload: payload}, nil
	}

	out, err := unwrap(withTelemetry(s, ctx, "RecordOutcome", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[recorded, error], error) {
		return withArena(s, ctx, arenaID, record)
	}))
	if err != nil {
		return nil, err
	}
	s.publish(ctx, arenaevents.EventOutcomeRecordedV1, out.payload)
	return &out.info, nil
}

// ArchiveEvent drops a finished event from the arena's live list. It
// reports false for events that have not finished.
func (s *ArenaService) ArchiveEvent(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID) (bool, error) {
	archive := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (bool, error) {
		e, err := findEvent(a, eventID)
		if err != nil {
			return false, err
		}
		return a.ArchiveEvent(e), nil
	}

	return unwrap(withTelemetry(s, ctx, "ArchiveEvent", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return withArena(s, ctx, arenaID, archive)
	}))
}

func (s *ArenaService) createEvent(a *arenadomain.Arena, t *arenadomain.EventType, when time.Time, reservations []Reservation) (*arenadomain.Event, error) {
	if ok, reason := a.IsReadyToHost(t); !ok {
		return nil, fmt.Errorf("%w: %s", ErrArenaNotReady, reason)
	}
	now := s.clock.Now()
	pending := make([]arenadomain.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.CharacterID == nil && r.ClanID == nil {
			return nil, ErrReservationTarget
		}
		pending = append(pending, arenadomain.Reservation{
			SideIndex:   r.SideIndex,
			CharacterID: r.CharacterID,
			ClanID:      r.ClanID,
			ExpiresAt:   now.Add(s.reservationTTL(r.TTL)),
		})
	}
	return a.CreateEvent(t, when, pending)
}

func (s *ArenaService) reservationTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl > 0:
		return ttl
	case s.cfg.ReservationTTL > 0:
		return s.cfg.ReservationTTL
	}
	return defaultReservationTTL
}

// settle pays victory fees for the recorded outcome and builds the
// notification describing it.
func (s *ArenaService) settle(ctx context.Context, e *arenadomain.Event) *arenaevents.EventOutcomeRecordedPayloadV1 {
	paid, err := e.PayVictoryFees(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to pay victory fees",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("event_id", int64(e.ID)),
			attr.Error(err),
		)
		paid = decimal.Zero
	}
	payload := &arenaevents.EventOutcomeRecordedPayloadV1{
		ArenaID:      int64(e.Arena().ID),
		EventID:      int64(e.ID),
		WinningSides: e.WinningSides(),
	}
	if o := e.Outcome(); o != nil {
		payload.Outcome = o.String()
	}
	if paid.IsPositive() {
		s.metrics.RecordFundsMovement(ctx, "victory_fee", paid.Neg().InexactFloat64())
		payload.VictoryFees = paid.String()
	}
	return payload
}

// eventCreated announces a committed event and hands it to the scheduler.
func (s *ArenaService) eventCreated(ctx context.Context, e *arenadomain.Event) {
	payload := &arenaevents.EventCreatedPayloadV1{
		ArenaID:             int64(e.Arena().ID),
		EventID:             int64(e.ID),
		ScheduledAt:         e.ScheduledAt,
		RegistrationOpensAt: e.RegistrationOpensAt(),
	}
	if t := e.EventType(); t != nil {
		payload.EventTypeID = int64(t.ID)
		payload.EventType = t.Name
	}
	s.publish(ctx, arenaevents.EventCreatedV1, payload)
	s.schedule(ctx, e)
}

func findEvent(a *arenadomain.Arena, id arenadomain.EventID) (*arenadomain.Event, error) {
	if e := a.Event(id); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("event %s: %w", strconv.FormatInt(int64(id), 10), arenadomain.ErrEventNotFound)
}
