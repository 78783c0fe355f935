package arenaqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenametrics "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/metrics"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/riverqueue/river"
)

// TransitionApplier is the slice of the arena service the scheduler drives.
type TransitionApplier interface {
	ApplyTransition(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, t arenadomain.Transition, reason string) (*arenaservice.TransitionResult, error)
	CreateNextOccurrence(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID) (*arenaservice.EventInfo, error)
}

var ErrUnknownTransition = errors.New("unknown transition")

// EventTransitionWorker applies due lifecycle transitions.
type EventTransitionWorker struct {
	river.WorkerDefaults[EventTransitionJob]
	service TransitionApplier
	logger  *slog.Logger
	metrics arenametrics.ArenaMetrics
}

func NewEventTransitionWorker(service TransitionApplier, logger *slog.Logger, metrics arenametrics.ArenaMetrics) *EventTransitionWorker {
	return &EventTransitionWorker{service: service, logger: logger, metrics: metrics}
}

func (w *EventTransitionWorker) Work(ctx context.Context, job *river.Job[EventTransitionJob]) error {
	err := apply(ctx, w.service, job.Args)
	kind := job.Args.Kind()
	ctxLogger := w.logger.With(
		attr.Int64("job_id", job.ID),
		attr.Int64("arena_id", job.Args.ArenaID),
		attr.Int64("event_id", job.Args.EventID),
		attr.String("transition", job.Args.Transition),
	)
	switch {
	case err == nil:
		w.metrics.RecordSchedulerJob(ctx, kind, "completed")
		return nil
	case permanent(err):
		ctxLogger.Warn("Dropping transition job", attr.Error(err))
		w.metrics.RecordSchedulerJob(ctx, kind, "cancelled")
		return river.JobCancel(err)
	default:
		ctxLogger.Error("Transition job failed", attr.Int("attempt", job.Attempt), attr.Error(err))
		w.metrics.RecordSchedulerJob(ctx, kind, "failed")
		return err
	}
}

// apply runs one transition job. A transition that is no longer possible
// is a no-op, not an error.
func apply(ctx context.Context, svc TransitionApplier, args EventTransitionJob) error {
	t, ok := arenadomain.ParseTransition(args.Transition)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTransition, args.Transition)
	}
	_, err := svc.ApplyTransition(ctx, arenadomain.ArenaID(args.ArenaID), arenadomain.EventID(args.EventID), t, "")
	return err
}

// permanent reports errors a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, ErrUnknownTransition) ||
		errors.Is(err, arenaservice.ErrArenaNotFound) ||
		errors.Is(err, arenadomain.ErrEventNotFound)
}
