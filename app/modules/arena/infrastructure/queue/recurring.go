package arenaqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenametrics "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/metrics"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/go-co-op/gocron/v2"
)

const recurringKind = "event_recurrence"

// Recurring keeps one gocron job per auto-scheduled event type. Each firing
// asks the service for the type's next occurrence, which is idempotent, so
// the interval only bounds how far ahead events appear.
type Recurring struct {
	sched   gocron.Scheduler
	service TransitionApplier
	logger  *slog.Logger
	metrics arenametrics.ArenaMetrics

	mu     sync.RWMutex
	runCtx context.Context
}

func NewRecurring(service TransitionApplier, logger *slog.Logger, metrics arenametrics.ArenaMetrics) (*Recurring, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring scheduler: %w", err)
	}
	return &Recurring{
		sched:   sched,
		service: service,
		logger:  logger.With(attr.String("component", "recurring_scheduler")),
		metrics: metrics,
		runCtx:  context.Background(),
	}, nil
}

// Sync replaces the recurring job of t. A type that is no longer
// auto-scheduled, or no longer belongs to an arena, only loses its job.
func (r *Recurring) Sync(ctx context.Context, t *arenadomain.EventType) error {
	tag := recurringTag(t.ID)
	r.sched.RemoveByTags(tag)

	a := t.Arena()
	if a == nil || !t.AutoScheduleEnabled() {
		r.logger.DebugContext(ctx, "Recurring job removed", attr.String("tag", tag))
		return nil
	}
	interval, _ := t.AutoSchedule()
	arenaID, typeID := a.ID, t.ID
	_, err := r.sched.NewJob(
		gocron.DurationJob(*interval),
		gocron.NewTask(func() { r.fire(arenaID, typeID) }),
		gocron.WithTags(tag),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register recurring job %s: %w", tag, err)
	}
	r.logger.InfoContext(ctx, "Recurring job registered",
		attr.String("tag", tag),
		attr.Duration("interval", *interval),
	)
	return nil
}

func (r *Recurring) fire(arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID) {
	r.mu.RLock()
	ctx := r.runCtx
	r.mu.RUnlock()

	ctxLogger := r.logger.With(
		attr.Int64("arena_id", int64(arenaID)),
		attr.Int64("event_type_id", int64(typeID)),
	)
	e, err := r.service.CreateNextOccurrence(ctx, arenaID, typeID)
	switch {
	case err == nil:
		ctxLogger.Debug("Next occurrence ensured", attr.Int64("event_id", int64(e.ID)))
		r.metrics.RecordSchedulerJob(ctx, recurringKind, "completed")
	case errors.Is(err, arenaservice.ErrAutoScheduleOff),
		errors.Is(err, arenaservice.ErrEventTypeNotFound),
		errors.Is(err, arenaservice.ErrArenaNotFound):
		// The type changed after the job fired; its next sync removes the job.
		ctxLogger.Info("Skipping recurrence", attr.Error(err))
		r.metrics.RecordSchedulerJob(ctx, recurringKind, "cancelled")
	default:
		ctxLogger.Error("Failed to create next occurrence", attr.Error(err))
		r.metrics.RecordSchedulerJob(ctx, recurringKind, "failed")
	}
}

// Tags lists the registered recurring jobs.
func (r *Recurring) Tags() []string {
	var tags []string
	for _, j := range r.sched.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	sort.Strings(tags)
	return tags
}

// Start runs registered jobs; firings use ctx until Stop.
func (r *Recurring) Start(ctx context.Context) {
	r.mu.Lock()
	r.runCtx = ctx
	r.mu.Unlock()
	r.sched.Start()
}

func (r *Recurring) Stop() error {
	if err := r.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop recurring scheduler: %w", err)
	}
	return nil
}
