package arenaqueue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenametrics "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/metrics"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
)

const (
	queueName = "arena"
	component = "river"
)

// QueueService is the River-backed scheduler for arena events.
type QueueService interface {
	arenadomain.Scheduler
	// CancelEventJobs cancels every pending transition job of an event
	CancelEventJobs(ctx context.Context, eventID arenadomain.EventID) error
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service schedules event transitions on River and recurring event
// creation on gocron.
type Service struct {
	client    *river.Client[pgx.Tx]
	pool      *pgxpool.Pool
	db        *bun.DB
	recurring *Recurring
	logger    *slog.Logger
	metrics   arenametrics.ArenaMetrics
	grace     time.Duration
}

// ServiceOptions tunes the River client.
type ServiceOptions struct {
	FetchPollInterval *time.Duration
	MaxWorkers        int
	// Grace separates Resolving, Cleanup and Completed.
	Grace time.Duration
}

// NewService creates a new River-based queue service for arena scheduling
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics arenametrics.ArenaMetrics, service TransitionApplier) (*Service, error) {
	return NewServiceWithOptions(ctx, bunDB, logger, dsn, metrics, service, nil)
}

func NewServiceWithOptions(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics arenametrics.ArenaMetrics, service TransitionApplier, opts *ServiceOptions) (*Service, error) {
	if opts == nil {
		opts = &ServiceOptions{}
	}
	ctxLogger := logger.With(
		attr.String("operation", "new_arena_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", component)
	fail := func(msg string, err error) error {
		ctxLogger.Error(msg, attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return fmt.Errorf("%s: %w", msg, err)
	}

	ctxLogger.Info("Initializing arena queue service")

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fail("failed to parse DSN for River", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fail("failed to create pgx pool for River", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fail("failed to ping database for River", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewEventTransitionWorker(service, ctxLogger, metrics))

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 25
	}
	cfg := &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			queueName:          {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	}
	if opts.FetchPollInterval != nil {
		cfg.FetchPollInterval = *opts.FetchPollInterval
	}
	client, err := river.NewClient(riverpgxv5.New(pool), cfg)
	if err != nil {
		pool.Close()
		return nil, fail("failed to create River client", err)
	}

	recurring, err := NewRecurring(service, logger, metrics)
	if err != nil {
		pool.Close()
		return nil, fail("failed to create recurring scheduler", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", component)
	metrics.RecordOperationDuration(ctx, "initialize_service", component, time.Since(start))
	ctxLogger.Info("Arena queue service initialized successfully")

	return &Service{
		client:    client,
		pool:      pool,
		db:        bunDB,
		recurring: recurring,
		logger:    logger.With(attr.String("component", "river_queue")),
		metrics:   metrics,
		grace:     opts.Grace,
	}, nil
}

// Migrate brings the River schema up to date.
func Migrate(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run river migrations: %w", err)
	}
	return nil
}

// Start starts the River client and the recurring scheduler.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", component)
	s.logger.Info("Starting arena queue service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", component)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.recurring.Start(ctx)

	s.metrics.RecordOperationSuccess(ctx, "start_service", component)
	s.metrics.RecordOperationDuration(ctx, "start_service", component, time.Since(start))
	s.logger.Info("Arena queue service started successfully")
	return nil
}

// Stop stops both schedulers and closes the pgx pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", component)
	s.logger.Info("Stopping arena queue service")

	if err := s.recurring.Stop(); err != nil {
		s.logger.Warn("Failed to stop recurring scheduler", attr.Error(err))
	}
	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", component)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()

	s.metrics.RecordOperationSuccess(ctx, "stop_service", component)
	s.metrics.RecordOperationDuration(ctx, "stop_service", component, time.Since(start))
	s.logger.Info("Arena queue service stopped successfully")
	return nil
}

// Schedule queues the next due transition of e. Terminal events lose their
// outstanding jobs instead.
func (s *Service) Schedule(ctx context.Context, e *arenadomain.Event) error {
	if e.State().IsTerminal() {
		return s.CancelEventJobs(ctx, e.ID)
	}
	step, ok := Plan(e, s.grace)
	if !ok {
		return nil
	}

	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_transition", component)
	ctxLogger := s.logger.With(
		attr.String("operation", "schedule_transition"),
		attr.Int64("event_id", int64(e.ID)),
		attr.String("transition", string(step.Transition)),
		attr.Time("due_at", step.At),
	)

	res, err := s.client.Insert(ctx, newJob(e, step.Transition), &river.InsertOpts{
		Queue:       queueName,
		ScheduledAt: step.At,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to schedule transition job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_transition", component)
		return fmt.Errorf("failed to schedule %s for event %d: %w", step.Transition, e.ID, err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_transition", component)
	s.metrics.RecordOperationDuration(ctx, "schedule_transition", component, time.Since(start))
	ctxLogger.Info("Transition job scheduled",
		attr.Int64("job_id", res.Job.ID),
		attr.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return nil
}

func (s *Service) SyncRecurringSchedule(ctx context.Context, t *arenadomain.EventType) error {
	return s.recurring.Sync(ctx, t)
}

// CancelEventJobs cancels all pending transition jobs for an event
func (s *Service) CancelEventJobs(ctx context.Context, eventID arenadomain.EventID) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "cancel_event_jobs", component)
	ctxLogger := s.logger.With(
		attr.Int64("event_id", int64(eventID)),
		attr.String("operation", "cancel_event_jobs"),
	)

	type riverJobRow struct {
		ID   int64  `bun:"id"`
		Kind string `bun:"kind"`
	}
	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind").
		Where("kind = ?", EventTransitionJob{}.Kind()).
		Where("state IN (?, ?, ?)", "available", "scheduled", "retryable").
		Where("args->>'event_id' = ?", strconv.FormatInt(int64(eventID), 10)).
		Scan(ctx, &jobs)
	if err != nil {
		ctxLogger.Error("Failed to query jobs for cancellation", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "cancel_event_jobs", component)
		return fmt.Errorf("failed to query jobs for cancellation: %w", err)
	}

	cancelled := 0
	for _, job := range jobs {
		if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
			ctxLogger.Warn("Failed to cancel job", attr.Int64("job_id", job.ID), attr.Error(err))
			continue
		}
		cancelled++
	}

	if cancelled == len(jobs) {
		s.metrics.RecordOperationSuccess(ctx, "cancel_event_jobs", component)
	} else {
		s.metrics.RecordOperationFailure(ctx, "cancel_event_jobs", component)
	}
	s.metrics.RecordOperationDuration(ctx, "cancel_event_jobs", component, time.Since(start))
	ctxLogger.Info("Jobs cancellation completed",
		attr.Int("total_found", len(jobs)),
		attr.Int("cancelled_count", cancelled),
	)
	return nil
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "health_check", component)
	if s.client == nil {
		s.metrics.RecordOperationFailure(ctx, "health_check", component)
		return fmt.Errorf("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Where("queue = ?", queueName).
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "health_check", component)
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "health_check", component)
	s.logger.Debug("Queue service health check passed",
		attr.Int("total_jobs", count),
		attr.Int("recurring_jobs", len(s.recurring.Tags())),
	)
	return nil
}
