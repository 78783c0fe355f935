package arena

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/arena-engine/app/eventbus"
	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenabuilder "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/builder"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenahandlers "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/handlers"
	arenametrics "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/metrics"
	arenaqueue "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/queue"
	arenadb "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories"
	arenaroster "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/roster"
	arenarouter "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/router"
	arenascript "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/scripting"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// recorderTick is how often the in-process scheduler looks for due work.
const recorderTick = time.Second

// Module represents the arena module.
type Module struct {
	ArenaService *arenaservice.ArenaService
	ArenaRouter  *arenarouter.ArenaRouter
	Builder      *arenabuilder.Builder

	queue    arenaqueue.QueueService
	recorder *arenaqueue.Recorder

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// Deps are the shared resources the module is built on.
type Deps struct {
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Registry   *prometheus.Registry
	EventBus   eventbus.EventBus
	Router     *message.Router
	DB         *bun.DB
}

// NewArenaModule creates and initializes a new arena module.
func NewArenaModule(ctx context.Context, cfg *config.Config, deps Deps, routerCtx context.Context) (*Module, error) {
	logger := deps.Logger
	logger.InfoContext(ctx, "arena.NewArenaModule initializing")

	// 1. Initialize Repository
	repo := arenadb.NewRepository(deps.DB)

	// 2. Initialize Metrics
	var metrics arenametrics.ArenaMetrics = arenametrics.NewNoop()
	if deps.Registry != nil {
		metrics = arenametrics.NewPrometheus(deps.Registry)
	}

	// 3. Initialize Service with its collaborators
	service := arenaservice.NewArenaService(repo, logger, metrics, deps.Tracer, deps.DB,
		arenaservice.WithConfig(arenaservice.Config{
			DefaultCurrency: cfg.Arena.DefaultCurrency,
			ReservationTTL:  cfg.Arena.ReservationTTL,
		}),
		arenaservice.WithScripts(arenascript.NewEngine(logger)),
		arenaservice.WithRoster(arenaroster.NewRoster(deps.DB)),
		arenaservice.WithAccounts(arenaeconomy.NewAccounts(deps.DB)),
		arenaservice.WithPublisher(deps.EventBus),
	)

	m := &Module{ArenaService: service, logger: logger}

	// 4. Initialize the scheduler. River needs Postgres; without it events
	// are driven by the in-process recorder.
	if cfg.Postgres.DSN != "" {
		q, err := arenaqueue.NewServiceWithOptions(ctx, deps.DB, logger, cfg.Postgres.DSN, metrics, service,
			&arenaqueue.ServiceOptions{MaxWorkers: cfg.Arena.MaxWorkers, Grace: cfg.Arena.Grace})
		if err != nil {
			return nil, fmt.Errorf("failed to create arena queue: %w", err)
		}
		m.queue = q
		service.UseScheduler(q)
	} else {
		m.recorder = arenaqueue.NewRecorder(service, cfg.Arena.Grace)
		service.UseScheduler(m.recorder)
	}

	// 5. Re-register work that was pending before a restart
	if err := service.ReconcileSchedules(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to reconcile arena schedules", attr.Error(err))
	}

	// 6. Initialize Builder and Handlers
	m.Builder = arenabuilder.NewBuilder(service, logger, builderRate(cfg.Arena.RatePerMinute))
	handlers := arenahandlers.NewArenaHandlers(service, m.Builder, logger, deps.Tracer)

	// 7. Initialize Router and configure it with handlers
	m.ArenaRouter = arenarouter.NewArenaRouter(logger, deps.Router, deps.EventBus, deps.EventBus, deps.Tracer, deps.Registry)
	if err := m.ArenaRouter.Configure(routerCtx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure arena router: %w", err)
	}

	return m, nil
}

func builderRate(perMinute int) arenabuilder.Option {
	if perMinute <= 0 {
		return arenabuilder.WithRateLimit(rate.Inf, 1)
	}
	return arenabuilder.WithRateLimit(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting arena module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.queue != nil {
		if err := m.queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start arena queue", attr.Error(err))
			return
		}
		<-ctx.Done()
		m.logger.InfoContext(ctx, "Arena module goroutine stopped")
		return
	}

	ticker := time.NewTicker(recorderTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "Arena module goroutine stopped")
			return
		case now := <-ticker.C:
			if _, err := m.recorder.RunDue(ctx, now); err != nil {
				m.logger.WarnContext(ctx, "Scheduled arena work failed", attr.Error(err))
			}
		}
	}
}

// HealthCheck reports whether the scheduler backend is reachable.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.queue == nil {
		return nil
	}
	return m.queue.HealthCheck(ctx)
}

// Close shuts down the arena module.
func (m *Module) Close() error {
	m.logger.Info("Stopping arena module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.queue.Stop(ctx); err != nil {
			m.logger.Error("Error stopping arena queue", attr.Error(err))
		}
	}

	if m.ArenaRouter != nil {
		if err := m.ArenaRouter.Close(); err != nil {
			m.logger.Error("Error closing ArenaRouter from module", attr.Error(err))
			return fmt.Errorf("error closing ArenaRouter: %w", err)
		}
	}

	m.logger.Info("Arena module stopped")
	return nil
}
