// Package app wires configuration, storage, the event bus and the arena
// module into a running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Black-And-White-Club/arena-engine/app/eventbus"
	"github.com/Black-And-White-Club/arena-engine/app/modules/arena"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/config"
	"github.com/Black-And-White-Club/arena-engine/db/bundb"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "arena-engine"

// App holds the process-wide resources.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *bun.DB
	EventBus    eventbus.EventBus
	Router      *message.Router
	Registry    *prometheus.Registry
	ArenaModule *arena.Module

	tracerProvider *sdktrace.TracerProvider
	server         *Server
	wg             sync.WaitGroup
}

// NewLogger builds the JSON logger at the configured level.
func NewLogger(cfg config.ObservabilityConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(attr.String("service", serviceName), attr.String("environment", cfg.Environment))
}

// Initialize opens every dependency and builds the arena module. On error
// whatever was opened is closed again.
func (a *App) Initialize(ctx context.Context, cfg *config.Config) (err error) {
	a.Config = cfg
	if a.Logger == nil {
		a.Logger = NewLogger(cfg.Observability)
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", cfg.Observability.Environment),
	)
	a.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	tracer := a.tracerProvider.Tracer(serviceName)

	a.DB, err = bundb.Open(ctx, cfg.Postgres, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.NATS.URL == "" {
		a.Logger.WarnContext(ctx, "No NATS URL configured, using in-process event bus")
		a.EventBus = eventbus.NewInMemory(a.Logger)
	} else {
		a.EventBus, err = eventbus.NewEventBus(ctx, cfg.NATS.URL, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
	}
	if err := a.EventBus.CreateStream(ctx, eventbus.StreamName, eventbus.StreamSubjects); err != nil {
		return fmt.Errorf("failed to create %s stream: %w", eventbus.StreamName, err)
	}

	a.Router, err = message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(a.Logger))
	if err != nil {
		return fmt.Errorf("failed to create Watermill router: %w", err)
	}
	a.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Multiplier:      2,
			Logger:          watermill.NewSlogLogger(a.Logger),
		}.Middleware,
		middleware.Recoverer,
	)

	a.ArenaModule, err = arena.NewArenaModule(ctx, cfg, arena.Deps{
		Logger:   a.Logger,
		Tracer:   tracer,
		Registry: a.Registry,
		EventBus: a.EventBus,
		Router:   a.Router,
		DB:       a.DB,
	}, ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize arena module: %w", err)
	}

	a.server = NewServer(cfg.HTTP.Address, a.Registry, a.healthCheck, a.Logger)
	return nil
}

func (a *App) healthCheck(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := a.ArenaModule.HealthCheck(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// Run starts the module, the HTTP server and the router, and blocks until
// ctx is cancelled or the router stops.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go a.ArenaModule.Run(ctx, &a.wg)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Run(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "HTTP server failed", attr.Error(err))
		}
	}()

	a.Logger.InfoContext(ctx, "Starting Watermill router")
	if err := a.Router.Run(ctx); err != nil {
		return fmt.Errorf("watermill router stopped: %w", err)
	}
	return nil
}

// Close releases everything Initialize opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	if a.ArenaModule != nil {
		if err := a.ArenaModule.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Router != nil {
		if err := a.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close router: %w", err))
		}
	}
	if a.server != nil {
		if err := a.server.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close http server: %w", err))
		}
	}
	a.wg.Wait()
	if a.EventBus != nil {
		if err := a.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}
