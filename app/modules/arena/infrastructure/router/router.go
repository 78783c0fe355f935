package arenarouter

import (
	"context"
	"log/slog"

	"github.com/Black-And-White-Club/arena-engine/app/eventbus"
	arenahandlers "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/handlers"
	arenaevents "github.com/Black-And-White-Club/arena-engine/app/shared/events/arena"
	"github.com/Black-And-White-Club/arena-engine/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// ArenaRouter handles Watermill handler registration for arena events.
type ArenaRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	tracer     trace.Tracer

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewArenaRouter creates a new ArenaRouter.
func NewArenaRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	tracer trace.Tracer,
	registry *prometheus.Registry,
) *ArenaRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		b := metrics.NewPrometheusMetricsBuilder(registry, "arena", "")
		metricsBuilder = &b
	}

	return &ArenaRouter{
		logger:         logger,
		router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the router with handlers. Router metrics are added once
// per router when a registry was given.
func (r *ArenaRouter) Configure(_ context.Context, handlers arenahandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.router)
	}
	r.registerHandlers(handlers)
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

func (r *ArenaRouter) registerHandlers(handlers arenahandlers.Handlers) {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	r.logger.Info("Registering arena module handlers",
		slog.String("signup_subject", arenaevents.SignupRequestedV1),
		slog.String("withdraw_subject", arenaevents.WithdrawRequestedV1),
		slog.String("builder_subject", arenaevents.BuilderCommandV1),
	)

	registerHandler(deps, arenaevents.SignupRequestedV1, handlers.HandleSignupRequested)
	registerHandler(deps, arenaevents.WithdrawRequestedV1, handlers.HandleWithdrawRequested)
	registerHandler(deps, arenaevents.BuilderCommandV1, handlers.HandleBuilderCommand)

	r.logger.Info("Arena module handlers registered successfully")
}

// registerHandler adds one typed handler. Replies are published with an
// empty topic so the bus routes them on their "topic" metadata.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "arena." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			handler,
		),
	)
}

// Close shuts down the router.
func (r *ArenaRouter) Close() error {
	return r.router.Close()
}
