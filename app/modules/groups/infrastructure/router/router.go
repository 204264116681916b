package groupsrouter

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	groupsevents "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/events"
	groupshandlers "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/handlers"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/eventbus"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/handlerwrapper"
)

// GroupsRouter handles Watermill handler registration for groups events.
type GroupsRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	tracer     trace.Tracer

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewGroupsRouter creates a new GroupsRouter. Router metrics are registered on
// registry when it is non-nil.
func NewGroupsRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	tracer trace.Tracer,
	registry prometheus.Registerer,
) *GroupsRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		b := metrics.NewPrometheusMetricsBuilder(registry, "groups", "router")
		metricsBuilder = &b
	}

	return &GroupsRouter{
		logger:         logger,
		router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the router with handlers.
func (r *GroupsRouter) Configure(_ context.Context, handlers groupshandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.router)
	}
	r.registerHandlers(handlers)
	return nil
}

// handlerDeps bundles dependencies for handler registration.
type handlerDeps struct {
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	logger     *slog.Logger
	tracer     trace.Tracer
}

// registerHandlers wires topics to handler methods.
func (r *GroupsRouter) registerHandlers(handlers groupshandlers.Handlers) {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	r.logger.Info("Registering groups module handlers",
		slog.String("generate_subject", groupsevents.GenerateRequestedV1),
		slog.String("materialize_subject", groupsevents.MaterializeRequestedV1),
	)

	registerHandler(deps, groupsevents.GenerateRequestedV1, handlers.HandleGenerateRequested)
	registerHandler(deps, groupsevents.MaterializeRequestedV1, handlers.HandleMaterializeRequested)

	r.logger.Info("Groups module handlers registered successfully")
}

// registerHandler is a generic function for type-safe Watermill handler registration.
// The publish topic is empty because every result names its own topic.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "groups." + topic

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
func (r *GroupsRouter) Close() error {
	return r.router.Close()
}
