package groups

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	groupshandlers "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/handlers"
	groupsqueue "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/queue"
	groupsdb "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/repositories"
	groupsrouter "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/router"
	"github.com/Black-And-White-Club/delegate-dashboard/config"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/eventbus"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/jwt"
)

// Module represents the groups module.
type Module struct {
	GroupsService groupsservice.Service
	GroupsRouter  *groupsrouter.GroupsRouter
	Queue         *groupsqueue.Service

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewGroupsModule creates and initializes the groups module. The HTTP API is
// mounted on httpRouter when it is not nil, and background generation is
// enabled when the config asks for queue workers.
func NewGroupsModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	routerCtx context.Context,
	db *bun.DB,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "groups.NewGroupsModule initializing")

	// 1. Initialize Repository
	repo := groupsdb.NewRepository(db)

	// 2. Initialize Service
	service := groupsservice.NewGroupsService(repo, logger, obs.Metrics, tracer, db, cfg.GeneratorOptions())

	// 3. Initialize Handlers
	handlers := groupshandlers.NewGroupsHandlers(service, logger, tracer)

	// 4. Initialize Router
	groupsRouter := groupsrouter.NewGroupsRouter(logger, router, eventBus, eventBus, tracer, obs.Registry)
	if err := groupsRouter.Configure(routerCtx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure groups router: %w", err)
	}

	// 5. Background queue
	var queue *groupsqueue.Service
	if cfg.Queue.MaxWorkers > 0 && cfg.Postgres.DSN != "" {
		q, err := groupsqueue.NewService(ctx, cfg.Postgres.DSN, cfg.Queue.MaxWorkers, service, eventBus, logger, obs.Metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create groups queue: %w", err)
		}
		queue = q
	}

	// 6. HTTP routes
	if httpRouter != nil {
		var enqueuer groupshandlers.Enqueuer
		if queue != nil {
			enqueuer = queue
		}
		opts := groupshandlers.RouteOptions{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Limiter:        groupshandlers.NewRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst),
			EngineLimiter:  groupshandlers.NewRateLimiter(rate.Limit(cfg.HTTP.EngineRateLimit), cfg.HTTP.EngineRateBurst),
		}
		if cfg.JWT.Secret != "" {
			opts.Tokens = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
		} else {
			logger.WarnContext(ctx, "JWT secret not set, competitions API is unauthenticated")
		}
		groupshandlers.Routes(httpRouter, groupshandlers.NewHTTPHandlers(service, enqueuer, logger), opts)
	}

	return &Module{
		GroupsService: service,
		GroupsRouter:  groupsRouter,
		Queue:         queue,
		logger:        logger,
	}, nil
}

// Run starts the groups module and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting groups module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start groups queue", "error", err)
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Groups module goroutine stopped")
}

// Close shuts down the groups module.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping groups module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.Queue != nil {
		if err := m.Queue.Stop(ctx); err != nil {
			m.logger.Error("Error stopping groups queue", "error", err)
		}
	}

	if m.GroupsRouter != nil {
		if err := m.GroupsRouter.Close(); err != nil {
			m.logger.Error("Error closing GroupsRouter from module", "error", err)
			return fmt.Errorf("error closing GroupsRouter: %w", err)
		}
	}

	m.logger.Info("Groups module stopped")
	return nil
}

// HealthCheck reports whether the background queue can reach its database.
// It is a no-op when the queue is disabled.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.Queue == nil {
		return nil
	}
	return m.Queue.HealthCheck(ctx)
}
