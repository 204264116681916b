package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wmmiddleware "github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups"
	"github.com/Black-And-White-Club/delegate-dashboard/config"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/eventbus"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability/attr"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs, err := observability.Init(ctx, config.ToObsConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	logger := obs.Logger
	logger.Info("Starting delegate-dashboard")

	// Database
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to connect to database", attr.Error(err))
		os.Exit(1)
	}

	// Event bus
	wmLogger := watermill.NewSlogLogger(logger)
	var bus eventbus.EventBus
	if cfg.NATS.URL != "" {
		bus, err = eventbus.NewJetStreamEventBus(ctx, cfg.NATS.URL, "delegate-dashboard", wmLogger, "groups")
		if err != nil {
			logger.Error("Failed to create event bus", attr.Error(err))
			os.Exit(1)
		}
	} else {
		logger.Warn("NATS_URL not set, using in-memory event bus")
		bus = eventbus.NewMemoryEventBus(wmLogger)
	}
	defer bus.Close()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: config.ShutdownTimeout}, wmLogger)
	if err != nil {
		logger.Error("Failed to create message router", attr.Error(err))
		os.Exit(1)
	}
	router.AddMiddleware(
		wmmiddleware.CorrelationID,
		wmmiddleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
		wmmiddleware.Recoverer,
	)

	// HTTP
	httpRouter := chi.NewRouter()
	httpRouter.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	httpRouter.Handle("/metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))

	module, err := groups.NewGroupsModule(ctx, cfg, obs, bus, router, ctx, db, httpRouter)
	if err != nil {
		logger.Error("Failed to initialize groups module", attr.Error(err))
		os.Exit(1)
	}

	httpRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := module.HealthCheck(r.Context()); err != nil {
			http.Error(w, "job queue unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go module.Run(ctx, &wg)

	go func() {
		if err := router.Run(ctx); err != nil {
			logger.Error("Message router stopped", attr.Error(err))
			cancel()
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           httpRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", attr.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", attr.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down delegate-dashboard")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", attr.Error(err))
	}
	if err := module.Close(shutdownCtx); err != nil {
		logger.Error("Groups module shutdown failed", attr.Error(err))
	}
	wg.Wait()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("Observability shutdown failed", attr.Error(err))
	}
	logger.Info("Shutdown complete")
}
