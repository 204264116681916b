package groupsqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability/attr"
)

const component = "river"

// Service schedules background generations with River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics observability.GroupsMetrics
}

// NewService connects a pgx pool to dsn and builds a River client whose
// groups queue runs at most maxWorkers jobs at once.
func NewService(
	ctx context.Context,
	dsn string,
	maxWorkers int,
	service groupsservice.Service,
	publisher message.Publisher,
	logger *slog.Logger,
	metrics observability.GroupsMetrics,
) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_groups_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", component)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if maxWorkers < 1 {
		maxWorkers = 1
	}
	workers := river.NewWorkers()
	river.AddWorker(workers, NewGenerateAssignmentsWorker(service, publisher, ctxLogger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
		Logger:  ctxLogger,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", component)
	metrics.RecordOperationDuration(ctx, "initialize_service", component, time.Since(start))
	ctxLogger.Info("Groups queue service initialized")

	return &Service{client: client, pool: pool, logger: ctxLogger, metrics: metrics}, nil
}

// Start starts working the groups queue.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting groups queue service")
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", component)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	return nil
}

// Stop waits for running jobs to finish and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping groups queue service")
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "stop_service", component)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	return nil
}

// EnqueueGeneration queues req and returns the job id. A pending job for the
// same arguments is returned instead of a duplicate.
func (s *Service) EnqueueGeneration(ctx context.Context, req groupsservice.GenerateRequest) (int64, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_generation", component)

	result, err := s.client.Insert(ctx, GenerateAssignmentsJob{
		CompetitionID:   req.CompetitionID,
		RoundCode:       req.RoundCode,
		Options:         req.Options,
		ExpectedVersion: req.ExpectedVersion,
		CorrelationID:   attr.CorrelationID(ctx),
	}, nil)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "enqueue_generation", component)
		return 0, fmt.Errorf("failed to enqueue generation: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_generation", component)
	s.metrics.RecordOperationDuration(ctx, "enqueue_generation", component, time.Since(start))
	s.logger.InfoContext(ctx, "Generation enqueued",
		attr.String("competition_id", req.CompetitionID),
		attr.String("round_code", req.RoundCode),
		slog.Int64("job_id", result.Job.ID),
		slog.Bool("duplicate", result.UniqueSkippedAsDuplicate),
	)
	return result.Job.ID, nil
}

// HealthCheck pings the queue database.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
