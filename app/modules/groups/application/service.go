package groupsservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	groupsdb "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/repositories"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability/attr"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/results"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif/activitycode"
)

const serviceName = "GroupsService"

// GroupsService implements the Service interface.
type GroupsService struct {
	repo    groupsdb.Repository
	logger  *slog.Logger
	metrics observability.GroupsMetrics
	tracer  trace.Tracer
	db      *bun.DB
	options generators.Options
	stages  []generators.Stage
}

// NewGroupsService creates a new GroupsService. options are the engine
// defaults used when a request does not carry its own.
func NewGroupsService(
	repo groupsdb.Repository,
	logger *slog.Logger,
	metrics observability.GroupsMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	options generators.Options,
) *GroupsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupsService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		options: options,
	}
}

// WithStages replaces the default generator stages.
func (s *GroupsService) WithStages(stages ...generators.Stage) *GroupsService {
	s.stages = stages
	return s
}

func (s *GroupsService) pipeline(opts *generators.Options) *generators.Pipeline {
	options := s.options
	if opts != nil {
		options = *opts
	}
	return generators.NewPipeline(s.logger, options, s.stages...)
}

// loadFailure turns a repository lookup error into a domain failure or an
// infrastructure error.
func loadFailure[S any](id string, err error) (results.OperationResult[S, error], error) {
	if errors.Is(err, groupsdb.ErrNotFound) {
		return results.FailureResult[S, error](fmt.Errorf("%w: %s", ErrCompetitionNotFound, id)), nil
	}
	return results.OperationResult[S, error]{}, fmt.Errorf("failed to get competition: %w", err)
}

// saveFailure does the same for optimistic document writes.
func saveFailure[S any](id string, err error) (results.OperationResult[S, error], error) {
	if errors.Is(err, groupsdb.ErrVersionConflict) {
		return results.FailureResult[S, error](fmt.Errorf("%w: %s", ErrVersionConflict, id)), nil
	}
	return results.OperationResult[S, error]{}, fmt.Errorf("failed to save competition: %w", err)
}

// parseRoundCode accepts round codes only, such as "333-r1".
func parseRoundCode(code string) (activitycode.ActivityCode, error) {
	ac, err := activitycode.Parse(code)
	if err != nil {
		return activitycode.ActivityCode{}, fmt.Errorf("%w: %v", ErrInvalidRoundCode, err)
	}
	if ac.RoundNumber == 0 || ac.GroupNumber != 0 || ac.AttemptNumber != 0 {
		return activitycode.ActivityCode{}, fmt.Errorf("%w: %q is not a round code", ErrInvalidRoundCode, code)
	}
	return ac, nil
}

// findRound returns a pointer into doc, or nil.
func findRound(doc *wcif.Competition, ac activitycode.ActivityCode) *wcif.Round {
	event := doc.EventByID(ac.EventID)
	if event == nil {
		return nil
	}
	id := ac.String()
	for i := range event.Rounds {
		if event.Rounds[i].ID == id {
			return &event.Rounds[i]
		}
	}
	return nil
}

func info(comp *groupsdb.Competition, withDocument bool) *CompetitionInfo {
	out := &CompetitionInfo{ID: comp.ID, Name: comp.Name, Version: comp.Version}
	if withDocument {
		out.Document = comp.Document
	}
	return out
}

// unwrap converts a telemetry-wrapped result into the public return shape.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, nil
	}
	return *result.Success, nil
}

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *GroupsService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *GroupsService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
