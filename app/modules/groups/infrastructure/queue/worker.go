package groupsqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/riverqueue/river"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	groupsevents "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/events"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/handlerwrapper"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability/attr"
)

// GenerateAssignmentsWorker runs queued generations and announces the
// outcome on the event bus.
type GenerateAssignmentsWorker struct {
	river.WorkerDefaults[GenerateAssignmentsJob]

	service   groupsservice.Service
	publisher message.Publisher
	logger    *slog.Logger
}

// NewGenerateAssignmentsWorker creates the worker.
func NewGenerateAssignmentsWorker(service groupsservice.Service, publisher message.Publisher, logger *slog.Logger) *GenerateAssignmentsWorker {
	return &GenerateAssignmentsWorker{service: service, publisher: publisher, logger: logger}
}

// Work generates the round. Domain failures cancel the job, anything else is
// retried by river.
func (w *GenerateAssignmentsWorker) Work(ctx context.Context, job *river.Job[GenerateAssignmentsJob]) error {
	ctx = attr.WithCorrelationID(ctx, job.Args.CorrelationID)
	logger := w.logger.With(
		attr.ExtractCorrelationID(ctx),
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
		attr.String("competition_id", job.Args.CompetitionID),
		attr.String("round_code", job.Args.RoundCode),
	)
	logger.InfoContext(ctx, "Running queued generation")

	out, err := w.service.GenerateAssignments(ctx, groupsservice.GenerateRequest{
		CompetitionID:   job.Args.CompetitionID,
		RoundCode:       job.Args.RoundCode,
		Options:         job.Args.Options,
		ExpectedVersion: job.Args.ExpectedVersion,
		Trigger:         groupsservice.TriggerQueue,
	})
	if err != nil {
		if !groupsservice.IsFailure(err) {
			logger.ErrorContext(ctx, "Queued generation failed, will retry", attr.Error(err))
			return err
		}
		logger.WarnContext(ctx, "Queued generation rejected", attr.Error(err))
		if pubErr := w.publish(ctx, groupsevents.GenerationFailedV1, &groupsevents.GenerationFailedPayloadV1{
			CompetitionID: job.Args.CompetitionID,
			RoundCode:     job.Args.RoundCode,
			Reason:        err.Error(),
		}); pubErr != nil {
			return pubErr
		}
		return river.JobCancel(err)
	}

	return w.publish(ctx, groupsevents.GeneratedV1, &groupsevents.GeneratedPayloadV1{
		RunID:         out.RunID,
		CompetitionID: out.CompetitionID,
		RoundCode:     out.RoundCode,
		Version:       out.Version,
		Stats:         out.Stats,
		Reports:       out.Reports,
	})
}

func (w *GenerateAssignmentsWorker) publish(ctx context.Context, topic string, payload any) error {
	if w.publisher == nil {
		return nil
	}
	msg, err := handlerwrapper.NewMessage(ctx, handlerwrapper.Result{Topic: topic, Payload: payload})
	if err != nil {
		return err
	}
	if err := w.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}
