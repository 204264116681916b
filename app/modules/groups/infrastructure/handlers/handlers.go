package groupshandlers

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	groupsevents "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/events"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/handlerwrapper"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability/attr"
)

// GroupsHandlers implements the Handlers interface.
type GroupsHandlers struct {
	service groupsservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewGroupsHandlers creates a new GroupsHandlers instance.
func NewGroupsHandlers(
	service groupsservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &GroupsHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleGenerateRequested generates the round and announces the outcome.
// Domain failures are published, infrastructure errors are returned so the
// message is redelivered.
func (h *GroupsHandlers) HandleGenerateRequested(ctx context.Context, payload *groupsevents.GenerateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "GroupsHandlers.HandleGenerateRequested")
	defer span.End()

	h.logger.InfoContext(ctx, "Generation requested",
		attr.ExtractCorrelationID(ctx),
		attr.String("competition_id", payload.CompetitionID),
		attr.String("round_code", payload.RoundCode),
		attr.String("requested_by", payload.RequestedBy),
	)

	if payload.CompetitionID == "" || payload.RoundCode == "" {
		h.logger.WarnContext(ctx, "Ignoring generation request without competition or round",
			attr.ExtractCorrelationID(ctx),
		)
		return nil, nil
	}

	out, err := h.service.GenerateAssignments(ctx, groupsservice.GenerateRequest{
		CompetitionID:   payload.CompetitionID,
		RoundCode:       payload.RoundCode,
		Options:         payload.Options,
		ExpectedVersion: payload.ExpectedVersion,
		Trigger:         groupsservice.TriggerEvent,
	})
	if err != nil {
		if groupsservice.IsFailure(err) {
			h.logger.WarnContext(ctx, "Generation request rejected",
				attr.ExtractCorrelationID(ctx),
				attr.String("competition_id", payload.CompetitionID),
				attr.Error(err),
			)
			return []handlerwrapper.Result{{
				Topic: groupsevents.GenerationFailedV1,
				Payload: &groupsevents.GenerationFailedPayloadV1{
					CompetitionID: payload.CompetitionID,
					RoundCode:     payload.RoundCode,
					Reason:        err.Error(),
				},
			}}, nil
		}
		return nil, err
	}

	return []handlerwrapper.Result{{
		Topic: groupsevents.GeneratedV1,
		Payload: &groupsevents.GeneratedPayloadV1{
			RunID:         out.RunID,
			CompetitionID: out.CompetitionID,
			RoundCode:     out.RoundCode,
			Version:       out.Version,
			Stats:         out.Stats,
			Reports:       out.Reports,
		},
	}}, nil
}

// HandleMaterializeRequested creates the round's groups and announces the
// outcome.
func (h *GroupsHandlers) HandleMaterializeRequested(ctx context.Context, payload *groupsevents.MaterializeRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "GroupsHandlers.HandleMaterializeRequested")
	defer span.End()

	h.logger.InfoContext(ctx, "Group materialization requested",
		attr.ExtractCorrelationID(ctx),
		attr.String("competition_id", payload.CompetitionID),
		attr.String("round_code", payload.RoundCode),
	)

	out, err := h.service.MaterializeGroups(ctx, payload.CompetitionID, payload.RoundCode)
	if err != nil {
		if groupsservice.IsFailure(err) {
			return []handlerwrapper.Result{{
				Topic: groupsevents.MaterializeFailedV1,
				Payload: &groupsevents.MaterializeFailedPayloadV1{
					CompetitionID: payload.CompetitionID,
					RoundCode:     payload.RoundCode,
					Reason:        err.Error(),
				},
			}}, nil
		}
		return nil, err
	}

	var ids []int
	for _, m := range out.Groups {
		for _, g := range m.Groups {
			ids = append(ids, g.ID)
		}
	}
	return []handlerwrapper.Result{{
		Topic: groupsevents.MaterializedV1,
		Payload: &groupsevents.MaterializedPayloadV1{
			CompetitionID: out.CompetitionID,
			RoundCode:     out.RoundCode,
			Version:       out.Version,
			GroupIDs:      ids,
		},
	}}, nil
}
