package groupshandlers

import (
	"context"

	groupsevents "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/events"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/handlerwrapper"
)

// Handlers defines the interface for groups event handlers.
type Handlers interface {
	// HandleGenerateRequested generates and stores the assignments of a round.
	HandleGenerateRequested(ctx context.Context, payload *groupsevents.GenerateRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// HandleMaterializeRequested creates the group activities of a round.
	HandleMaterializeRequested(ctx context.Context, payload *groupsevents.MaterializeRequestedPayloadV1) ([]handlerwrapper.Result, error)
}
