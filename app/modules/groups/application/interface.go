package groupsservice

import (
	"context"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// Service is the group management contract used by handlers, jobs and CLIs.
type Service interface {
	ImportCompetition(ctx context.Context, doc *wcif.Competition) (*CompetitionInfo, error)
	GetCompetition(ctx context.Context, id string) (*CompetitionInfo, error)
	ConfigureGroups(ctx context.Context, id, roundCode string, cfg groupconfig.Config) (*CompetitionInfo, error)
	MaterializeGroups(ctx context.Context, id, roundCode string) (*MaterializeResult, error)
	PreviewAssignments(ctx context.Context, id, roundCode string, opts *generators.Options) (*GenerationResult, error)
	GenerateAssignments(ctx context.Context, req GenerateRequest) (*GenerationResult, error)
	ExportAssignments(ctx context.Context, id, roundCode string) ([]byte, error)
	ListGenerationRuns(ctx context.Context, id string, limit int) ([]RunSummary, error)
}
