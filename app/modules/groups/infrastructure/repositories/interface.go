package groupsdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for competition persistence.
type Repository interface {
	// GetCompetition retrieves a stored document by competition id.
	GetCompetition(ctx context.Context, db bun.IDB, id string) (*Competition, error)

	// UpsertCompetition stores a document, replacing any previous one and
	// bumping its version.
	UpsertCompetition(ctx context.Context, db bun.IDB, comp *Competition) error

	// UpdateDocument replaces the document only if the stored version equals
	// expectedVersion. The new version is written back to comp.
	UpdateDocument(ctx context.Context, db bun.IDB, comp *Competition, expectedVersion int64) error

	// InsertGenerationRun records a generation run.
	InsertGenerationRun(ctx context.Context, db bun.IDB, run *GenerationRun) error

	// ListGenerationRuns returns the runs of a competition, newest first.
	ListGenerationRuns(ctx context.Context, db bun.IDB, competitionID string, limit int) ([]GenerationRun, error)
}
