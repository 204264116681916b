package groupsdb

import (
	"time"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Competition is a stored WCIF document. Version increases on every write.
type Competition struct {
	bun.BaseModel `bun:"table:competitions,alias:c"`
	ID            string            `bun:"id,pk,type:varchar(64)"`
	Name          string            `bun:"name,notnull"`
	Document      *wcif.Competition `bun:"document,type:jsonb,notnull"`
	Version       int64             `bun:"version,notnull,default:1"`
	CreatedAt     time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GenerationRun is the audit record of one generation or preview.
type GenerationRun struct {
	bun.BaseModel `bun:"table:generation_runs,alias:gr"`
	ID            uuid.UUID                `bun:"id,pk,type:uuid"`
	CompetitionID string                   `bun:"competition_id,notnull,type:varchar(64)"`
	RoundCode     string                   `bun:"round_code,notnull"`
	Trigger       string                   `bun:"trigger,notnull"`
	Added         int                      `bun:"added,notnull"`
	Replaced      int                      `bun:"replaced,notnull"`
	Ignored       int                      `bun:"ignored,notnull"`
	Reports       []generators.StageReport `bun:"stage_reports,type:jsonb"`
	Version       int64                    `bun:"version,notnull"`
	CreatedAt     time.Time                `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
