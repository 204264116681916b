package groupsservice

import (
	"time"

	"github.com/google/uuid"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// Generation triggers recorded on runs.
const (
	TriggerHTTP  = "http"
	TriggerEvent = "event"
	TriggerQueue = "queue"
	TriggerCLI   = "cli"
)

// CompetitionInfo is a stored document and its version.
type CompetitionInfo struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Version  int64             `json:"version"`
	Document *wcif.Competition `json:"document,omitempty"`
}

// GenerateRequest asks for the assignments of one round to be generated and
// persisted.
type GenerateRequest struct {
	CompetitionID string              `json:"competitionId"`
	RoundCode     string              `json:"roundCode"`
	Options       *generators.Options `json:"options,omitempty"`
	// ExpectedVersion rejects the request when the stored document moved on.
	// Zero accepts any version.
	ExpectedVersion int64  `json:"expectedVersion,omitempty"`
	Trigger         string `json:"trigger,omitempty"`
}

// GenerationResult is the outcome of a preview or a generation.
type GenerationResult struct {
	RunID         uuid.UUID                `json:"runId"`
	CompetitionID string                   `json:"competitionId"`
	RoundCode     string                   `json:"roundCode"`
	Version       int64                    `json:"version"`
	Assignments   []assignments.InProgress `json:"assignments"`
	Reports       []generators.StageReport `json:"reports"`
	Stats         generators.MergeStats    `json:"stats"`
	Persisted     bool                     `json:"persisted"`
}

// MaterializeResult lists the group activities created for a round.
type MaterializeResult struct {
	CompetitionID string                     `json:"competitionId"`
	RoundCode     string                     `json:"roundCode"`
	Version       int64                      `json:"version"`
	Config        groupconfig.Config         `json:"config"`
	Groups        []groupconfig.Materialized `json:"groups"`
}

// RunSummary describes a past generation run.
type RunSummary struct {
	ID        uuid.UUID                `json:"id"`
	RoundCode string                   `json:"roundCode"`
	Trigger   string                   `json:"trigger"`
	Stats     generators.MergeStats    `json:"stats"`
	Reports   []generators.StageReport `json:"reports"`
	Version   int64                    `json:"version"`
	CreatedAt time.Time                `json:"createdAt"`
}
