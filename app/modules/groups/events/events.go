// Package groupsevents defines the topics and payloads of the groups module.
package groupsevents

import (
	"github.com/google/uuid"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
)

const (
	// GenerateRequestedV1 asks for the assignments of a round to be generated.
	GenerateRequestedV1 = "groups.assignments.generate.requested.v1"
	// GeneratedV1 is published after assignments were merged and stored.
	GeneratedV1 = "groups.assignments.generated.v1"
	// GenerationFailedV1 is published when a request could not be served.
	GenerationFailedV1 = "groups.assignments.generation_failed.v1"

	// MaterializeRequestedV1 asks for the group activities of a round to be created.
	MaterializeRequestedV1 = "groups.materialize.requested.v1"
	// MaterializedV1 is published after group activities were created.
	MaterializedV1 = "groups.materialized.v1"
	// MaterializeFailedV1 is published when groups could not be created.
	MaterializeFailedV1 = "groups.materialize_failed.v1"
)

// GenerateRequestedPayloadV1 is the payload of GenerateRequestedV1.
type GenerateRequestedPayloadV1 struct {
	CompetitionID   string              `json:"competition_id"`
	RoundCode       string              `json:"round_code"`
	Options         *generators.Options `json:"options,omitempty"`
	ExpectedVersion int64               `json:"expected_version,omitempty"`
	RequestedBy     string              `json:"requested_by,omitempty"`
}

// GeneratedPayloadV1 is the payload of GeneratedV1.
type GeneratedPayloadV1 struct {
	RunID         uuid.UUID                `json:"run_id"`
	CompetitionID string                   `json:"competition_id"`
	RoundCode     string                   `json:"round_code"`
	Version       int64                    `json:"version"`
	Stats         generators.MergeStats    `json:"stats"`
	Reports       []generators.StageReport `json:"reports"`
}

// GenerationFailedPayloadV1 is the payload of GenerationFailedV1.
type GenerationFailedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
	Reason        string `json:"reason"`
}

// MaterializeRequestedPayloadV1 is the payload of MaterializeRequestedV1.
type MaterializeRequestedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
}

// MaterializedPayloadV1 is the payload of MaterializedV1.
type MaterializedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
	Version       int64  `json:"version"`
	GroupIDs      []int  `json:"group_ids"`
}

// MaterializeFailedPayloadV1 is the payload of MaterializeFailedV1.
type MaterializeFailedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
	Reason        string `json:"reason"`
}
