package groupsqueue

import (
	"github.com/riverqueue/river"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
)

// QueueName is the river queue serving groups jobs.
const QueueName = "groups"

// GenerateAssignmentsJob generates and stores the assignments of a round in
// the background.
type GenerateAssignmentsJob struct {
	CompetitionID   string              `json:"competition_id" river:"unique"`
	RoundCode       string              `json:"round_code" river:"unique"`
	Options         *generators.Options `json:"options,omitempty"`
	ExpectedVersion int64               `json:"expected_version,omitempty"`
	CorrelationID   string              `json:"correlation_id,omitempty"`
}

// Kind returns the job type identifier for River
func (GenerateAssignmentsJob) Kind() string { return "generate_assignments" }

// InsertOpts places the job on the groups queue. Only one pending job per
// round is kept.
func (GenerateAssignmentsJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: 5,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	}
}
