package generators

import (
	"log/slog"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/persons"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

const StageJudgingFromCompeting = "judging-from-competing"

// JudgingFromCompeting makes every competitor without a staff duty judge the
// group after the one they compete in, wrapping within the stage. Delegates
// and organizers are exempt. Single group stages produce no judges.
type JudgingFromCompeting struct{}

func (JudgingFromCompeting) Name() string { return StageJudgingFromCompeting }

func (JudgingFromCompeting) Generate(in Input) (Output, error) {
	st, err := resolveRound(in)
	if err != nil {
		return Output{}, err
	}
	log := in.logger().With(slog.String("stage", StageJudgingFromCompeting), slog.String("round", st.code.String()))

	var out Output
	for _, p := range st.persons {
		if persons.IsSeniorStaff(p) || len(st.staffGroups(p, out.Assignments)) > 0 {
			continue
		}

		competing := assignments.FindCompetingAssignment(st.staged(nil), p)
		if len(competing) == 0 {
			competing = assignments.FindCompetingAssignment(st.persisted(), p)
		}
		if len(competing) == 0 {
			continue
		}

		group, ok := st.index.ActivityByID(competing[0].ActivityID)
		if !ok {
			continue
		}
		next, ok := st.index.NextGroup(group)
		if !ok {
			log.Debug("No next group to judge", slog.Int("registrant_id", p.RegistrantID), slog.Int("group", group.ID))
			continue
		}
		out.Assignments = append(out.Assignments, assignments.New(p.RegistrantID, next.ID, wcif.AssignmentJudge))
	}
	return out, nil
}
