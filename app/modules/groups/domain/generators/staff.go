package generators

import (
	"log/slog"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/schedule"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

const StageCompetingForStaff = "competing-for-staff"

// CompetingForStaff gives people who already work in the round a competing
// slot in the nearest group before their earliest staff group that they do
// not also work in.
type CompetingForStaff struct{}

func (CompetingForStaff) Name() string { return StageCompetingForStaff }

func (CompetingForStaff) Generate(in Input) (Output, error) {
	st, err := resolveRound(in)
	if err != nil {
		return Output{}, err
	}
	log := in.logger().With(slog.String("stage", StageCompetingForStaff), slog.String("round", st.code.String()))

	var out Output
	for _, p := range st.persons {
		staff := st.staffGroups(p, out.Assignments)
		if len(staff) == 0 || st.competes(p, out.Assignments) {
			continue
		}

		earliest := st.earliestOf(staff)
		group, ok := precedingFreeGroup(st.index, earliest, staff)
		if !ok {
			log.Warn("No free group before staff duty",
				slog.Int("registrant_id", p.RegistrantID),
				slog.Int("staff_group", earliest.ID),
			)
			out.Skipped = append(out.Skipped, p.RegistrantID)
			continue
		}
		out.Assignments = append(out.Assignments, assignments.New(p.RegistrantID, group.ID, wcif.AssignmentCompetitor))
	}
	return out, nil
}

// earliestOf returns the lowest numbered group among ids.
func (s *roundState) earliestOf(ids map[int]struct{}) schedule.Activity {
	for _, g := range s.groups {
		if _, ok := ids[g.ID]; ok {
			return g
		}
	}
	return schedule.Activity{}
}

// precedingFreeGroup walks backward from start, wrapping within its stage,
// until it finds a group outside busy.
func precedingFreeGroup(index *schedule.Index, start schedule.Activity, busy map[int]struct{}) (schedule.Activity, bool) {
	current := start
	for {
		prev, ok := index.PreviousGroup(current)
		if !ok || prev.ID == start.ID {
			return schedule.Activity{}, false
		}
		if _, taken := busy[prev.ID]; !taken {
			return prev, true
		}
		current = prev
	}
}
