package generators

import (
	"log/slog"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

const StageCompetingForEveryone = "competing-for-everyone"

// CompetingForEveryone hands each remaining person, in seed order, to the
// group with the fewest competitors so far. Ties go to the lower group number,
// then the lower activity id.
type CompetingForEveryone struct{}

func (CompetingForEveryone) Name() string { return StageCompetingForEveryone }

func (CompetingForEveryone) Generate(in Input) (Output, error) {
	st, err := resolveRound(in)
	if err != nil {
		return Output{}, err
	}
	log := in.logger().With(slog.String("stage", StageCompetingForEveryone), slog.String("round", st.code.String()))

	counts := st.competitorCounts(in.Competition)

	var out Output
	for _, p := range st.seedOrder() {
		if st.competes(p, out.Assignments) {
			continue
		}
		staff := st.staffGroups(p, out.Assignments)

		best := -1
		// st.groups is sorted by group number then id, so the first minimum wins.
		for i, g := range st.groups {
			if _, busy := staff[g.ID]; busy {
				continue
			}
			if best == -1 || counts[g.ID] < counts[st.groups[best].ID] {
				best = i
			}
		}
		if best == -1 {
			log.Warn("No group without staff duty", slog.Int("registrant_id", p.RegistrantID))
			out.Skipped = append(out.Skipped, p.RegistrantID)
			continue
		}

		g := st.groups[best]
		counts[g.ID]++
		out.Assignments = append(out.Assignments, assignments.New(p.RegistrantID, g.ID, wcif.AssignmentCompetitor))
	}
	return out, nil
}
