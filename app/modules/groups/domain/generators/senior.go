package generators

import (
	"log/slog"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/persons"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

const StageCompetingForSeniorStaff = "competing-for-senior-staff"

// CompetingForSeniorStaff places delegates, then organizers, into the group
// with the fewest competitors decided in this pass, preferring later groups so
// that regular competitors fill the early ones. Persisted competitors are not
// counted. Disabled unless Options.ClusterSeniorStaff is set.
type CompetingForSeniorStaff struct{}

func (CompetingForSeniorStaff) Name() string { return StageCompetingForSeniorStaff }

func (CompetingForSeniorStaff) Generate(in Input) (Output, error) {
	if !in.Options.ClusterSeniorStaff {
		return Output{}, nil
	}
	st, err := resolveRound(in)
	if err != nil {
		return Output{}, err
	}
	log := in.logger().With(slog.String("stage", StageCompetingForSeniorStaff), slog.String("round", st.code.String()))

	seeded := st.seedOrder()
	var ordered []wcif.Person
	for _, p := range seeded {
		if persons.IsDelegate(p) {
			ordered = append(ordered, p)
		}
	}
	for _, p := range seeded {
		if persons.IsOrganizer(p) && !persons.IsDelegate(p) {
			ordered = append(ordered, p)
		}
	}

	counts := st.stagedCompetitorCounts()
	order := visitOrder(len(st.groups), in.Options.stride())

	var out Output
	for _, p := range ordered {
		if st.competes(p, out.Assignments) {
			continue
		}
		staff := st.staffGroups(p, out.Assignments)

		best := -1
		for _, i := range order {
			g := st.groups[i]
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

// visitOrder lists group indexes starting at the last and stepping back by
// stride with wraparound. Indexes the stride never reaches are appended in
// descending order.
func visitOrder(n, stride int) []int {
	seen := make([]bool, n)
	order := make([]int, 0, n)
	for i := n - 1; n > 0 && !seen[i]; i = ((i-stride)%n + n) % n {
		seen[i] = true
		order = append(order, i)
	}
	for i := n - 1; i >= 0; i-- {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order
}
