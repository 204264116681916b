package generators

import (
	"fmt"
	"testing"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/testutils"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomRound builds a single stage round with a random roster: some
// newcomers, some without records, a few delegates and organizers.
func randomRound(f *gofakeit.Faker, groups, people int) *wcif.Competition {
	roster := make([]wcif.Person, 0, people)
	for id := 1; id <= people; id++ {
		opts := []testutils.PersonOption{testutils.Registered("333")}
		switch f.Number(0, 9) {
		case 0:
			opts = append(opts, testutils.NoWcaID())
		case 1:
			opts = append(opts, testutils.Roles(wcif.RoleDelegate))
		case 2:
			opts = append(opts, testutils.Roles(wcif.RoleOrganizer))
		}
		if f.Bool() {
			opts = append(opts, testutils.PB("333", wcif.ResultAverage, f.Number(1, 5000)))
		}
		if f.Bool() {
			opts = append(opts, testutils.PB("333", wcif.ResultSingle, f.Number(1, 5000)))
		}
		roster = append(roster, testutils.Person(id, f.Name(), opts...))
	}
	return testutils.SingleStage("333-r1", groups, roster...)
}

func competitorCountsOf(comp *wcif.Competition) map[int]int {
	counts := map[int]int{}
	for _, p := range comp.Persons {
		for _, a := range p.Assignments {
			if assignments.IsCompetitor(a) {
				counts[a.ActivityID]++
			}
		}
	}
	return counts
}

func TestGeneratedRoundsHoldInvariants(t *testing.T) {
	for seed := 1; seed <= 25; seed++ {
		f := gofakeit.New(uint64(seed))
		groups := f.Number(1, 6)
		people := f.Number(0, 60)

		t.Run(fmt.Sprintf("seed %d: %d people in %d groups", seed, people, groups), func(t *testing.T) {
			comp := randomRound(f, groups, people)
			pipeline := NewPipeline(nil, DefaultOptions())

			first := pipeline.Run(comp, "333-r1")
			require.False(t, first.Failed())

			merged, stats, err := Merge(comp, first.Assignments)
			require.NoError(t, err)
			assert.Zero(t, stats.Ignored)
			assert.Zero(t, stats.Replaced)

			t.Run("every competitor placed once", func(t *testing.T) {
				for _, p := range merged.Persons {
					competing := assignments.FindCompetingAssignment(assignments.Persisted(), p)
					assert.Len(t, competing, 1, "registrant %d", p.RegistrantID)
				}
			})

			t.Run("no double booking", func(t *testing.T) {
				for _, p := range merged.Persons {
					seen := map[int]bool{}
					for _, a := range p.Assignments {
						assert.False(t, seen[a.ActivityID], "registrant %d booked twice in %d", p.RegistrantID, a.ActivityID)
						seen[a.ActivityID] = true
					}
				}
			})

			t.Run("group sizes differ by at most one", func(t *testing.T) {
				counts := competitorCountsOf(merged)
				lo, hi := people, 0
				for id := 2; id < 2+groups; id++ {
					lo = min(lo, counts[id])
					hi = max(hi, counts[id])
				}
				assert.LessOrEqual(t, hi-lo, 1)
			})

			t.Run("judges never judge their own group", func(t *testing.T) {
				for _, p := range merged.Persons {
					var competing, judging []int
					for _, a := range p.Assignments {
						switch {
						case assignments.IsCompetitor(a):
							competing = append(competing, a.ActivityID)
						case assignments.IsJudge(a):
							judging = append(judging, a.ActivityID)
						}
					}
					for _, j := range judging {
						assert.NotContains(t, competing, j)
					}
				}
			})

			t.Run("second run adds nothing", func(t *testing.T) {
				second := pipeline.Run(merged, "333-r1")
				require.False(t, second.Failed())
				assert.Empty(t, second.Assignments)
			})

			t.Run("input document untouched", func(t *testing.T) {
				for _, p := range comp.Persons {
					assert.Empty(t, p.Assignments)
				}
			})
		})
	}
}

func TestDeterministic(t *testing.T) {
	f := gofakeit.New(42)
	comp := randomRound(f, 4, 40)

	a := NewPipeline(nil, DefaultOptions()).Run(comp, "333-r1")
	b := NewPipeline(nil, DefaultOptions()).Run(comp, "333-r1")
	assert.Equal(t, a.Assignments, b.Assignments)
}
