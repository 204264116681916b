package generators

import (
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// MergeStats counts what Merge did.
type MergeStats struct {
	Added    int `json:"added"`
	Replaced int `json:"replaced"`
	Ignored  int `json:"ignored"`
}

// Merge returns a copy of comp with list upserted into each person's
// assignments by activity id. Later entries win. Entries for unknown
// registrants are ignored.
func Merge(comp *wcif.Competition, list []assignments.InProgress) (*wcif.Competition, MergeStats, error) {
	out, err := comp.Clone()
	if err != nil {
		return nil, MergeStats{}, err
	}

	byRegistrant := make(map[int]int, len(out.Persons))
	for i, p := range out.Persons {
		byRegistrant[p.RegistrantID] = i
	}

	var stats MergeStats
	for _, ip := range list {
		i, ok := byRegistrant[ip.RegistrantID]
		if !ok {
			stats.Ignored++
			continue
		}
		if upsert(&out.Persons[i], ip.Assignment) {
			stats.Replaced++
		} else {
			stats.Added++
		}
	}
	return out, stats, nil
}

func upsert(p *wcif.Person, a wcif.Assignment) (replaced bool) {
	for i := range p.Assignments {
		if p.Assignments[i].ActivityID == a.ActivityID {
			p.Assignments[i] = a
			return true
		}
	}
	p.Assignments = append(p.Assignments, a)
	return false
}
