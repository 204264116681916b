package schedule

import (
	"sort"
	"sync"

	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif/activitycode"
)

// Index answers schedule lookups for one document snapshot. It holds pointers
// into the document, so the document must not be mutated while the index is
// in use; build a new index for every new document version.
type Index struct {
	comp       *wcif.Competition
	rooms      []*wcif.Room
	rounds     []Activity
	activities []Activity
	byID       map[int]Activity
}

// NewIndex walks the schedule once and builds every lookup table.
func NewIndex(comp *wcif.Competition) *Index {
	x := &Index{
		comp:   comp,
		rooms:  AllRooms(comp),
		rounds: AllRoundActivities(comp),
	}
	x.activities = AllActivities(comp)
	x.byID = make(map[int]Activity, len(x.activities))
	for _, a := range x.activities {
		x.byID[a.ID] = a
	}
	return x
}

// Competition returns the indexed document.
func (x *Index) Competition() *wcif.Competition { return x.comp }

// Rooms returns every room of every venue.
func (x *Index) Rooms() []*wcif.Room { return x.rooms }

// RoundActivities returns every top level activity.
func (x *Index) RoundActivities() []Activity { return x.rounds }

// Activities returns round activities and all of their descendants.
func (x *Index) Activities() []Activity { return x.activities }

// ActivityByID looks up any activity of the schedule.
func (x *Index) ActivityByID(id int) (Activity, bool) {
	a, ok := x.byID[id]
	return a, ok
}

// RoomContaining returns the room that holds the activity, or nil.
func (x *Index) RoomContaining(id int) *wcif.Room {
	a, ok := x.byID[id]
	if !ok {
		return nil
	}
	return a.Room
}

// RoundActivitiesFor returns the round activity of every stage hosting the
// round.
func (x *Index) RoundActivitiesFor(roundCode string) []Activity {
	var out []Activity
	for _, r := range x.rounds {
		if r.ActivityCode == roundCode {
			out = append(out, r)
		}
	}
	return out
}

// GroupActivitiesForRound returns the groups of the round across every stage.
func (x *Index) GroupActivitiesForRound(roundCode string) []Activity {
	var out []Activity
	for _, r := range x.RoundActivitiesFor(roundCode) {
		for _, child := range AllChildActivities(r.Activity) {
			if annotated, ok := x.byID[child.ID]; ok {
				out = append(out, annotated)
			}
		}
	}
	return out
}

// GroupNumber returns the group number of an activity, or 0 if its code has
// none.
func GroupNumber(a *wcif.Activity) int {
	ac, err := activitycode.Parse(a.ActivityCode)
	if err != nil {
		return 0
	}
	return ac.GroupNumber
}

// SortGroups orders groups by group number, then activity id.
func SortGroups(groups []Activity) {
	sort.SliceStable(groups, func(i, j int) bool {
		gi, gj := GroupNumber(groups[i].Activity), GroupNumber(groups[j].Activity)
		if gi != gj {
			return gi < gj
		}
		return groups[i].ID < groups[j].ID
	})
}

// siblings returns the groups sharing a parent with g, sorted by group number.
func (x *Index) siblings(g Activity) []Activity {
	parent := g.Parent
	if parent == nil {
		if annotated, ok := x.byID[g.ID]; ok {
			parent = annotated.Parent
		}
	}
	if parent == nil {
		return nil
	}
	out := make([]Activity, 0, len(parent.ChildActivities))
	for i := range parent.ChildActivities {
		if annotated, ok := x.byID[parent.ChildActivities[i].ID]; ok {
			out = append(out, annotated)
		}
	}
	SortGroups(out)
	return out
}

// NextGroup returns the group following g in the same stage, wrapping from
// the last group to the first. It reports false when g is the only group.
func (x *Index) NextGroup(g Activity) (Activity, bool) {
	return x.step(g, 1)
}

// PreviousGroup returns the group preceding g in the same stage, wrapping from
// the first group to the last. It reports false when g is the only group.
func (x *Index) PreviousGroup(g Activity) (Activity, bool) {
	return x.step(g, -1)
}

func (x *Index) step(g Activity, delta int) (Activity, bool) {
	groups := x.siblings(g)
	n := len(groups)
	if n <= 1 {
		return Activity{}, false
	}
	for i, candidate := range groups {
		if candidate.ID == g.ID {
			return groups[((i+delta)%n+n)%n], true
		}
	}
	return Activity{}, false
}

// Cache hands out an Index per document. The cached index is replaced as soon
// as a different document pointer is passed in.
type Cache struct {
	mu    sync.Mutex
	comp  *wcif.Competition
	index *Index
}

// Index returns the index for comp, building it on first use.
func (c *Cache) Index(comp *wcif.Competition) *Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil || c.comp != comp {
		c.comp = comp
		c.index = NewIndex(comp)
	}
	return c.index
}

// Invalidate drops the cached index.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comp = nil
	c.index = nil
}
