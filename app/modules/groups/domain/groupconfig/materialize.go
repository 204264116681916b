package groupconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/schedule"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif/activitycode"
)

var (
	ErrNotARoundActivity   = errors.New("activity is not a round activity")
	ErrRoundActivityAbsent = errors.New("round activity not found")
)

// Materialized holds the groups created for one round activity.
type Materialized struct {
	RoundActivityID int             `json:"roundActivityId"`
	RoomID          int             `json:"roomId"`
	Groups          []wcif.Activity `json:"groups"`
}

// Materialize creates the group activities of every given round activity.
// Ids continue from the largest id in comp. Each stage's round span is cut
// into equal contiguous slices, one per group in group number order.
func Materialize(comp *wcif.Competition, roundActivities []schedule.Activity, cfg Config) ([]Materialized, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nextID := schedule.GenerateNextActivityID(comp)
	out := make([]Materialized, 0, len(roundActivities))
	for _, ra := range roundActivities {
		ac, err := activitycode.Parse(ra.ActivityCode)
		if err != nil {
			return nil, err
		}
		if ac.RoundNumber == 0 || ac.GroupNumber != 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotARoundActivity, ra.ActivityCode)
		}

		roomID := 0
		if ra.Room != nil {
			roomID = ra.Room.ID
		}
		n := cfg.GroupsForRoom(roomID)

		m := Materialized{RoundActivityID: ra.ID, RoomID: roomID, Groups: make([]wcif.Activity, 0, n)}
		for i := 1; i <= n; i++ {
			code := ac.WithGroup(i)
			if activitycode.HasDistributedAttempts(ac.EventID) && code.AttemptNumber == 0 {
				code.AttemptNumber = 1
			}
			start, end := slice(ra.StartTime, ra.EndTime, i-1, n)
			m.Groups = append(m.Groups, wcif.Activity{
				ID:              nextID,
				Name:            code.DisplayName(),
				ActivityCode:    code.String(),
				StartTime:       start,
				EndTime:         end,
				ChildActivities: []wcif.Activity{},
				Extensions:      []wcif.Extension{},
			})
			nextID++
		}
		out = append(out, m)
	}
	return out, nil
}

// slice returns the bounds of the i-th of n equal parts of [start, end). The
// last part always ends exactly at end.
func slice(start, end time.Time, i, n int) (time.Time, time.Time) {
	span := end.Sub(start)
	from := start.Add(span * time.Duration(i) / time.Duration(n))
	to := start.Add(span * time.Duration(i+1) / time.Duration(n))
	if i == n-1 {
		to = end
	}
	return from, to
}

// Apply returns a copy of comp with the materialized groups appended to their
// round activities.
func Apply(comp *wcif.Competition, materialized []Materialized) (*wcif.Competition, error) {
	out, err := comp.Clone()
	if err != nil {
		return nil, err
	}
	for _, m := range materialized {
		round := findRoundActivity(out, m.RoundActivityID)
		if round == nil {
			return nil, fmt.Errorf("%w: %d", ErrRoundActivityAbsent, m.RoundActivityID)
		}
		round.ChildActivities = append(round.ChildActivities, m.Groups...)
	}
	return out, nil
}

func findRoundActivity(comp *wcif.Competition, id int) *wcif.Activity {
	for _, room := range schedule.AllRooms(comp) {
		for i := range room.Activities {
			if room.Activities[i].ID == id {
				return &room.Activities[i]
			}
		}
	}
	return nil
}
