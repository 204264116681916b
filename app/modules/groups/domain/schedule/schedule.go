// Package schedule builds lookup structures over the schedule tree of a
// competition: venues, rooms, round activities and their group activities.
package schedule

import (
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// Activity is a schedule node annotated with where it lives. The annotation
// is derived from the document and never stored on it.
type Activity struct {
	*wcif.Activity
	Parent *wcif.Activity
	Room   *wcif.Room
	Venue  *wcif.Venue
}

// AllRooms flattens venues into their rooms.
func AllRooms(comp *wcif.Competition) []*wcif.Room {
	var rooms []*wcif.Room
	for vi := range comp.Schedule.Venues {
		venue := &comp.Schedule.Venues[vi]
		for ri := range venue.Rooms {
			rooms = append(rooms, &venue.Rooms[ri])
		}
	}
	return rooms
}

// AllChildActivities returns every descendant of activity, each annotated
// with its direct parent. The result is rebuilt on every call.
func AllChildActivities(activity *wcif.Activity) []Activity {
	var out []Activity
	for i := range activity.ChildActivities {
		child := &activity.ChildActivities[i]
		out = append(out, Activity{Activity: child, Parent: activity})
		out = append(out, AllChildActivities(child)...)
	}
	return out
}

// FindRoomContaining searches the schedule for the room holding the activity.
func FindRoomContaining(comp *wcif.Competition, activityID int) *wcif.Room {
	for _, room := range AllRooms(comp) {
		for i := range room.Activities {
			if containsActivity(&room.Activities[i], activityID) {
				return room
			}
		}
	}
	return nil
}

func containsActivity(activity *wcif.Activity, id int) bool {
	if activity.ID == id {
		return true
	}
	for i := range activity.ChildActivities {
		if containsActivity(&activity.ChildActivities[i], id) {
			return true
		}
	}
	return false
}

// AllRoundActivities returns the top level activity of every room, annotated
// with its room and venue.
func AllRoundActivities(comp *wcif.Competition) []Activity {
	var out []Activity
	for vi := range comp.Schedule.Venues {
		venue := &comp.Schedule.Venues[vi]
		for ri := range venue.Rooms {
			room := &venue.Rooms[ri]
			for ai := range room.Activities {
				out = append(out, Activity{Activity: &room.Activities[ai], Room: room, Venue: venue})
			}
		}
	}
	return out
}

// AllActivities returns round activities followed by all of their
// descendants.
func AllActivities(comp *wcif.Competition) []Activity {
	rounds := AllRoundActivities(comp)
	out := append([]Activity(nil), rounds...)
	for _, round := range rounds {
		for _, child := range AllChildActivities(round.Activity) {
			child.Room = round.Room
			child.Venue = round.Venue
			out = append(out, child)
		}
	}
	return out
}

// GenerateNextActivityID returns one more than the largest activity id in the
// schedule. Callers inserting several activities must either re-query after
// each insertion or increment the returned value themselves.
func GenerateNextActivityID(comp *wcif.Competition) int {
	maxID := 0
	for _, a := range AllActivities(comp) {
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	return maxID + 1
}
