package testutils

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif/activitycode"
	"github.com/ThreeDotsLabs/watermill/message"
)

// BaseTime is the start of the first activity of every fixture competition.
var BaseTime = time.Date(2024, time.May, 4, 9, 0, 0, 0, time.UTC)

// Competition wraps rooms into a single venue competition document.
func Competition(id string, events []wcif.Event, persons []wcif.Person, rooms ...wcif.Room) *wcif.Competition {
	return &wcif.Competition{
		FormatVersion: "1.0",
		ID:            id,
		Name:          id,
		ShortName:     id,
		Persons:       persons,
		Events:        events,
		Schedule: wcif.Schedule{
			StartDate:    BaseTime.Format("2006-01-02"),
			NumberOfDays: 1,
			Venues: []wcif.Venue{{
				ID:         1,
				Name:       "Main Venue",
				TimezoneID: "UTC",
				Rooms:      rooms,
			}},
		},
	}
}

// Room builds a stage.
func Room(id int, name string, activities ...wcif.Activity) wcif.Room {
	return wcif.Room{ID: id, Name: name, Color: "#304a96", Activities: activities}
}

// RoundActivity builds a round activity spanning the given number of minutes
// from BaseTime.
func RoundActivity(id int, roundCode string, minutes int, groups ...wcif.Activity) wcif.Activity {
	return wcif.Activity{
		ID:              id,
		Name:            activitycode.ToDisplayName(roundCode),
		ActivityCode:    roundCode,
		StartTime:       BaseTime,
		EndTime:         BaseTime.Add(time.Duration(minutes) * time.Minute),
		ChildActivities: groups,
	}
}

// Groups builds n consecutive ten minute groups for the round with ids
// starting at firstID.
func Groups(roundCode string, firstID, n int) []wcif.Activity {
	groups := make([]wcif.Activity, 0, n)
	for i := 0; i < n; i++ {
		code := activitycode.MustParse(roundCode).WithGroup(i + 1).String()
		start := BaseTime.Add(time.Duration(i*10) * time.Minute)
		groups = append(groups, wcif.Activity{
			ID:           firstID + i,
			Name:         activitycode.ToDisplayName(code),
			ActivityCode: code,
			StartTime:    start,
			EndTime:      start.Add(10 * time.Minute),
		})
	}
	return groups
}

// Event builds an event with the given round ids.
func Event(id string, rounds ...wcif.Round) wcif.Event {
	return wcif.Event{ID: id, Rounds: rounds}
}

// Round builds a round with optional results.
func Round(id string, results ...wcif.Result) wcif.Round {
	return wcif.Round{ID: id, Format: "a", Results: results}
}

// Ranked builds a ranked result.
func Ranked(personID, ranking int) wcif.Result {
	return wcif.Result{PersonID: personID, Ranking: &ranking}
}

// PersonOption customizes a fixture person.
type PersonOption func(*wcif.Person)

// Person builds an accepted registrant with a WCA id.
func Person(id int, name string, opts ...PersonOption) wcif.Person {
	p := wcif.Person{
		RegistrantID: id,
		Name:         name,
		WcaUserID:    1000 + id,
		WcaID:        fmt.Sprintf("2020TEST%02d", id%100),
		CountryIso2:  "US",
		Roles:        []string{},
		Registration: &wcif.Registration{
			WcaRegistrationID: id,
			Status:            wcif.RegistrationAccepted,
			IsCompeting:       true,
		},
		Assignments:   []wcif.Assignment{},
		PersonalBests: []wcif.PersonalBest{},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Registered sets the events of the registration.
func Registered(eventIDs ...string) PersonOption {
	return func(p *wcif.Person) { p.Registration.EventIDs = eventIDs }
}

// Status sets the registration status.
func Status(status string) PersonOption {
	return func(p *wcif.Person) { p.Registration.Status = status }
}

// NoWcaID clears the WCA id, as for a first time competitor.
func NoWcaID() PersonOption {
	return func(p *wcif.Person) { p.WcaID = "" }
}

// Roles sets the person's roles.
func Roles(roles ...string) PersonOption {
	return func(p *wcif.Person) { p.Roles = roles }
}

// PB adds a personal best with the given world ranking.
func PB(eventID, resultType string, worldRanking int) PersonOption {
	return func(p *wcif.Person) {
		p.PersonalBests = append(p.PersonalBests, wcif.PersonalBest{
			EventID:      eventID,
			Type:         resultType,
			Best:         worldRanking * 10,
			WorldRanking: worldRanking,
		})
	}
}

// Assigned adds a persisted assignment.
func Assigned(activityID int, code string) PersonOption {
	return func(p *wcif.Person) {
		p.Assignments = append(p.Assignments, wcif.Assignment{ActivityID: activityID, AssignmentCode: code})
	}
}

// SingleStage builds a one room competition for roundCode with n groups.
// Round activity id is 1 and group ids start at 2.
func SingleStage(roundCode string, groups int, persons ...wcif.Person) *wcif.Competition {
	ac := activitycode.MustParse(roundCode)
	return Competition("Fixture2024",
		[]wcif.Event{Event(ac.EventID, Round(roundCode))},
		persons,
		Room(1, "Main Stage", RoundActivity(1, roundCode, groups*10, Groups(roundCode, 2, groups)...)),
	)
}

// DecodePayload unmarshals a watermill message payload into v.
func DecodePayload(t *testing.T, msg *message.Message, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
}
