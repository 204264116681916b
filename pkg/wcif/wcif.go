// Package wcif models the WCA Competition Interchange Format document that
// every part of the dashboard reads and writes.
package wcif

import (
	"encoding/json"
	"fmt"
	"time"
)

// Assignment codes used by the group generators.
const (
	AssignmentCompetitor = "competitor"
	AssignmentJudge      = "staff-judge"
	AssignmentScrambler  = "staff-scrambler"
	AssignmentRunner     = "staff-runner"
	AssignmentDataEntry  = "staff-dataentry"
	AssignmentAnnouncer  = "staff-announcer"

	StaffPrefix = "staff-"
)

// Person roles that change how a person is grouped.
const (
	RoleDelegate        = "delegate"
	RoleTraineeDelegate = "trainee-delegate"
	RoleOrganizer       = "organizer"
)

// Registration statuses.
const (
	RegistrationAccepted = "accepted"
	RegistrationPending  = "pending"
	RegistrationDeleted  = "deleted"
)

// Personal best types.
const (
	ResultSingle  = "single"
	ResultAverage = "average"
)

// Competition is the root WCIF document.
type Competition struct {
	FormatVersion      string      `json:"formatVersion"`
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	ShortName          string      `json:"shortName"`
	Persons            []Person    `json:"persons"`
	Events             []Event     `json:"events"`
	Schedule           Schedule    `json:"schedule"`
	CompetitorLimit    *int        `json:"competitorLimit,omitempty"`
	Extensions         []Extension `json:"extensions"`
	RegistrationInfo   *RegInfo    `json:"registrationInfo,omitempty"`
	SeriesCompetitions []string    `json:"seriesCompetitions,omitempty"`
}

// RegInfo describes the registration window of a competition.
type RegInfo struct {
	OpenTime              time.Time `json:"openTime"`
	CloseTime             time.Time `json:"closeTime"`
	BaseEntryFee          int       `json:"baseEntryFee"`
	CurrencyCode          string    `json:"currencyCode"`
	OnTheSpotRegistration bool      `json:"onTheSpotRegistration"`
	UseWcaRegistration    bool      `json:"useWcaRegistration"`
}

// Schedule holds every venue of the competition.
type Schedule struct {
	StartDate    string  `json:"startDate"`
	NumberOfDays int     `json:"numberOfDays"`
	Venues       []Venue `json:"venues"`
}

// Venue is a physical location hosting one or more rooms.
type Venue struct {
	ID                    int         `json:"id"`
	Name                  string      `json:"name"`
	LatitudeMicrodegrees  int         `json:"latitudeMicrodegrees"`
	LongitudeMicrodegrees int         `json:"longitudeMicrodegrees"`
	CountryIso2           string      `json:"countryIso2"`
	TimezoneID            string      `json:"timezone"`
	Rooms                 []Room      `json:"rooms"`
	Extensions            []Extension `json:"extensions"`
}

// Room is a stage. Its top level activities are rounds.
type Room struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Color      string      `json:"color"`
	Activities []Activity  `json:"activities"`
	Extensions []Extension `json:"extensions"`
}

// Activity is a scheduled block. Round activities hold group activities as
// children.
type Activity struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	ActivityCode    string      `json:"activityCode"`
	StartTime       time.Time   `json:"startTime"`
	EndTime         time.Time   `json:"endTime"`
	ChildActivities []Activity  `json:"childActivities"`
	ScrambleSetID   *int        `json:"scrambleSetId,omitempty"`
	Extensions      []Extension `json:"extensions"`
}

// Person is a registrant of the competition.
type Person struct {
	RegistrantID  int            `json:"registrantId"`
	Name          string         `json:"name"`
	WcaUserID     int            `json:"wcaUserId"`
	WcaID         string         `json:"wcaId,omitempty"`
	CountryIso2   string         `json:"countryIso2"`
	Gender        string         `json:"gender,omitempty"`
	Birthdate     string         `json:"birthdate,omitempty"`
	Email         string         `json:"email,omitempty"`
	Roles         []string       `json:"roles"`
	Registration  *Registration  `json:"registration,omitempty"`
	Assignments   []Assignment   `json:"assignments"`
	PersonalBests []PersonalBest `json:"personalBests"`
	Extensions    []Extension    `json:"extensions"`
}

// HasRole reports whether the person carries the given role.
func (p Person) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Registration is the registration state of a person.
type Registration struct {
	WcaRegistrationID int      `json:"wcaRegistrationId"`
	EventIDs          []string `json:"eventIds"`
	Status            string   `json:"status"`
	IsCompeting       bool     `json:"isCompeting"`
	Guests            int      `json:"guests,omitempty"`
	Comments          string   `json:"comments,omitempty"`
}

// RegisteredFor reports whether the registration includes the event.
func (r *Registration) RegisteredFor(eventID string) bool {
	if r == nil {
		return false
	}
	for _, id := range r.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

// Assignment ties a person to an activity with a role.
type Assignment struct {
	ActivityID     int    `json:"activityId"`
	AssignmentCode string `json:"assignmentCode"`
	StationNumber  *int   `json:"stationNumber"`
}

// PersonalBest is a ranked personal record for an event.
type PersonalBest struct {
	EventID            string `json:"eventId"`
	Best               int    `json:"best"`
	WorldRanking       int    `json:"worldRanking"`
	ContinentalRanking int    `json:"continentalRanking"`
	NationalRanking    int    `json:"nationalRanking"`
	Type               string `json:"type"`
}

// Event is a competed event and its rounds.
type Event struct {
	ID              string           `json:"id"`
	Rounds          []Round          `json:"rounds"`
	CompetitorLimit *int             `json:"competitorLimit,omitempty"`
	Qualification   *json.RawMessage `json:"qualification,omitempty"`
	Extensions      []Extension      `json:"extensions"`
}

// Round is one stage of an event. Its ID is the round activity code.
type Round struct {
	ID                   string                `json:"id"`
	Format               string                `json:"format"`
	TimeLimit            *TimeLimit            `json:"timeLimit"`
	Cutoff               *Cutoff               `json:"cutoff"`
	AdvancementCondition *AdvancementCondition `json:"advancementCondition"`
	Results              []Result              `json:"results"`
	ScrambleSetCount     int                   `json:"scrambleSetCount"`
	Extensions           []Extension           `json:"extensions"`
}

// TimeLimit is the per attempt limit of a round.
type TimeLimit struct {
	Centiseconds       int      `json:"centiseconds"`
	CumulativeRoundIDs []string `json:"cumulativeRoundIds"`
}

// Cutoff is the soft cutoff of a round.
type Cutoff struct {
	NumberOfAttempts int `json:"numberOfAttempts"`
	AttemptResult    int `json:"attemptResult"`
}

// AdvancementCondition describes who proceeds to the next round.
type AdvancementCondition struct {
	Type  string `json:"type"`
	Level int    `json:"level"`
}

// Result is a person's official result in a round.
type Result struct {
	PersonID int       `json:"personId"`
	Ranking  *int      `json:"ranking"`
	Attempts []Attempt `json:"attempts"`
	Best     int       `json:"best"`
	Average  int       `json:"average"`
}

// Attempt is a single attempt result.
type Attempt struct {
	Result         int    `json:"result"`
	Reconstruction string `json:"reconstruction,omitempty"`
}

// Clone returns a deep copy of the document. The engine never mutates its
// input, so every write path starts from a clone.
func (c *Competition) Clone() (*Competition, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal competition: %w", err)
	}
	out := new(Competition)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal competition: %w", err)
	}
	return out, nil
}

// PersonByRegistrantID returns a pointer into the document, or nil.
func (c *Competition) PersonByRegistrantID(id int) *Person {
	for i := range c.Persons {
		if c.Persons[i].RegistrantID == id {
			return &c.Persons[i]
		}
	}
	return nil
}

// EventByID returns a pointer into the document, or nil.
func (c *Competition) EventByID(id string) *Event {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return &c.Events[i]
		}
	}
	return nil
}
