// Package persons decides who takes part in a round and in which order they
// are handed to the generators.
package persons

import (
	"math"
	"sort"

	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif/activitycode"
)

// ShouldBeInRound reports whether a person competes in the round. Results are
// authoritative once present. Before that, only round 1 can be derived from
// registrations; later rounds yield nobody until results arrive.
func ShouldBeInRound(round wcif.Round) func(wcif.Person) bool {
	if len(round.Results) > 0 {
		ids := make(map[int]struct{}, len(round.Results))
		for _, r := range round.Results {
			ids[r.PersonID] = struct{}{}
		}
		return func(p wcif.Person) bool {
			_, ok := ids[p.RegistrantID]
			return ok
		}
	}

	ac, err := activitycode.Parse(round.ID)
	if err != nil || ac.RoundNumber != 1 {
		return func(wcif.Person) bool { return false }
	}
	return func(p wcif.Person) bool {
		return p.Registration != nil &&
			p.Registration.Status == wcif.RegistrationAccepted &&
			p.Registration.RegisteredFor(ac.EventID)
	}
}

// InRound returns the persons of the competition taking part in the round, in
// document order.
func InRound(comp *wcif.Competition, round wcif.Round) []wcif.Person {
	in := ShouldBeInRound(round)
	var out []wcif.Person
	for _, p := range comp.Persons {
		if in(p) {
			out = append(out, p)
		}
	}
	return out
}

// Comparator orders two persons the way sort.SliceStable expects a three way
// comparison: negative when a comes first.
type Comparator func(a, b wcif.Person) int

// SeedOrdering returns the competing order for a round. Round 1 uses the psych
// sheet, later rounds the previous round's ranking.
func SeedOrdering(event wcif.Event, roundNumber int) Comparator {
	if roundNumber <= 1 {
		return psychSheet(event.ID)
	}
	previous := activitycode.ActivityCode{EventID: event.ID, RoundNumber: roundNumber - 1}.String()
	rankings := map[int]int{}
	for _, r := range event.Rounds {
		if r.ID != previous {
			continue
		}
		for _, res := range r.Results {
			if res.Ranking != nil {
				rankings[res.PersonID] = *res.Ranking
			}
		}
	}
	rank := func(p wcif.Person) int {
		if r, ok := rankings[p.RegistrantID]; ok {
			return r
		}
		return math.MaxInt
	}
	return func(a, b wcif.Person) int {
		return compareInts(rank(a), rank(b))
	}
}

// psychSheet orders persons without a WCA id last. Between two others it
// compares average world rankings when both have one, single rankings when
// both have one, and otherwise puts a person with no record for the event
// after one with any.
func psychSheet(eventID string) Comparator {
	return func(a, b wcif.Person) int {
		if (a.WcaID == "") != (b.WcaID == "") {
			if a.WcaID == "" {
				return 1
			}
			return -1
		}
		if a.WcaID == "" {
			return 0
		}
		aAvg, aHasAvg := PersonalBest(a, eventID, wcif.ResultAverage)
		bAvg, bHasAvg := PersonalBest(b, eventID, wcif.ResultAverage)
		if aHasAvg && bHasAvg {
			return compareInts(aAvg.WorldRanking, bAvg.WorldRanking)
		}
		aSingle, aHasSingle := PersonalBest(a, eventID, wcif.ResultSingle)
		bSingle, bHasSingle := PersonalBest(b, eventID, wcif.ResultSingle)
		if aHasSingle && bHasSingle {
			return compareInts(aSingle.WorldRanking, bSingle.WorldRanking)
		}
		aAny := aHasAvg || aHasSingle
		bAny := bHasAvg || bHasSingle
		switch {
		case aAny && !bAny:
			return -1
		case !aAny && bAny:
			return 1
		}
		return 0
	}
}

// PersonalBest returns the person's record of the given type for the event.
func PersonalBest(p wcif.Person, eventID, resultType string) (wcif.PersonalBest, bool) {
	for _, pb := range p.PersonalBests {
		if pb.EventID == eventID && pb.Type == resultType {
			return pb, true
		}
	}
	return wcif.PersonalBest{}, false
}

// Sorted returns a stably sorted copy of persons.
func Sorted(persons []wcif.Person, cmp Comparator) []wcif.Person {
	out := append([]wcif.Person(nil), persons...)
	sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) < 0 })
	return out
}

func IsDelegate(p wcif.Person) bool {
	return p.HasRole(wcif.RoleDelegate) || p.HasRole(wcif.RoleTraineeDelegate)
}

func IsOrganizer(p wcif.Person) bool {
	return p.HasRole(wcif.RoleOrganizer)
}

// IsSeniorStaff matches delegates, trainee delegates and organizers. They are
// grouped separately and never assigned to judge.
func IsSeniorStaff(p wcif.Person) bool {
	return IsDelegate(p) || IsOrganizer(p)
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
