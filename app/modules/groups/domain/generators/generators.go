// Package generators computes group assignments for a round. A Pipeline runs
// an ordered list of stages; stage N receives the concatenation of everything
// stages 1..N-1 produced as Input.Prior and returns only what it adds.
package generators

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/persons"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/schedule"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif/activitycode"
)

var (
	ErrRoundNotFound = errors.New("round not found")
	ErrEventNotFound = errors.New("event not found")
	ErrNoGroups      = errors.New("round has no groups")
	ErrStagePanicked = errors.New("stage panicked")
)

// Options are the policy knobs of the pipeline.
type Options struct {
	// ClusterSeniorStaff enables the delegate and organizer stage. When off,
	// they are grouped with everyone else.
	ClusterSeniorStaff bool `json:"clusterSeniorStaff" yaml:"cluster_senior_staff"`
	// SeniorStaffStride is how many groups the senior staff stage steps back
	// between candidates, starting from the last group.
	SeniorStaffStride int `json:"seniorStaffStride" yaml:"senior_staff_stride"`
}

// DefaultOptions clusters senior staff into the last groups one at a time.
func DefaultOptions() Options {
	return Options{ClusterSeniorStaff: true, SeniorStaffStride: 1}
}

func (o Options) stride() int {
	if o.SeniorStaffStride <= 0 {
		return 1
	}
	return o.SeniorStaffStride
}

// Input is what every stage receives.
type Input struct {
	Competition *wcif.Competition
	Index       *schedule.Index
	RoundCode   string
	// Prior is the concatenated output of every earlier stage.
	Prior   []assignments.InProgress
	Options Options
	Logger  *slog.Logger
}

func (in Input) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.Default()
	}
	return in.Logger
}

// Output is what a stage adds. Skipped lists registrant ids the stage should
// have placed but could not.
type Output struct {
	Assignments []assignments.InProgress
	Skipped     []int
}

// Stage is one step of the pipeline. Stages must not mutate the input
// document.
type Stage interface {
	Name() string
	Generate(in Input) (Output, error)
}

// roundState is everything the stages need to know about the target round.
type roundState struct {
	code    activitycode.ActivityCode
	event   *wcif.Event
	round   *wcif.Round
	index   *schedule.Index
	groups  []schedule.Activity
	inGroup map[int]struct{}
	persons []wcif.Person
	prior   []assignments.InProgress
}

// CheckRound reports whether roundCode names a round of comp that has
// groups, which every stage requires.
func CheckRound(comp *wcif.Competition, roundCode string) error {
	_, err := resolveRound(Input{Competition: comp, RoundCode: roundCode})
	return err
}

func resolveRound(in Input) (*roundState, error) {
	ac, err := activitycode.Parse(in.RoundCode)
	if err != nil {
		return nil, err
	}
	if ac.RoundNumber == 0 {
		return nil, fmt.Errorf("%w: %q is not a round code", ErrRoundNotFound, in.RoundCode)
	}
	roundCode := ac.Round().String()

	event := in.Competition.EventByID(ac.EventID)
	if event == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, ac.EventID)
	}
	var round *wcif.Round
	for i := range event.Rounds {
		if event.Rounds[i].ID == roundCode {
			round = &event.Rounds[i]
			break
		}
	}
	if round == nil {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, roundCode)
	}

	index := in.Index
	if index == nil {
		index = schedule.NewIndex(in.Competition)
	}
	var groups []schedule.Activity
	for _, g := range index.GroupActivitiesForRound(roundCode) {
		if schedule.GroupNumber(g.Activity) > 0 {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoGroups, roundCode)
	}
	schedule.SortGroups(groups)

	inGroup := make(map[int]struct{}, len(groups))
	for _, g := range groups {
		inGroup[g.ID] = struct{}{}
	}

	return &roundState{
		code:    ac.Round(),
		event:   event,
		round:   round,
		index:   index,
		groups:  groups,
		inGroup: inGroup,
		persons: persons.InRound(in.Competition, *round),
		prior:   in.Prior,
	}, nil
}

func (s *roundState) groupIDs() []int {
	ids := make([]int, 0, len(s.groups))
	for _, g := range s.groups {
		ids = append(ids, g.ID)
	}
	return ids
}

func (s *roundState) persisted() assignments.Context {
	return assignments.Persisted().InGroups(s.groupIDs()...)
}

func (s *roundState) staged(extra []assignments.InProgress) assignments.Context {
	list := make([]assignments.InProgress, 0, len(s.prior)+len(extra))
	list = append(list, s.prior...)
	list = append(list, extra...)
	return assignments.Staged(list).InGroups(s.groupIDs()...)
}

// seedOrder returns the round's persons in competing order.
func (s *roundState) seedOrder() []wcif.Person {
	return persons.Sorted(s.persons, persons.SeedOrdering(*s.event, s.code.RoundNumber))
}

// competes reports whether p already competes in the round, either persisted
// or decided earlier in this pass.
func (s *roundState) competes(p wcif.Person, extra []assignments.InProgress) bool {
	return assignments.HasCompetitorAssignment(s.persisted())(p) ||
		assignments.HasCompetitorAssignment(s.staged(extra))(p)
}

// staffGroups returns the groups of the round p works in.
func (s *roundState) staffGroups(p wcif.Person, extra []assignments.InProgress) map[int]struct{} {
	out := map[int]struct{}{}
	for _, ctx := range []assignments.Context{s.persisted(), s.staged(extra)} {
		for _, a := range assignments.Find(ctx, p, assignments.IsStaff) {
			out[a.ActivityID] = struct{}{}
		}
	}
	return out
}

// competitorCounts counts competitors per group over persisted and staged
// assignments.
func (s *roundState) competitorCounts(comp *wcif.Competition) map[int]int {
	counts := s.stagedCompetitorCounts()
	for _, p := range comp.Persons {
		for _, a := range p.Assignments {
			if _, ok := s.inGroup[a.ActivityID]; ok && assignments.IsCompetitor(a) {
				counts[a.ActivityID]++
			}
		}
	}
	return counts
}

// stagedCompetitorCounts counts competitors per group decided earlier in this
// pass only.
func (s *roundState) stagedCompetitorCounts() map[int]int {
	counts := make(map[int]int, len(s.groups))
	for _, g := range s.groups {
		counts[g.ID] = 0
	}
	for _, ip := range s.prior {
		if _, ok := s.inGroup[ip.Assignment.ActivityID]; ok && assignments.IsCompetitor(ip.Assignment) {
			counts[ip.Assignment.ActivityID]++
		}
	}
	return counts
}
