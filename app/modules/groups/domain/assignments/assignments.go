// Package assignments holds predicates over a person's assignments and the
// in-progress assignment type produced by the generators.
package assignments

import (
	"strings"

	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// InProgress is an assignment decided during a generation pass that has not
// been merged into the document yet.
type InProgress struct {
	RegistrantID int             `json:"registrantId"`
	Assignment   wcif.Assignment `json:"assignment"`
}

// New builds an in-progress assignment without a station number.
func New(registrantID, activityID int, code string) InProgress {
	return InProgress{
		RegistrantID: registrantID,
		Assignment:   wcif.Assignment{ActivityID: activityID, AssignmentCode: code},
	}
}

// Predicate tests a single assignment.
type Predicate func(wcif.Assignment) bool

// IsStaff matches every staff-* assignment.
func IsStaff(a wcif.Assignment) bool {
	return strings.HasPrefix(a.AssignmentCode, wcif.StaffPrefix)
}

// IsCompetitor matches competing assignments.
func IsCompetitor(a wcif.Assignment) bool {
	return a.AssignmentCode == wcif.AssignmentCompetitor
}

// IsJudge matches staff-judge exactly.
func IsJudge(a wcif.Assignment) bool {
	return a.AssignmentCode == wcif.AssignmentJudge
}

func IsScrambler(a wcif.Assignment) bool {
	return a.AssignmentCode == wcif.AssignmentScrambler
}

func IsRunner(a wcif.Assignment) bool {
	return a.AssignmentCode == wcif.AssignmentRunner
}

// HasCode matches one assignment code.
func HasCode(code string) Predicate {
	return func(a wcif.Assignment) bool { return a.AssignmentCode == code }
}

// Context selects which assignments a person filter looks at. A staged
// context looks only at the in-progress list, a persisted one only at the
// person's own assignments. The two sources are never merged.
type Context struct {
	groupIDs   map[int]struct{}
	restricted bool
	staged     []InProgress
	useStaged  bool
}

// Persisted checks the assignments stored on each person.
func Persisted() Context {
	return Context{}
}

// Staged checks only the given in-progress assignments. An empty list is
// still a staged context in which nobody has anything.
func Staged(list []InProgress) Context {
	return Context{staged: list, useStaged: true}
}

// InGroups restricts the context to the given activity ids. Calling it with
// no ids restricts to nothing.
func (c Context) InGroups(ids ...int) Context {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	c.groupIDs = set
	c.restricted = true
	return c
}

func (c Context) inScope(activityID int) bool {
	if !c.restricted {
		return true
	}
	_, ok := c.groupIDs[activityID]
	return ok
}

// Assignments returns the assignments of p visible in this context.
func (c Context) Assignments(p wcif.Person) []wcif.Assignment {
	var out []wcif.Assignment
	if c.useStaged {
		for _, ip := range c.staged {
			if ip.RegistrantID == p.RegistrantID && c.inScope(ip.Assignment.ActivityID) {
				out = append(out, ip.Assignment)
			}
		}
		return out
	}
	for _, a := range p.Assignments {
		if c.inScope(a.ActivityID) {
			out = append(out, a)
		}
	}
	return out
}

// PersonFilter selects persons.
type PersonFilter func(wcif.Person) bool

// HasAssignment reports whether any visible assignment satisfies pred.
func HasAssignment(pred Predicate) func(Context) PersonFilter {
	return func(ctx Context) PersonFilter {
		return func(p wcif.Person) bool {
			for _, a := range ctx.Assignments(p) {
				if pred(a) {
					return true
				}
			}
			return false
		}
	}
}

// MissingAssignment is the negation of HasAssignment.
func MissingAssignment(pred Predicate) func(Context) PersonFilter {
	has := HasAssignment(pred)
	return func(ctx Context) PersonFilter {
		f := has(ctx)
		return func(p wcif.Person) bool { return !f(p) }
	}
}

var (
	HasStaffAssignment           = HasAssignment(IsStaff)
	HasJudgingAssignment         = HasAssignment(IsJudge)
	HasCompetitorAssignment      = HasAssignment(IsCompetitor)
	MissingCompetitorAssignments = MissingAssignment(IsCompetitor)
	MissingStaffAssignments      = MissingAssignment(IsStaff)
)

// FindCompetingAssignment returns every competing assignment visible in ctx.
func FindCompetingAssignment(ctx Context, p wcif.Person) []wcif.Assignment {
	return Find(ctx, p, IsCompetitor)
}

// Find returns every visible assignment of p that satisfies pred.
func Find(ctx Context, p wcif.Person, pred Predicate) []wcif.Assignment {
	var out []wcif.Assignment
	for _, a := range ctx.Assignments(p) {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

// Filter keeps the persons accepted by every filter, preserving order.
func Filter(persons []wcif.Person, filters ...PersonFilter) []wcif.Person {
	out := make([]wcif.Person, 0, len(persons))
next:
	for _, p := range persons {
		for _, f := range filters {
			if !f(p) {
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}

// Not negates a person filter.
func Not(f PersonFilter) PersonFilter {
	return func(p wcif.Person) bool { return !f(p) }
}
