// Package activitycode parses and formats WCIF activity codes such as
// "333-r1-g2" or "333fm-r1-a2".
package activitycode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// ErrInvalidActivityCode is returned for strings that are not activity codes.
var ErrInvalidActivityCode = errors.New("invalid activity code")

var pattern = regexp.MustCompile(`^(\w+)(?:-r(\d+))?(?:-g(\d+))?(?:-a(\d+))?$`)

// ActivityCode is the parsed form of an activity code. A zero number means the
// component is absent; WCIF numbers start at 1.
type ActivityCode struct {
	EventID       string
	RoundNumber   int
	GroupNumber   int
	AttemptNumber int
}

type parsed struct {
	code ActivityCode
	err  error
}

// cache maps input strings to their parse results.
var cache sync.Map

// Parse parses an activity code. Results are memoized by input string.
func Parse(code string) (ActivityCode, error) {
	if v, ok := cache.Load(code); ok {
		p := v.(parsed)
		return p.code, p.err
	}
	p := parse(code)
	cache.Store(code, p)
	return p.code, p.err
}

// MustParse is like Parse but panics on invalid input.
func MustParse(code string) ActivityCode {
	ac, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return ac
}

func parse(code string) parsed {
	m := pattern.FindStringSubmatch(code)
	if m == nil {
		return parsed{err: fmt.Errorf("%w: %q", ErrInvalidActivityCode, code)}
	}
	ac := ActivityCode{EventID: m[1]}
	for i, dst := range []*int{&ac.RoundNumber, &ac.GroupNumber, &ac.AttemptNumber} {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return parsed{err: fmt.Errorf("%w: %q", ErrInvalidActivityCode, code)}
		}
		*dst = n
	}
	return parsed{code: ac}
}

// String serializes the code. Only non-zero components are written.
func (c ActivityCode) String() string {
	var b strings.Builder
	b.WriteString(c.EventID)
	if c.RoundNumber != 0 {
		fmt.Fprintf(&b, "-r%d", c.RoundNumber)
	}
	if c.GroupNumber != 0 {
		fmt.Fprintf(&b, "-g%d", c.GroupNumber)
	}
	if c.AttemptNumber != 0 {
		fmt.Fprintf(&b, "-a%d", c.AttemptNumber)
	}
	return b.String()
}

// Round returns the code of the round this code belongs to.
func (c ActivityCode) Round() ActivityCode {
	return ActivityCode{EventID: c.EventID, RoundNumber: c.RoundNumber}
}

// WithGroup returns a copy of c with the group number set.
func (c ActivityCode) WithGroup(n int) ActivityCode {
	c.GroupNumber = n
	return c
}

// DisplayName joins the event name and the present components.
func (c ActivityCode) DisplayName() string {
	parts := []string{wcif.EventName(c.EventID)}
	if c.RoundNumber != 0 {
		parts = append(parts, fmt.Sprintf("Round %d", c.RoundNumber))
	}
	if c.GroupNumber != 0 {
		parts = append(parts, fmt.Sprintf("Group %d", c.GroupNumber))
	}
	if c.AttemptNumber != 0 {
		parts = append(parts, fmt.Sprintf("Attempt %d", c.AttemptNumber))
	}
	return strings.Join(parts, ", ")
}

// ToDisplayName formats an activity code for humans. Invalid codes are
// returned unchanged.
func ToDisplayName(code string) string {
	ac, err := Parse(code)
	if err != nil {
		return code
	}
	return ac.DisplayName()
}

// IsChild reports whether child lies inside parent. Components absent on the
// parent do not constrain the child, and a code is a child of itself.
func IsChild(parent, child ActivityCode) bool {
	if parent.EventID != child.EventID {
		return false
	}
	if parent.RoundNumber != 0 && parent.RoundNumber != child.RoundNumber {
		return false
	}
	if parent.GroupNumber != 0 && parent.GroupNumber != child.GroupNumber {
		return false
	}
	if parent.AttemptNumber != 0 && parent.AttemptNumber != child.AttemptNumber {
		return false
	}
	return true
}

// IsChildCode is IsChild over raw strings. Invalid codes are never related.
func IsChildCode(parent, child string) bool {
	p, err := Parse(parent)
	if err != nil {
		return false
	}
	c, err := Parse(child)
	if err != nil {
		return false
	}
	return IsChild(p, c)
}

// HasDistributedAttempts reports whether each attempt of the event is
// scheduled as its own activity. It accepts an event id or any activity code.
func HasDistributedAttempts(code string) bool {
	eventID := code
	if ac, err := Parse(code); err == nil {
		eventID = ac.EventID
	}
	return eventID == "333fm" || eventID == "333mbf"
}
