// Package groupconfig reads and writes the per round group count settings and
// turns them into group activities on the schedule.
package groupconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

const (
	// DashboardExtensionID is the namespace owned by this service.
	DashboardExtensionID = "delegateDashboard.groups"
	// GroupifierExtensionID is read as a fallback when no dashboard settings
	// exist. It is never written.
	GroupifierExtensionID = "groupifier.ActivityConfig"

	DashboardSpecURL = "https://github.com/Black-And-White-Club/delegate-dashboard/blob/main/wcif-extensions.md"
)

var (
	ErrInvalidConfig    = errors.New("invalid group config")
	ErrUnknownExtension = errors.New("unknown extension")
)

// GroupCount is either one count for every stage or a count per room id.
type GroupCount struct {
	uniform int
	perRoom map[int]int
}

// Uniform is the same number of groups on every stage.
func Uniform(n int) GroupCount {
	return GroupCount{uniform: n}
}

// PerRoom sets the number of groups of each room individually.
func PerRoom(counts map[int]int) GroupCount {
	m := make(map[int]int, len(counts))
	for k, v := range counts {
		m[k] = v
	}
	return GroupCount{perRoom: m}
}

func (g GroupCount) IsPerRoom() bool { return g.perRoom != nil }

// ForRoom returns the count for one room. Rooms missing from a per room map
// get a single group.
func (g GroupCount) ForRoom(roomID int) int {
	if g.perRoom == nil {
		return g.uniform
	}
	if n, ok := g.perRoom[roomID]; ok {
		return n
	}
	return 1
}

// Rooms lists the room ids of a per room count in ascending order.
func (g GroupCount) Rooms() []int {
	ids := make([]int, 0, len(g.perRoom))
	for id := range g.perRoom {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (g GroupCount) validate() error {
	if g.perRoom == nil {
		if g.uniform < 1 {
			return fmt.Errorf("%w: groups must be at least 1, got %d", ErrInvalidConfig, g.uniform)
		}
		return nil
	}
	for room, n := range g.perRoom {
		if n < 1 {
			return fmt.Errorf("%w: room %d must have at least 1 group, got %d", ErrInvalidConfig, room, n)
		}
	}
	return nil
}

// MarshalJSON writes a number or an object keyed by room id.
func (g GroupCount) MarshalJSON() ([]byte, error) {
	if g.perRoom == nil {
		return json.Marshal(g.uniform)
	}
	m := make(map[string]int, len(g.perRoom))
	for k, v := range g.perRoom {
		m[strconv.Itoa(k)] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts a number or an object keyed by room id.
func (g *GroupCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var m map[string]int
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		counts := make(map[int]int, len(m))
		for k, v := range m {
			id, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("%w: room id %q is not a number", ErrInvalidConfig, k)
			}
			counts[id] = v
		}
		*g = GroupCount{perRoom: counts}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: groups must be a number or an object: %v", ErrInvalidConfig, err)
	}
	*g = GroupCount{uniform: n}
	return nil
}

// Config is the resolved group setting of a round.
type Config struct {
	Groups                      GroupCount `json:"groups"`
	SpreadGroupsAcrossAllStages bool       `json:"spreadGroupsAcrossAllStages"`
}

// Default is one group, spread over every stage.
func Default() Config {
	return Config{Groups: Uniform(1), SpreadGroupsAcrossAllStages: true}
}

// Validate checks the counts and that their shape matches the spread flag:
// spreading takes one count for every stage, otherwise counts are per room.
func (c Config) Validate() error {
	if err := c.Groups.validate(); err != nil {
		return err
	}
	if c.SpreadGroupsAcrossAllStages && c.Groups.IsPerRoom() {
		return fmt.Errorf("%w: per room groups cannot be spread across all stages", ErrInvalidConfig)
	}
	if !c.SpreadGroupsAcrossAllStages && !c.Groups.IsPerRoom() {
		return fmt.Errorf("%w: groups must be set per room when not spread across all stages", ErrInvalidConfig)
	}
	return nil
}

// GroupsForRoom is the number of groups to create on a stage. Spread groups
// run on every stage.
func (c Config) GroupsForRoom(roomID int) int {
	if c.SpreadGroupsAcrossAllStages {
		return c.Groups.uniform
	}
	return c.Groups.ForRoom(roomID)
}

// UnmarshalJSON decodes the dashboard shape. A missing spread flag follows
// the shape of groups.
func (c *Config) UnmarshalJSON(data []byte) error {
	var d DashboardGroups
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	*c = d.Config()
	return nil
}

// Extension is a validated extension block this package understands.
type Extension interface {
	ExtensionID() string
	Config() Config
}

// DashboardGroups is the data of DashboardExtensionID.
type DashboardGroups struct {
	Groups                      *GroupCount `json:"groups"`
	SpreadGroupsAcrossAllStages *bool       `json:"spreadGroupsAcrossAllStages"`
}

func (DashboardGroups) ExtensionID() string { return DashboardExtensionID }

func (d DashboardGroups) Config() Config {
	cfg := Default()
	if d.Groups != nil {
		cfg.Groups = *d.Groups
		cfg.SpreadGroupsAcrossAllStages = !d.Groups.IsPerRoom()
	}
	if d.SpreadGroupsAcrossAllStages != nil {
		cfg.SpreadGroupsAcrossAllStages = *d.SpreadGroupsAcrossAllStages
	}
	return cfg
}

// GroupifierActivityConfig is the data Groupifier stores on round activities.
type GroupifierActivityConfig struct {
	Capacity     float64 `json:"capacity"`
	Groups       int     `json:"groups"`
	Scramblers   int     `json:"scramblers"`
	Runners      int     `json:"runners"`
	AssignJudges bool    `json:"assignJudges"`
}

func (GroupifierActivityConfig) ExtensionID() string { return GroupifierExtensionID }

func (g GroupifierActivityConfig) Config() Config {
	return Config{Groups: Uniform(g.Groups), SpreadGroupsAcrossAllStages: true}
}

// Decode validates an extension block and returns its typed form.
func Decode(ext wcif.Extension) (Extension, error) {
	switch ext.ID {
	case DashboardExtensionID:
		var d DashboardGroups
		if err := json.Unmarshal(ext.Data, &d); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, ext.ID, err)
		}
		if err := d.Config().Validate(); err != nil {
			return nil, err
		}
		return d, nil
	case GroupifierExtensionID:
		var g GroupifierActivityConfig
		if err := json.Unmarshal(ext.Data, &g); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, ext.ID, err)
		}
		if g.Groups < 1 {
			return nil, fmt.Errorf("%w: %s: groups must be at least 1", ErrInvalidConfig, ext.ID)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, ext.ID)
	}
}

// Encode builds the dashboard extension block for cfg.
func Encode(cfg Config) (wcif.Extension, error) {
	if err := cfg.Validate(); err != nil {
		return wcif.Extension{}, err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return wcif.Extension{}, fmt.Errorf("failed to marshal group config: %w", err)
	}
	return wcif.Extension{ID: DashboardExtensionID, SpecURL: DashboardSpecURL, Data: data}, nil
}
