package schedule

import (
	"testing"

	"github.com/Black-And-White-Club/delegate-dashboard/internal/testutils"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoStages builds 333-r1 on two rooms: room 1 holds groups 11..13, room 2
// holds groups 21..22, and 222-r1 runs in room 1 with a single group 31.
func twoStages() *wcif.Competition {
	return testutils.Competition("Stages2024", nil, nil,
		testutils.Room(1, "Red",
			testutils.RoundActivity(10, "333-r1", 30, testutils.Groups("333-r1", 11, 3)...),
			testutils.RoundActivity(30, "222-r1", 10, testutils.Groups("222-r1", 31, 1)...),
		),
		testutils.Room(2, "Blue",
			testutils.RoundActivity(20, "333-r1", 20, testutils.Groups("333-r1", 21, 2)...),
		),
	)
}

func ids(activities []Activity) []int {
	out := make([]int, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ID)
	}
	return out
}

func TestAllRoomsAndActivities(t *testing.T) {
	comp := twoStages()

	rooms := AllRooms(comp)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Red", rooms[0].Name)
	assert.Equal(t, "Blue", rooms[1].Name)

	assert.Equal(t, []int{10, 30, 20}, ids(AllRoundActivities(comp)))
	assert.Equal(t, []int{10, 30, 20, 11, 12, 13, 31, 21, 22}, ids(AllActivities(comp)))

	for _, a := range AllActivities(comp) {
		assert.NotNil(t, a.Room, "activity %d has no room", a.ID)
		assert.NotNil(t, a.Venue, "activity %d has no venue", a.ID)
	}
}

func TestAllChildActivitiesAnnotatesParent(t *testing.T) {
	comp := twoStages()
	round := &comp.Schedule.Venues[0].Rooms[0].Activities[0]
	round.ChildActivities[0].ChildActivities = []wcif.Activity{{ID: 99, ActivityCode: "333-r1-g1-a1"}}

	children := AllChildActivities(round)
	assert.Equal(t, []int{11, 99, 12, 13}, ids(children))
	assert.Equal(t, 10, children[0].Parent.ID)
	assert.Equal(t, 11, children[1].Parent.ID)
}

func TestFindRoomContaining(t *testing.T) {
	comp := twoStages()
	assert.Equal(t, "Blue", FindRoomContaining(comp, 22).Name)
	assert.Equal(t, "Red", FindRoomContaining(comp, 30).Name)
	assert.Nil(t, FindRoomContaining(comp, 404))
}

func TestGenerateNextActivityID(t *testing.T) {
	assert.Equal(t, 32, GenerateNextActivityID(twoStages()))
	assert.Equal(t, 1, GenerateNextActivityID(testutils.Competition("Empty2024", nil, nil)))
}

func TestIndexLookups(t *testing.T) {
	x := NewIndex(twoStages())

	a, ok := x.ActivityByID(21)
	require.True(t, ok)
	assert.Equal(t, "333-r1-g1", a.ActivityCode)
	assert.Equal(t, 20, a.Parent.ID)
	assert.Equal(t, "Blue", a.Room.Name)

	_, ok = x.ActivityByID(404)
	assert.False(t, ok)

	assert.Equal(t, []int{10, 20}, ids(x.RoundActivitiesFor("333-r1")))
	assert.Equal(t, []int{11, 12, 13, 21, 22}, ids(x.GroupActivitiesForRound("333-r1")))
	assert.Empty(t, x.GroupActivitiesForRound("444-r1"))
	assert.Equal(t, "Red", x.RoomContaining(12).Name)
	assert.Nil(t, x.RoomContaining(404))
}

func TestNextAndPreviousGroup(t *testing.T) {
	x := NewIndex(twoStages())
	group := func(id int) Activity {
		a, ok := x.ActivityByID(id)
		require.True(t, ok)
		return a
	}

	tests := []struct {
		name     string
		id       int
		next     int
		previous int
	}{
		{name: "first group", id: 11, next: 12, previous: 13},
		{name: "middle group", id: 12, next: 13, previous: 11},
		{name: "last group wraps", id: 13, next: 11, previous: 12},
		{name: "two groups on second stage", id: 21, next: 22, previous: 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := x.NextGroup(group(tt.id))
			require.True(t, ok)
			assert.Equal(t, tt.next, next.ID)

			prev, ok := x.PreviousGroup(group(tt.id))
			require.True(t, ok)
			assert.Equal(t, tt.previous, prev.ID)
		})
	}

	t.Run("single group has no neighbour", func(t *testing.T) {
		_, ok := x.NextGroup(group(31))
		assert.False(t, ok)
		_, ok = x.PreviousGroup(group(31))
		assert.False(t, ok)
	})
}

func TestSiblingsSortedByGroupNumber(t *testing.T) {
	comp := twoStages()
	round := &comp.Schedule.Venues[0].Rooms[0].Activities[0]
	// Reverse document order; neighbours must still follow group numbers.
	c := round.ChildActivities
	round.ChildActivities = []wcif.Activity{c[2], c[1], c[0]}

	x := NewIndex(comp)
	g1, _ := x.ActivityByID(11)
	next, ok := x.NextGroup(g1)
	require.True(t, ok)
	assert.Equal(t, 12, next.ID)
}

func TestCache(t *testing.T) {
	var c Cache
	first := twoStages()
	second := twoStages()

	x1 := c.Index(first)
	assert.Same(t, x1, c.Index(first))

	x2 := c.Index(second)
	assert.NotSame(t, x1, x2)
	assert.Same(t, second, x2.Competition())

	c.Invalidate()
	assert.NotSame(t, x2, c.Index(second))
}
