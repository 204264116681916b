package groupsexport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Black-And-White-Club/delegate-dashboard/internal/testutils"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

func exportFixture() *wcif.Competition {
	return testutils.Competition("Export2024",
		[]wcif.Event{testutils.Event("333", testutils.Round("333-r1"))},
		[]wcif.Person{
			testutils.Person(1, "Zed", testutils.Registered("333"), testutils.Assigned(11, wcif.AssignmentCompetitor), testutils.Assigned(12, wcif.AssignmentJudge)),
			testutils.Person(2, "Amy", testutils.Registered("333"), testutils.Assigned(12, wcif.AssignmentCompetitor)),
			testutils.Person(3, "Bob", testutils.Registered("333"), testutils.Assigned(21, wcif.AssignmentCompetitor), testutils.Assigned(99, wcif.AssignmentCompetitor)),
		},
		testutils.Room(1, "Main: Hall", testutils.RoundActivity(10, "333-r1", 20, testutils.Groups("333-r1", 11, 2)...)),
		testutils.Room(2, "Side", testutils.RoundActivity(20, "333-r1", 20, testutils.Groups("333-r1", 21, 1)...)),
	)
}

func TestCollect(t *testing.T) {
	sheets, err := Collect(exportFixture(), "333-r1")
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	assert.Equal(t, "Main: Hall", sheets[0].Room)
	assert.Equal(t, []Row{
		{Group: 1, Name: "Zed", WcaID: "2020TEST01", Assignment: wcif.AssignmentCompetitor},
		{Group: 2, Name: "Amy", WcaID: "2020TEST02", Assignment: wcif.AssignmentCompetitor},
		{Group: 2, Name: "Zed", WcaID: "2020TEST01", Assignment: wcif.AssignmentJudge},
	}, sheets[0].Rows)

	assert.Equal(t, "Side", sheets[1].Room)
	assert.Len(t, sheets[1].Rows, 1)

	_, err = Collect(exportFixture(), "222-r1")
	assert.ErrorIs(t, err, ErrNoGroups)
}

func TestWorkbook(t *testing.T) {
	data, err := Workbook(exportFixture(), "333-r1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Main Hall", "Side"}, f.GetSheetList())
	rows, err := f.GetRows("Main Hall")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Group", "Name", "WCA ID", "Assignment", "Station"}, rows[0])
	assert.Equal(t, []string{"1", "Zed", "2020TEST01", "competitor"}, rows[1])
}

func TestSheetName(t *testing.T) {
	used := map[string]int{}
	assert.Equal(t, "Red", sheetName("Red", used))
	assert.Equal(t, "Red 2", sheetName("Red", used))
	assert.Equal(t, "Groups", sheetName("[]", used))
	assert.Equal(t, "Abcdefghijklmnopqrstuvwxyzab", sheetName("Abcdefghijklmnopqrstuvwxyzabcdef", used))
}
