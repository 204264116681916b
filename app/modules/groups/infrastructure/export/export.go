// Package groupsexport renders the assignments of a round as an xlsx
// workbook with one sheet per stage.
package groupsexport

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/schedule"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// ErrNoGroups is returned when the round has no group activities to export.
var ErrNoGroups = errors.New("round has no groups to export")

var header = []interface{}{"Group", "Name", "WCA ID", "Assignment", "Station"}

// Row is one exported assignment.
type Row struct {
	Group      int
	Name       string
	WcaID      string
	Assignment string
	Station    *int
}

// Sheet is the exported content of one stage.
type Sheet struct {
	Room string
	Rows []Row
}

// Collect gathers the rows of every stage hosting roundCode, in schedule
// order. Rows are sorted by group, then assignment, then name.
func Collect(comp *wcif.Competition, roundCode string) ([]Sheet, error) {
	index := schedule.NewIndex(comp)
	groups := index.GroupActivitiesForRound(roundCode)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoGroups, roundCode)
	}

	type location struct {
		room  int
		group int
	}
	where := make(map[int]location, len(groups))
	var sheets []Sheet
	sheetOf := make(map[int]int)
	for _, g := range groups {
		roomID := 0
		name := "Groups"
		if g.Room != nil {
			roomID, name = g.Room.ID, g.Room.Name
		}
		if _, ok := sheetOf[roomID]; !ok {
			sheetOf[roomID] = len(sheets)
			sheets = append(sheets, Sheet{Room: name})
		}
		where[g.ID] = location{room: roomID, group: schedule.GroupNumber(g.Activity)}
	}

	for _, p := range comp.Persons {
		for _, a := range p.Assignments {
			loc, ok := where[a.ActivityID]
			if !ok {
				continue
			}
			s := &sheets[sheetOf[loc.room]]
			s.Rows = append(s.Rows, Row{
				Group:      loc.group,
				Name:       p.Name,
				WcaID:      p.WcaID,
				Assignment: a.AssignmentCode,
				Station:    a.StationNumber,
			})
		}
	}

	for i := range sheets {
		rows := sheets[i].Rows
		sort.SliceStable(rows, func(a, b int) bool {
			if rows[a].Group != rows[b].Group {
				return rows[a].Group < rows[b].Group
			}
			if rows[a].Assignment != rows[b].Assignment {
				return rows[a].Assignment < rows[b].Assignment
			}
			return rows[a].Name < rows[b].Name
		})
	}
	return sheets, nil
}

// Workbook renders the assignments of roundCode as xlsx bytes.
func Workbook(comp *wcif.Competition, roundCode string) ([]byte, error) {
	sheets, err := Collect(comp, roundCode)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(f.GetActiveSheetIndex())
	used := make(map[string]int)
	for i, s := range sheets {
		name := sheetName(s.Room, used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}

		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		for r, row := range s.Rows {
			axis, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			cells := []interface{}{row.Group, row.Name, row.WcaID, row.Assignment}
			if row.Station != nil {
				cells = append(cells, *row.Station)
			}
			if err := f.SetSheetRow(name, axis, &cells); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName strips characters xlsx forbids, truncates to 31 runes and
// suffixes duplicates.
func sheetName(room string, used map[string]int) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return -1
		}
		return r
	}, room)
	if strings.TrimSpace(name) == "" {
		name = "Groups"
	}
	if r := []rune(name); len(r) > 28 {
		name = string(r[:28])
	}
	used[name]++
	if n := used[name]; n > 1 {
		name = fmt.Sprintf("%s %d", name, n)
	}
	return name
}
