package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/testutils"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	comp := testutils.SingleStage("333-r1", 2,
		testutils.Person(1, "Ana", testutils.Registered("333")),
		testutils.Person(2, "Ben", testutils.Registered("333")),
		testutils.Person(3, "Cy", testutils.Registered("333")),
		testutils.Person(4, "Di", testutils.Registered("333")),
	)
	data, err := json.Marshal(comp)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "wcif.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"groups"}, args...))
	return stdout.String(), err
}

func TestGenerateWritesDocument(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "generate", "-f", path, "-r", "333-r1")
	require.NoError(t, err)

	var doc wcif.Competition
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	for _, p := range doc.Persons {
		competing := 0
		for _, a := range p.Assignments {
			if a.AssignmentCode == wcif.AssignmentCompetitor {
				competing++
			}
		}
		assert.Equal(t, 1, competing, "person %d", p.RegistrantID)
	}
}

func TestPreviewPrintsAssignments(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "preview", "-f", path, "-r", "333-r1")
	require.NoError(t, err)

	var list []assignments.InProgress
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	competing := map[int]int{}
	for _, ip := range list {
		if assignments.IsCompetitor(ip.Assignment) {
			competing[ip.RegistrantID]++
		}
	}
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1, 4: 1}, competing)
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    groupconfig.Config
		wantErr string
	}{
		{
			name: "uniform",
			args: []string{"--groups", "3"},
			want: groupconfig.Config{Groups: groupconfig.Uniform(3), SpreadGroupsAcrossAllStages: true},
		},
		{
			name: "per room",
			args: []string{"--per-room", "1=4", "--spread=false"},
			want: groupconfig.Config{Groups: groupconfig.PerRoom(map[int]int{1: 4}), SpreadGroupsAcrossAllStages: false},
		},
		{
			name: "per room infers no spread",
			args: []string{"--per-room", "1=2,2=3"},
			want: groupconfig.Config{Groups: groupconfig.PerRoom(map[int]int{1: 2, 2: 3}), SpreadGroupsAcrossAllStages: false},
		},
		{
			name:    "per room cannot spread",
			args:    []string{"--per-room", "1=4", "--spread"},
			wantErr: "cannot be spread",
		},
		{
			name:    "no count",
			wantErr: "--groups or --per-room",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.json")
			args := append([]string{"configure", "-f", writeFixture(t), "-r", "333-r1", "-o", out}, tt.args...)
			_, err := run(t, args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			var doc wcif.Competition
			require.NoError(t, json.Unmarshal(data, &doc))
			assert.Equal(t, tt.want, groupconfig.Read(nil, doc.Events[0].Rounds[0]))
		})
	}
}

func TestUnknownRoundFails(t *testing.T) {
	_, err := run(t, "generate", "-f", writeFixture(t), "-r", "444-r1")
	require.Error(t, err)
}

func TestExportWritesWorkbook(t *testing.T) {
	path := writeFixture(t)
	out := filepath.Join(t.TempDir(), "groups.xlsx")

	_, err := run(t, "export", "-f", path, "-r", "333-r1", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestParsePerRoom(t *testing.T) {
	tests := []struct {
		in      string
		want    map[int]int
		wantErr bool
	}{
		{in: "1=3,2=2", want: map[int]int{1: 3, 2: 2}},
		{in: " 5=1 ", want: map[int]int{5: 1}},
		{in: "1", wantErr: true},
		{in: "a=1", wantErr: true},
		{in: "1=b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePerRoom(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
