package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	groupsdb "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/repositories"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	fileFlag = &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "WCIF competition JSON",
		Required: true,
	}
	roundFlag = &cli.StringFlag{
		Name:     "round",
		Aliases:  []string{"r"},
		Usage:    "round activity code, e.g. 333-r1",
		Required: true,
	}
	outFlag = &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "output file, stdout when empty",
	}
	engineFlags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "cluster-senior-staff",
			Value: true,
			Usage: "place delegates and organizers in the last groups",
		},
		&cli.IntFlag{
			Name:  "senior-staff-stride",
			Value: 1,
			Usage: "groups to step back between senior staff members",
		},
	}
)

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "groups",
		Usage:     "generate group assignments for a WCIF competition file",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     []cli.Flag{&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log engine progress to stderr"}},
		Commands: []*cli.Command{
			{
				Name:   "preview",
				Usage:  "print the assignments a generation would add",
				Flags:  append([]cli.Flag{fileFlag, roundFlag}, engineFlags...),
				Action: withService(preview),
			},
			{
				Name:   "generate",
				Usage:  "generate assignments and write the updated document",
				Flags:  append([]cli.Flag{fileFlag, roundFlag, outFlag}, engineFlags...),
				Action: withService(generate),
			},
			{
				Name:  "configure",
				Usage: "set the group count of a round",
				Flags: []cli.Flag{fileFlag, roundFlag, outFlag,
					&cli.IntFlag{Name: "groups", Usage: "groups on every stage"},
					&cli.StringFlag{Name: "per-room", Usage: "groups per room id, e.g. 1=3,2=2"},
					&cli.BoolFlag{Name: "spread", Usage: "spread groups across all stages (default: true for --groups, false for --per-room)"},
				},
				Action: withService(configure),
			},
			{
				Name:   "materialize",
				Usage:  "create the group activities of a round",
				Flags:  []cli.Flag{fileFlag, roundFlag, outFlag},
				Action: withService(materialize),
			},
			{
				Name:   "export",
				Usage:  "write the round's assignments as an xlsx workbook",
				Flags:  []cli.Flag{fileFlag, roundFlag, &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true}},
				Action: withService(export),
			},
		},
	}
}

type action func(c *cli.Context, svc groupsservice.Service, id, roundCode string) error

// withService loads the document into an in-memory store and runs fn
// against a service backed by it.
func withService(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		doc, err := readDocument(c.String("file"))
		if err != nil {
			return err
		}
		obs := observability.NewNoop()
		if c.Bool("verbose") {
			obs.Logger = slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		svc := groupsservice.NewGroupsService(
			groupsdb.NewMemoryRepository(),
			obs.Logger,
			obs.Metrics,
			obs.Tracer,
			nil,
			generators.DefaultOptions(),
		)
		if _, err := svc.ImportCompetition(c.Context, doc); err != nil {
			return err
		}
		return fn(c, svc, doc.ID, c.String("round"))
	}
}

func engineOptions(c *cli.Context) *generators.Options {
	return &generators.Options{
		ClusterSeniorStaff: c.Bool("cluster-senior-staff"),
		SeniorStaffStride:  c.Int("senior-staff-stride"),
	}
}

func preview(c *cli.Context, svc groupsservice.Service, id, roundCode string) error {
	out, err := svc.PreviewAssignments(c.Context, id, roundCode, engineOptions(c))
	if err != nil {
		return err
	}
	for _, rep := range out.Reports {
		line := fmt.Sprintf("%-20s added=%d skipped=%d", rep.Stage, rep.Added, len(rep.Skipped))
		if rep.Error != "" {
			line += " error=" + rep.Error
		}
		fmt.Fprintln(c.App.ErrWriter, line)
	}
	return writeJSON(c.App.Writer, out.Assignments)
}

func generate(c *cli.Context, svc groupsservice.Service, id, roundCode string) error {
	out, err := svc.GenerateAssignments(c.Context, groupsservice.GenerateRequest{
		CompetitionID: id,
		RoundCode:     roundCode,
		Options:       engineOptions(c),
		Trigger:       groupsservice.TriggerCLI,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "added=%d replaced=%d ignored=%d\n", out.Stats.Added, out.Stats.Replaced, out.Stats.Ignored)
	return writeDocument(c, svc, id)
}

func configure(c *cli.Context, svc groupsservice.Service, id, roundCode string) error {
	var cfg groupconfig.Config
	switch {
	case c.IsSet("per-room"):
		counts, err := parsePerRoom(c.String("per-room"))
		if err != nil {
			return err
		}
		cfg.Groups = groupconfig.PerRoom(counts)
	case c.IsSet("groups"):
		cfg.Groups = groupconfig.Uniform(c.Int("groups"))
	default:
		return errors.New("one of --groups or --per-room is required")
	}
	cfg.SpreadGroupsAcrossAllStages = !cfg.Groups.IsPerRoom()
	if c.IsSet("spread") {
		cfg.SpreadGroupsAcrossAllStages = c.Bool("spread")
	}
	if _, err := svc.ConfigureGroups(c.Context, id, roundCode, cfg); err != nil {
		return err
	}
	return writeDocument(c, svc, id)
}

func materialize(c *cli.Context, svc groupsservice.Service, id, roundCode string) error {
	out, err := svc.MaterializeGroups(c.Context, id, roundCode)
	if err != nil {
		return err
	}
	for _, m := range out.Groups {
		fmt.Fprintf(c.App.ErrWriter, "room %d: %d groups\n", m.RoomID, len(m.Groups))
	}
	return writeDocument(c, svc, id)
}

func export(c *cli.Context, svc groupsservice.Service, id, roundCode string) error {
	data, err := svc.ExportAssignments(c.Context, id, roundCode)
	if err != nil {
		return err
	}
	return os.WriteFile(c.String("out"), data, 0o644)
}

// parsePerRoom reads "1=3,2=2" into room id to group count.
func parsePerRoom(s string) (map[int]int, error) {
	counts := map[int]int{}
	for _, part := range strings.Split(s, ",") {
		room, n, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid per-room entry %q, want room=groups", part)
		}
		roomID, err := strconv.Atoi(room)
		if err != nil {
			return nil, fmt.Errorf("invalid room id %q: %w", room, err)
		}
		groups, err := strconv.Atoi(n)
		if err != nil {
			return nil, fmt.Errorf("invalid group count %q: %w", n, err)
		}
		counts[roomID] = groups
	}
	return counts, nil
}

func readDocument(path string) (*wcif.Competition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc wcif.Competition
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc, nil
}

func writeDocument(c *cli.Context, svc groupsservice.Service, id string) error {
	info, err := svc.GetCompetition(context.WithoutCancel(c.Context), id)
	if err != nil {
		return err
	}
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeJSON(f, info.Document)
	}
	return writeJSON(c.App.Writer, info.Document)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
