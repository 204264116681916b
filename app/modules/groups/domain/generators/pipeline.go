package generators

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/assignments"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/schedule"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// DefaultStages is the standard order: staff compete first, then senior staff,
// then everyone else, then judges are derived from competing groups.
func DefaultStages() []Stage {
	return []Stage{
		CompetingForStaff{},
		CompetingForSeniorStaff{},
		CompetingForEveryone{},
		JudgingFromCompeting{},
	}
}

// StageReport describes how one stage went.
type StageReport struct {
	Stage    string        `json:"stage"`
	Added    int           `json:"added"`
	Skipped  []int         `json:"skipped,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a pipeline run.
type Result struct {
	Assignments []assignments.InProgress `json:"assignments"`
	Reports     []StageReport            `json:"reports"`
}

// Failed reports whether any stage returned an error.
func (r Result) Failed() bool {
	for _, rep := range r.Reports {
		if rep.Error != "" {
			return true
		}
	}
	return false
}

// Pipeline runs stages in order.
type Pipeline struct {
	stages  []Stage
	options Options
	logger  *slog.Logger
	cache   schedule.Cache
}

// NewPipeline builds a pipeline over stages, or DefaultStages when none are
// given.
func NewPipeline(logger *slog.Logger, options Options, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return &Pipeline{stages: stages, options: options, logger: logger}
}

// Run computes the assignments for roundCode. comp is never mutated; callers
// that change a document must pass a new pointer for the schedule index to be
// rebuilt. An erroring or panicking stage contributes nothing and the
// following stages still run.
func (p *Pipeline) Run(comp *wcif.Competition, roundCode string) Result {
	index := p.cache.Index(comp)

	var all []assignments.InProgress
	reports := make([]StageReport, 0, len(p.stages))
	for _, stage := range p.stages {
		in := Input{
			Competition: comp,
			Index:       index,
			RoundCode:   roundCode,
			Prior:       all[:len(all):len(all)],
			Options:     p.options,
			Logger:      p.logger,
		}

		start := time.Now()
		out, err := runStage(stage, in)
		report := StageReport{Stage: stage.Name(), Duration: time.Since(start)}
		if err != nil {
			report.Error = err.Error()
			p.logger.Warn("Group generation stage failed",
				slog.String("stage", stage.Name()),
				slog.String("round", roundCode),
				slog.Any("error", err),
			)
			reports = append(reports, report)
			continue
		}

		report.Added = len(out.Assignments)
		report.Skipped = out.Skipped
		reports = append(reports, report)
		all = append(all, out.Assignments...)
	}

	return Result{Assignments: all, Reports: reports}
}

func runStage(stage Stage, in Input) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = Output{}
			err = fmt.Errorf("%w: %s: %v", ErrStagePanicked, stage.Name(), r)
		}
	}()
	return stage.Generate(in)
}
