package groupsservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	groupsexport "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/export"
	groupsdb "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/repositories"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/observability/attr"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/results"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

type generationResult = results.OperationResult[*GenerationResult, error]

// PreviewAssignments runs the generators without persisting anything. The
// returned stats describe what a generation would change.
func (s *GroupsService) PreviewAssignments(ctx context.Context, id, roundCode string, opts *generators.Options) (*GenerationResult, error) {
	result, err := withTelemetry(s, ctx, "PreviewAssignments", id+"/"+roundCode, func(ctx context.Context) (generationResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (generationResult, error) {
			comp, err := s.repo.GetCompetition(ctx, db, id)
			if err != nil {
				return loadFailure[*GenerationResult](id, err)
			}
			out, _, failure := s.generate(ctx, comp, roundCode, opts)
			if failure != nil {
				return results.FailureResult[*GenerationResult, error](failure), nil
			}
			return results.SuccessResult[*GenerationResult, error](out), nil
		})
	})
	return unwrap(result, err)
}

// GenerateAssignments runs the generators, merges their output into the stored
// document and records the run. The read, merge and write happen in one
// transaction guarded by the document version.
func (s *GroupsService) GenerateAssignments(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	result, err := withTelemetry(s, ctx, "GenerateAssignments", req.CompetitionID+"/"+req.RoundCode, func(ctx context.Context) (generationResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (generationResult, error) {
			return s.generateAssignmentsLogic(ctx, db, req)
		})
	})
	return unwrap(result, err)
}

func (s *GroupsService) generateAssignmentsLogic(ctx context.Context, db bun.IDB, req GenerateRequest) (generationResult, error) {
	comp, err := s.repo.GetCompetition(ctx, db, req.CompetitionID)
	if err != nil {
		return loadFailure[*GenerationResult](req.CompetitionID, err)
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != comp.Version {
		return results.FailureResult[*GenerationResult, error](fmt.Errorf("%w: expected version %d, stored %d", ErrVersionConflict, req.ExpectedVersion, comp.Version)), nil
	}

	out, merged, failure := s.generate(ctx, comp, req.RoundCode, req.Options)
	if failure != nil {
		return results.FailureResult[*GenerationResult, error](failure), nil
	}

	version := comp.Version
	comp.Document = merged
	if err := s.repo.UpdateDocument(ctx, db, comp, version); err != nil {
		return saveFailure[*GenerationResult](req.CompetitionID, err)
	}

	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerHTTP
	}
	run := &groupsdb.GenerationRun{
		ID:            out.RunID,
		CompetitionID: comp.ID,
		RoundCode:     out.RoundCode,
		Trigger:       trigger,
		Added:         out.Stats.Added,
		Replaced:      out.Stats.Replaced,
		Ignored:       out.Stats.Ignored,
		Reports:       out.Reports,
		Version:       comp.Version,
	}
	if err := s.repo.InsertGenerationRun(ctx, db, run); err != nil {
		return generationResult{}, fmt.Errorf("failed to record generation run: %w", err)
	}

	out.Version = comp.Version
	out.Persisted = true
	if s.metrics != nil {
		s.metrics.RecordAssignmentsGenerated(ctx, eventOf(out.RoundCode), out.Stats.Added+out.Stats.Replaced)
	}
	return results.SuccessResult[*GenerationResult, error](out), nil
}

// generate runs the pipeline and merges its output into a copy of the stored
// document. failure is set when the round cannot be generated at all.
func (s *GroupsService) generate(ctx context.Context, comp *groupsdb.Competition, roundCode string, opts *generators.Options) (out *GenerationResult, merged *wcif.Competition, failure error) {
	ac, err := parseRoundCode(roundCode)
	if err != nil {
		return nil, nil, err
	}
	if err := generators.CheckRound(comp.Document, ac.String()); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCannotGenerate, err)
	}

	run := s.pipeline(opts).Run(comp.Document, ac.String())
	for _, rep := range run.Reports {
		if s.metrics != nil {
			s.metrics.RecordStageOutcome(ctx, rep.Stage, rep.Added, len(rep.Skipped), rep.Error != "")
		}
		if len(rep.Skipped) > 0 {
			s.logger.WarnContext(ctx, "Generator stage skipped persons",
				attr.ExtractCorrelationID(ctx),
				attr.String("stage", rep.Stage),
				attr.String("round", ac.String()),
				attr.Any("registrant_ids", rep.Skipped),
			)
		}
	}

	merged, stats, err := generators.Merge(comp.Document, run.Assignments)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge assignments: %w", err)
	}

	return &GenerationResult{
		RunID:         uuid.New(),
		CompetitionID: comp.ID,
		RoundCode:     ac.String(),
		Version:       comp.Version,
		Assignments:   run.Assignments,
		Reports:       run.Reports,
		Stats:         stats,
	}, merged, nil
}

func eventOf(roundCode string) string {
	ac, err := parseRoundCode(roundCode)
	if err != nil {
		return roundCode
	}
	return ac.EventID
}

type exportResult = results.OperationResult[[]byte, error]

// ExportAssignments renders the round's persisted assignments as xlsx.
func (s *GroupsService) ExportAssignments(ctx context.Context, id, roundCode string) ([]byte, error) {
	result, err := withTelemetry(s, ctx, "ExportAssignments", id+"/"+roundCode, func(ctx context.Context) (exportResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (exportResult, error) {
			ac, err := parseRoundCode(roundCode)
			if err != nil {
				return results.FailureResult[[]byte, error](err), nil
			}
			comp, err := s.repo.GetCompetition(ctx, db, id)
			if err != nil {
				return loadFailure[[]byte](id, err)
			}
			data, err := groupsexport.Workbook(comp.Document, ac.String())
			if errors.Is(err, groupsexport.ErrNoGroups) {
				return results.FailureResult[[]byte, error](fmt.Errorf("%w: %w", ErrNothingToExport, err)), nil
			}
			if err != nil {
				return exportResult{}, err
			}
			return results.SuccessResult[[]byte, error](data), nil
		})
	})
	return unwrap(result, err)
}

type runsResult = results.OperationResult[[]RunSummary, error]

// ListGenerationRuns returns the most recent runs of a competition.
func (s *GroupsService) ListGenerationRuns(ctx context.Context, id string, limit int) ([]RunSummary, error) {
	result, err := withTelemetry(s, ctx, "ListGenerationRuns", id, func(ctx context.Context) (runsResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (runsResult, error) {
			if _, err := s.repo.GetCompetition(ctx, db, id); err != nil {
				return loadFailure[[]RunSummary](id, err)
			}
			runs, err := s.repo.ListGenerationRuns(ctx, db, id, limit)
			if err != nil {
				return runsResult{}, err
			}
			out := make([]RunSummary, 0, len(runs))
			for _, r := range runs {
				out = append(out, RunSummary{
					ID:        r.ID,
					RoundCode: r.RoundCode,
					Trigger:   r.Trigger,
					Stats:     generators.MergeStats{Added: r.Added, Replaced: r.Replaced, Ignored: r.Ignored},
					Reports:   r.Reports,
					Version:   r.Version,
					CreatedAt: r.CreatedAt,
				})
			}
			return results.SuccessResult[[]RunSummary, error](out), nil
		})
	})
	return unwrap(result, err)
}
