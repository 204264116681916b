package groupsservice

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/schedule"
	groupsdb "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/repositories"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/results"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

type infoResult = results.OperationResult[*CompetitionInfo, error]

// ImportCompetition stores a WCIF document, replacing any previous version.
func (s *GroupsService) ImportCompetition(ctx context.Context, doc *wcif.Competition) (*CompetitionInfo, error) {
	id := ""
	if doc != nil {
		id = doc.ID
	}
	result, err := withTelemetry(s, ctx, "ImportCompetition", id, func(ctx context.Context) (infoResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (infoResult, error) {
			return s.importCompetitionLogic(ctx, db, doc)
		})
	})
	return unwrap(result, err)
}

func (s *GroupsService) importCompetitionLogic(ctx context.Context, db bun.IDB, doc *wcif.Competition) (infoResult, error) {
	if doc == nil || doc.ID == "" {
		return results.FailureResult[*CompetitionInfo, error](fmt.Errorf("%w: missing competition id", ErrInvalidCompetition)), nil
	}

	comp := &groupsdb.Competition{ID: doc.ID, Name: doc.Name, Document: doc}
	if err := s.repo.UpsertCompetition(ctx, db, comp); err != nil {
		return infoResult{}, fmt.Errorf("failed to store competition: %w", err)
	}
	return results.SuccessResult[*CompetitionInfo, error](info(comp, false)), nil
}

// GetCompetition returns a stored document.
func (s *GroupsService) GetCompetition(ctx context.Context, id string) (*CompetitionInfo, error) {
	result, err := withTelemetry(s, ctx, "GetCompetition", id, func(ctx context.Context) (infoResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (infoResult, error) {
			comp, err := s.repo.GetCompetition(ctx, db, id)
			if err != nil {
				return loadFailure[*CompetitionInfo](id, err)
			}
			return results.SuccessResult[*CompetitionInfo, error](info(comp, true)), nil
		})
	})
	return unwrap(result, err)
}

// ConfigureGroups stores the group count configuration on a round.
func (s *GroupsService) ConfigureGroups(ctx context.Context, id, roundCode string, cfg groupconfig.Config) (*CompetitionInfo, error) {
	result, err := withTelemetry(s, ctx, "ConfigureGroups", id+"/"+roundCode, func(ctx context.Context) (infoResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (infoResult, error) {
			return s.configureGroupsLogic(ctx, db, id, roundCode, cfg)
		})
	})
	return unwrap(result, err)
}

func (s *GroupsService) configureGroupsLogic(ctx context.Context, db bun.IDB, id, roundCode string, cfg groupconfig.Config) (infoResult, error) {
	ac, err := parseRoundCode(roundCode)
	if err != nil {
		return results.FailureResult[*CompetitionInfo, error](err), nil
	}
	if err := cfg.Validate(); err != nil {
		return results.FailureResult[*CompetitionInfo, error](err), nil
	}

	comp, err := s.repo.GetCompetition(ctx, db, id)
	if err != nil {
		return loadFailure[*CompetitionInfo](id, err)
	}
	doc, err := comp.Document.Clone()
	if err != nil {
		return infoResult{}, err
	}
	round := findRound(doc, ac)
	if round == nil {
		return results.FailureResult[*CompetitionInfo, error](fmt.Errorf("%w: %s", ErrRoundNotFound, roundCode)), nil
	}

	updated, err := groupconfig.Write(*round, cfg)
	if err != nil {
		return results.FailureResult[*CompetitionInfo, error](err), nil
	}
	*round = updated

	version := comp.Version
	comp.Document = doc
	if err := s.repo.UpdateDocument(ctx, db, comp, version); err != nil {
		return saveFailure[*CompetitionInfo](id, err)
	}
	return results.SuccessResult[*CompetitionInfo, error](info(comp, false)), nil
}

type materializeResult = results.OperationResult[*MaterializeResult, error]

// MaterializeGroups creates the group activities of a round in every room
// that hosts it, using the round's stored configuration.
func (s *GroupsService) MaterializeGroups(ctx context.Context, id, roundCode string) (*MaterializeResult, error) {
	result, err := withTelemetry(s, ctx, "MaterializeGroups", id+"/"+roundCode, func(ctx context.Context) (materializeResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (materializeResult, error) {
			return s.materializeGroupsLogic(ctx, db, id, roundCode)
		})
	})
	return unwrap(result, err)
}

func (s *GroupsService) materializeGroupsLogic(ctx context.Context, db bun.IDB, id, roundCode string) (materializeResult, error) {
	ac, err := parseRoundCode(roundCode)
	if err != nil {
		return results.FailureResult[*MaterializeResult, error](err), nil
	}

	comp, err := s.repo.GetCompetition(ctx, db, id)
	if err != nil {
		return loadFailure[*MaterializeResult](id, err)
	}
	round := findRound(comp.Document, ac)
	if round == nil {
		return results.FailureResult[*MaterializeResult, error](fmt.Errorf("%w: %s", ErrRoundNotFound, roundCode)), nil
	}

	index := schedule.NewIndex(comp.Document)
	stages := index.RoundActivitiesFor(ac.String())
	if len(stages) == 0 {
		return results.FailureResult[*MaterializeResult, error](fmt.Errorf("%w: %s", ErrNoRoundActivities, roundCode)), nil
	}
	if len(index.GroupActivitiesForRound(ac.String())) > 0 {
		return results.FailureResult[*MaterializeResult, error](fmt.Errorf("%w: %s", ErrGroupsAlreadyExist, roundCode)), nil
	}

	cfg := groupconfig.Read(s.logger, *round, stages...)
	materialized, err := groupconfig.Materialize(comp.Document, stages, cfg)
	if err != nil {
		return results.FailureResult[*MaterializeResult, error](err), nil
	}
	doc, err := groupconfig.Apply(comp.Document, materialized)
	if err != nil {
		return materializeResult{}, fmt.Errorf("failed to apply groups: %w", err)
	}

	version := comp.Version
	comp.Document = doc
	if err := s.repo.UpdateDocument(ctx, db, comp, version); err != nil {
		return saveFailure[*MaterializeResult](id, err)
	}

	return results.SuccessResult[*MaterializeResult, error](&MaterializeResult{
		CompetitionID: id,
		RoundCode:     ac.String(),
		Version:       comp.Version,
		Config:        cfg,
		Groups:        materialized,
	}), nil
}
