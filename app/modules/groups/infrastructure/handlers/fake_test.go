package groupshandlers

import (
	"context"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

// ------------------------
// Fake Groups Service
// ------------------------

type FakeGroupsService struct {
	trace []string

	ImportCompetitionFunc   func(ctx context.Context, doc *wcif.Competition) (*groupsservice.CompetitionInfo, error)
	GetCompetitionFunc      func(ctx context.Context, id string) (*groupsservice.CompetitionInfo, error)
	ConfigureGroupsFunc     func(ctx context.Context, id, roundCode string, cfg groupconfig.Config) (*groupsservice.CompetitionInfo, error)
	MaterializeGroupsFunc   func(ctx context.Context, id, roundCode string) (*groupsservice.MaterializeResult, error)
	PreviewAssignmentsFunc  func(ctx context.Context, id, roundCode string, opts *generators.Options) (*groupsservice.GenerationResult, error)
	GenerateAssignmentsFunc func(ctx context.Context, req groupsservice.GenerateRequest) (*groupsservice.GenerationResult, error)
	ExportAssignmentsFunc   func(ctx context.Context, id, roundCode string) ([]byte, error)
	ListGenerationRunsFunc  func(ctx context.Context, id string, limit int) ([]groupsservice.RunSummary, error)
}

func NewFakeGroupsService() *FakeGroupsService {
	return &FakeGroupsService{
		trace: []string{},
	}
}

func (f *FakeGroupsService) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Service Interface Implementation ---

func (f *FakeGroupsService) ImportCompetition(ctx context.Context, doc *wcif.Competition) (*groupsservice.CompetitionInfo, error) {
	f.record("ImportCompetition")
	if f.ImportCompetitionFunc != nil {
		return f.ImportCompetitionFunc(ctx, doc)
	}
	return &groupsservice.CompetitionInfo{ID: doc.ID, Name: doc.Name, Version: 1}, nil
}

func (f *FakeGroupsService) GetCompetition(ctx context.Context, id string) (*groupsservice.CompetitionInfo, error) {
	f.record("GetCompetition")
	if f.GetCompetitionFunc != nil {
		return f.GetCompetitionFunc(ctx, id)
	}
	return nil, nil
}

func (f *FakeGroupsService) ConfigureGroups(ctx context.Context, id, roundCode string, cfg groupconfig.Config) (*groupsservice.CompetitionInfo, error) {
	f.record("ConfigureGroups")
	if f.ConfigureGroupsFunc != nil {
		return f.ConfigureGroupsFunc(ctx, id, roundCode, cfg)
	}
	return nil, nil
}

func (f *FakeGroupsService) MaterializeGroups(ctx context.Context, id, roundCode string) (*groupsservice.MaterializeResult, error) {
	f.record("MaterializeGroups")
	if f.MaterializeGroupsFunc != nil {
		return f.MaterializeGroupsFunc(ctx, id, roundCode)
	}
	return nil, nil
}

func (f *FakeGroupsService) PreviewAssignments(ctx context.Context, id, roundCode string, opts *generators.Options) (*groupsservice.GenerationResult, error) {
	f.record("PreviewAssignments")
	if f.PreviewAssignmentsFunc != nil {
		return f.PreviewAssignmentsFunc(ctx, id, roundCode, opts)
	}
	return nil, nil
}

func (f *FakeGroupsService) GenerateAssignments(ctx context.Context, req groupsservice.GenerateRequest) (*groupsservice.GenerationResult, error) {
	f.record("GenerateAssignments")
	if f.GenerateAssignmentsFunc != nil {
		return f.GenerateAssignmentsFunc(ctx, req)
	}
	return nil, nil
}

func (f *FakeGroupsService) ExportAssignments(ctx context.Context, id, roundCode string) ([]byte, error) {
	f.record("ExportAssignments")
	if f.ExportAssignmentsFunc != nil {
		return f.ExportAssignmentsFunc(ctx, id, roundCode)
	}
	return nil, nil
}

func (f *FakeGroupsService) ListGenerationRuns(ctx context.Context, id string, limit int) ([]groupsservice.RunSummary, error) {
	f.record("ListGenerationRuns")
	if f.ListGenerationRunsFunc != nil {
		return f.ListGenerationRunsFunc(ctx, id, limit)
	}
	return nil, nil
}

// --- Accessors for assertions ---

func (f *FakeGroupsService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ groupsservice.Service = (*FakeGroupsService)(nil)

// ------------------------
// Fake Enqueuer
// ------------------------

type FakeEnqueuer struct {
	Requests []groupsservice.GenerateRequest

	EnqueueGenerationFunc func(ctx context.Context, req groupsservice.GenerateRequest) (int64, error)
}

func (f *FakeEnqueuer) EnqueueGeneration(ctx context.Context, req groupsservice.GenerateRequest) (int64, error) {
	f.Requests = append(f.Requests, req)
	if f.EnqueueGenerationFunc != nil {
		return f.EnqueueGenerationFunc(ctx, req)
	}
	return int64(len(f.Requests)), nil
}
