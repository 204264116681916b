package groupsservice

import (
	"context"

	"github.com/uptrace/bun"

	groupsdb "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/repositories"
)

// ------------------------
// Fake Groups Repo
// ------------------------

// FakeGroupsRepo stores competitions in memory unless a Func override is set.
type FakeGroupsRepo struct {
	trace []string

	competitions map[string]*groupsdb.Competition
	runs         []groupsdb.GenerationRun

	GetCompetitionFunc      func(ctx context.Context, db bun.IDB, id string) (*groupsdb.Competition, error)
	UpsertCompetitionFunc   func(ctx context.Context, db bun.IDB, comp *groupsdb.Competition) error
	UpdateDocumentFunc      func(ctx context.Context, db bun.IDB, comp *groupsdb.Competition, expectedVersion int64) error
	InsertGenerationRunFunc func(ctx context.Context, db bun.IDB, run *groupsdb.GenerationRun) error
	ListGenerationRunsFunc  func(ctx context.Context, db bun.IDB, competitionID string, limit int) ([]groupsdb.GenerationRun, error)
}

func NewFakeGroupsRepo(seed ...*groupsdb.Competition) *FakeGroupsRepo {
	f := &FakeGroupsRepo{
		trace:        []string{},
		competitions: map[string]*groupsdb.Competition{},
	}
	for _, c := range seed {
		if c.Version == 0 {
			c.Version = 1
		}
		f.competitions[c.ID] = c
	}
	return f
}

func (f *FakeGroupsRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeGroupsRepo) GetCompetition(ctx context.Context, db bun.IDB, id string) (*groupsdb.Competition, error) {
	f.record("GetCompetition")
	if f.GetCompetitionFunc != nil {
		return f.GetCompetitionFunc(ctx, db, id)
	}
	c, ok := f.competitions[id]
	if !ok {
		return nil, groupsdb.ErrNotFound
	}
	doc, err := c.Document.Clone()
	if err != nil {
		return nil, err
	}
	out := *c
	out.Document = doc
	return &out, nil
}

func (f *FakeGroupsRepo) UpsertCompetition(ctx context.Context, db bun.IDB, comp *groupsdb.Competition) error {
	f.record("UpsertCompetition")
	if f.UpsertCompetitionFunc != nil {
		return f.UpsertCompetitionFunc(ctx, db, comp)
	}
	comp.Version = 1
	if prev, ok := f.competitions[comp.ID]; ok {
		comp.Version = prev.Version + 1
	}
	stored := *comp
	f.competitions[comp.ID] = &stored
	return nil
}

func (f *FakeGroupsRepo) UpdateDocument(ctx context.Context, db bun.IDB, comp *groupsdb.Competition, expectedVersion int64) error {
	f.record("UpdateDocument")
	if f.UpdateDocumentFunc != nil {
		return f.UpdateDocumentFunc(ctx, db, comp, expectedVersion)
	}
	prev, ok := f.competitions[comp.ID]
	if !ok || prev.Version != expectedVersion {
		return groupsdb.ErrVersionConflict
	}
	comp.Version = expectedVersion + 1
	stored := *comp
	f.competitions[comp.ID] = &stored
	return nil
}

func (f *FakeGroupsRepo) InsertGenerationRun(ctx context.Context, db bun.IDB, run *groupsdb.GenerationRun) error {
	f.record("InsertGenerationRun")
	if f.InsertGenerationRunFunc != nil {
		return f.InsertGenerationRunFunc(ctx, db, run)
	}
	f.runs = append(f.runs, *run)
	return nil
}

func (f *FakeGroupsRepo) ListGenerationRuns(ctx context.Context, db bun.IDB, competitionID string, limit int) ([]groupsdb.GenerationRun, error) {
	f.record("ListGenerationRuns")
	if f.ListGenerationRunsFunc != nil {
		return f.ListGenerationRunsFunc(ctx, db, competitionID, limit)
	}
	var out []groupsdb.GenerationRun
	for i := len(f.runs) - 1; i >= 0; i-- {
		if f.runs[i].CompetitionID == competitionID {
			out = append(out, f.runs[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Accessors for assertions ---

func (f *FakeGroupsRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeGroupsRepo) Stored(id string) *groupsdb.Competition {
	return f.competitions[id]
}

// Ensure the fake actually satisfies the interface
var _ groupsdb.Repository = (*FakeGroupsRepo)(nil)
