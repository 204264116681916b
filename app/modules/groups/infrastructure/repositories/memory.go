package groupsdb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// Memory implements Repository in process. It backs the offline CLI and
// ignores the db argument. Documents are cloned on the way in and out.
type Memory struct {
	mu    sync.RWMutex
	comps map[string]*Competition
	runs  map[string][]GenerationRun
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *Memory {
	return &Memory{
		comps: map[string]*Competition{},
		runs:  map[string][]GenerationRun{},
	}
}

var _ Repository = (*Memory)(nil)

func cloneCompetition(c *Competition) (*Competition, error) {
	out := *c
	if c.Document != nil {
		doc, err := c.Document.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone document: %w", err)
		}
		out.Document = doc
	}
	return &out, nil
}

func (m *Memory) GetCompetition(_ context.Context, _ bun.IDB, id string) (*Competition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	comp, ok := m.comps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCompetition(comp)
}

func (m *Memory) UpsertCompetition(_ context.Context, _ bun.IDB, comp *Competition) error {
	stored, err := cloneCompetition(comp)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	stored.UpdatedAt = now
	if prev, ok := m.comps[comp.ID]; ok {
		stored.Version = prev.Version + 1
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.Version = 1
		stored.CreatedAt = now
	}
	m.comps[comp.ID] = stored
	comp.Version = stored.Version
	return nil
}

func (m *Memory) UpdateDocument(_ context.Context, _ bun.IDB, comp *Competition, expectedVersion int64) error {
	stored, err := cloneCompetition(comp)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.comps[comp.ID]
	if !ok || prev.Version != expectedVersion {
		return ErrVersionConflict
	}
	stored.Version = expectedVersion + 1
	stored.CreatedAt = prev.CreatedAt
	stored.UpdatedAt = time.Now()
	m.comps[comp.ID] = stored
	comp.Version = stored.Version
	return nil
}

func (m *Memory) InsertGenerationRun(_ context.Context, _ bun.IDB, run *GenerationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	m.runs[run.CompetitionID] = append(m.runs[run.CompetitionID], *run)
	return nil
}

func (m *Memory) ListGenerationRuns(_ context.Context, _ bun.IDB, competitionID string, limit int) ([]GenerationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.runs[competitionID]
	runs := make([]GenerationRun, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		runs = append(runs, stored[i])
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
