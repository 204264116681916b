package groupsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a competition is not stored.
	ErrNotFound = errors.New("competition not found")
	// ErrVersionConflict is returned when a document changed since it was read.
	ErrVersionConflict = errors.New("competition version conflict")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new competition repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetCompetition retrieves a competition by id.
func (r *Impl) GetCompetition(ctx context.Context, db bun.IDB, id string) (*Competition, error) {
	db = r.resolveDB(db)
	comp := new(Competition)
	err := db.NewSelect().
		Model(comp).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return comp, nil
}

// UpsertCompetition creates or replaces a competition document.
func (r *Impl) UpsertCompetition(ctx context.Context, db bun.IDB, comp *Competition) error {
	db = r.resolveDB(db)
	comp.UpdatedAt = time.Now()
	if comp.Version == 0 {
		comp.Version = 1
	}
	_, err := db.NewInsert().
		Model(comp).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("document = EXCLUDED.document").
		Set("version = c.version + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("version").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert competition: %w", err)
	}
	return nil
}

// UpdateDocument writes the document guarded by the expected version.
func (r *Impl) UpdateDocument(ctx context.Context, db bun.IDB, comp *Competition, expectedVersion int64) error {
	db = r.resolveDB(db)
	comp.UpdatedAt = time.Now()
	result, err := db.NewUpdate().
		Model(comp).
		Column("document", "name", "updated_at").
		Set("version = version + 1").
		Where("id = ?", comp.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update competition document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	comp.Version = expectedVersion + 1
	return nil
}

// InsertGenerationRun stores a generation run.
func (r *Impl) InsertGenerationRun(ctx context.Context, db bun.IDB, run *GenerationRun) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(run).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert generation run: %w", err)
	}
	return nil
}

// ListGenerationRuns lists the runs of a competition, newest first.
func (r *Impl) ListGenerationRuns(ctx context.Context, db bun.IDB, competitionID string, limit int) ([]GenerationRun, error) {
	db = r.resolveDB(db)
	var runs []GenerationRun
	q := db.NewSelect().
		Model(&runs).
		Where("competition_id = ?", competitionID).
		OrderExpr("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list generation runs: %w", err)
	}
	return runs, nil
}
