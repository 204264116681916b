package groupsmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating competitions and generation_runs tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS competitions (
					id VARCHAR(64) PRIMARY KEY,
					name TEXT NOT NULL,
					document JSONB NOT NULL,
					version BIGINT NOT NULL DEFAULT 1,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create competitions table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS generation_runs (
					id UUID PRIMARY KEY,
					competition_id VARCHAR(64) NOT NULL REFERENCES competitions(id) ON DELETE CASCADE,
					round_code TEXT NOT NULL,
					trigger TEXT NOT NULL,
					added INT NOT NULL DEFAULT 0,
					replaced INT NOT NULL DEFAULT 0,
					ignored INT NOT NULL DEFAULT 0,
					stage_reports JSONB,
					version BIGINT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_generation_runs_competition ON generation_runs(competition_id, created_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to create generation_runs table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping competitions and generation_runs tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS generation_runs;`); err != nil {
				return fmt.Errorf("failed to drop generation_runs table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS competitions;`); err != nil {
				return fmt.Errorf("failed to drop competitions table: %w", err)
			}
			return nil
		})
	})
}
