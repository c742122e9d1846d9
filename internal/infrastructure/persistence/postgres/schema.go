package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema создает таблицы, если они еще не существуют.
// Вызывается при старте сервиса.
func InitSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			suite TEXT NOT NULL,
			commit_id TEXT NOT NULL,
			commit_message TEXT NOT NULL DEFAULT '',
			commit_timestamp TIMESTAMPTZ NOT NULL,
			commit_url TEXT NOT NULL DEFAULT '',
			commit_author TEXT NOT NULL DEFAULT '',
			commit_committer TEXT NOT NULL DEFAULT '',
			cpu_model TEXT NOT NULL DEFAULT '',
			cpu_speed_mhz DOUBLE PRECISION NOT NULL DEFAULT 0,
			cpu_physical_cores INT NOT NULL DEFAULT 0,
			cpu_logical_cores INT NOT NULL DEFAULT 0,
			extra JSONB,
			recorded_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_measurements (
			run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INT NOT NULL,
			name TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			unit TEXT NOT NULL,
			value_range TEXT NOT NULL DEFAULT '',
			bench_group TEXT NOT NULL DEFAULT '',
			extra TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_suite_recorded_at ON runs (suite, recorded_at DESC)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_suite_commit ON runs (suite, commit_id, recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_name ON run_measurements (name)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}
