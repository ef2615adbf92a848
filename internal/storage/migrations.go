package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS conditions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					position INTEGER NOT NULL,
					community TEXT NOT NULL,
					building INTEGER NOT NULL DEFAULT 0,
					floors TEXT NOT NULL DEFAULT '',
					max_price INTEGER NOT NULL DEFAULT 0,
					min_area INTEGER NOT NULL DEFAULT 0,
					house_type INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_conditions_position ON conditions(position)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add pre-fetched room id mappings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS room_id_mappings (
					condition_key TEXT PRIMARY KEY,
					community TEXT NOT NULL,
					building INTEGER NOT NULL DEFAULT 0,
					floors TEXT NOT NULL DEFAULT '',
					max_price INTEGER NOT NULL DEFAULT 0,
					min_area INTEGER NOT NULL DEFAULT 0,
					house_type INTEGER NOT NULL DEFAULT 0,
					room_ids TEXT NOT NULL,
					last_updated DATETIME NOT NULL
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add run history",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					applicant TEXT NOT NULL,
					mode TEXT NOT NULL,
					outcome TEXT NOT NULL,
					room_id TEXT NOT NULL DEFAULT '',
					condition_key TEXT NOT NULL DEFAULT '',
					detail TEXT NOT NULL DEFAULT '',
					attempts INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_runs_started_at ON runs(started_at)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the database's current user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
