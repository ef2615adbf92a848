package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/roomrush/internal/model"
)

// SaveRun records a finished run.
func (s *SQLiteStorage) SaveRun(ctx context.Context, r model.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(r); err != nil {
		return err
	}

	finished := r.FinishedAt
	if finished.IsZero() {
		finished = r.StartedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, applicant, mode, outcome, room_id, condition_key, detail, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.StartedAt.UTC(), finished.UTC(), r.Applicant, r.Mode, string(r.Outcome),
		r.RoomID, r.ConditionKey, r.Detail, r.Attempts)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of 0 returns all.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, applicant, mode, outcome, room_id, condition_key, detail, attempts
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Applicant, &r.Mode,
			&outcome, &r.RoomID, &r.ConditionKey, &r.Detail, &r.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Outcome = model.RunOutcome(outcome)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
