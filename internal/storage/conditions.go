package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/model"
)

// GetConditions returns the stored conditions in priority order.
func (s *SQLiteStorage) GetConditions(ctx context.Context) ([]model.Condition, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getConditionsTx(ctx, s.db)
}

func getConditionsTx(ctx context.Context, q queryable) ([]model.Condition, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT community, building, floors, max_price, min_area, house_type
		FROM conditions
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conditions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var conditions []model.Condition
	for rows.Next() {
		var c model.Condition
		var houseType int
		if err := rows.Scan(&c.CommunityName, &c.BuildingNo, &c.FloorRange, &c.MaxPrice, &c.MinArea, &houseType); err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		c.HouseType = model.HouseType(houseType)
		conditions = append(conditions, c)
	}
	return conditions, rows.Err()
}

// AddCondition appends c at the lowest priority and returns its 1-based position.
func (s *SQLiteStorage) AddCondition(ctx context.Context, c model.Condition) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateCondition(c); err != nil {
		return 0, err
	}

	var position int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM conditions`).Scan(&position); err != nil {
			return fmt.Errorf("failed to compute position: %w", err)
		}
		return insertCondition(ctx, tx, position, c)
	})
	if err != nil {
		return 0, err
	}
	return position, nil
}

// DeleteCondition removes the condition at the 1-based position and closes the gap.
func (s *SQLiteStorage) DeleteCondition(ctx context.Context, position int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if position < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM conditions WHERE position = ?`, position)
		if err != nil {
			return fmt.Errorf("failed to delete condition: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check deleted rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("condition %d: %w", position, common.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE conditions SET position = position - 1 WHERE position > ?`, position); err != nil {
			return fmt.Errorf("failed to renumber conditions: %w", err)
		}
		return nil
	})
}

// ReplaceConditions swaps the whole list for conditions, keeping their order.
func (s *SQLiteStorage) ReplaceConditions(ctx context.Context, conditions []model.Condition) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i, c := range conditions {
		if err := validateCondition(c); err != nil {
			return fmt.Errorf("condition %d: %w", i+1, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conditions`); err != nil {
			return fmt.Errorf("failed to clear conditions: %w", err)
		}
		for i, c := range conditions {
			if err := insertCondition(ctx, tx, i+1, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearConditions removes every condition.
func (s *SQLiteStorage) ClearConditions(ctx context.Context) error {
	return s.ReplaceConditions(ctx, nil)
}

func insertCondition(ctx context.Context, q queryable, position int, c model.Condition) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO conditions (position, community, building, floors, max_price, min_area, house_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, position, c.CommunityName, c.BuildingNo, c.FloorRange, c.MaxPrice, c.MinArea, int(c.HouseType))
	if err != nil {
		return fmt.Errorf("failed to insert condition: %w", err)
	}
	return nil
}
