package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/model"
)

// GetRoomIDMappings returns every stored mapping ordered by community.
func (s *SQLiteStorage) GetRoomIDMappings(ctx context.Context) ([]model.RoomIDMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT condition_key, community, building, floors, max_price, min_area, house_type, room_ids, last_updated
		FROM room_id_mappings
		ORDER BY community, condition_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query room id mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.RoomIDMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// GetRoomIDMapping returns the mapping stored for c.
func (s *SQLiteStorage) GetRoomIDMapping(ctx context.Context, c model.Condition) (model.RoomIDMapping, error) {
	if err := validateContext(ctx); err != nil {
		return model.RoomIDMapping{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT condition_key, community, building, floors, max_price, min_area, house_type, room_ids, last_updated
		FROM room_id_mappings
		WHERE condition_key = ?
	`, c.Key())
	m, err := scanMapping(row)
	if err == sql.ErrNoRows {
		return model.RoomIDMapping{}, fmt.Errorf("room id mapping %s: %w", c.Key(), common.ErrNotFound)
	}
	return m, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(row scanner) (model.RoomIDMapping, error) {
	var m model.RoomIDMapping
	var houseType int
	var roomIDs string
	var lastUpdated time.Time
	err := row.Scan(
		&m.ConditionKey,
		&m.Condition.CommunityName,
		&m.Condition.BuildingNo,
		&m.Condition.FloorRange,
		&m.Condition.MaxPrice,
		&m.Condition.MinArea,
		&houseType,
		&roomIDs,
		&lastUpdated,
	)
	if err == sql.ErrNoRows {
		return m, err
	}
	if err != nil {
		return m, fmt.Errorf("failed to scan room id mapping: %w", err)
	}
	m.Condition.HouseType = model.HouseType(houseType)
	m.LastUpdated = lastUpdated
	if err := json.Unmarshal([]byte(roomIDs), &m.RoomIDs); err != nil {
		return m, fmt.Errorf("failed to decode room ids for %s: %w", m.ConditionKey, err)
	}
	return m, nil
}

// ReplaceRoomIDMappings swaps the whole stored set for mappings in one
// transaction. An empty slice leaves the table empty.
func (s *SQLiteStorage) ReplaceRoomIDMappings(ctx context.Context, mappings []model.RoomIDMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMappings(mappings); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_id_mappings`); err != nil {
			return fmt.Errorf("failed to clear room id mappings: %w", err)
		}
		return insertMappings(ctx, tx, mappings)
	})
}

func validateMappings(mappings []model.RoomIDMapping) error {
	for _, m := range mappings {
		if err := validateMapping(m); err != nil {
			return err
		}
	}
	return nil
}

func insertMappings(ctx context.Context, tx *sql.Tx, mappings []model.RoomIDMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO room_id_mappings
			(condition_key, community, building, floors, max_price, min_area, house_type, room_ids, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(condition_key) DO UPDATE SET
			room_ids = excluded.room_ids,
			last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range mappings {
		ids := m.RoomIDs
		if ids == nil {
			ids = []string{}
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to encode room ids: %w", err)
		}
		c := m.Condition
		if _, err := stmt.ExecContext(ctx,
			m.ConditionKey, c.CommunityName, c.BuildingNo, c.FloorRange,
			c.MaxPrice, c.MinArea, int(c.HouseType), string(data), m.LastUpdated.UTC(),
		); err != nil {
			return fmt.Errorf("failed to save room id mapping %s: %w", m.ConditionKey, err)
		}
	}
	return nil
}

// ClearRoomIDMappings deletes every mapping and returns how many were removed.
func (s *SQLiteStorage) ClearRoomIDMappings(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM room_id_mappings`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear room id mappings: %w", err)
	}
	return result.RowsAffected()
}
