package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/model"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

var (
	harbor = model.Condition{CommunityName: "Harbor Court", BuildingNo: 2, FloorRange: "3-5", MaxPrice: 2000, HouseType: model.HouseTypeTwoRoom}
	quiet  = model.Condition{CommunityName: "Quiet Gardens", MinArea: 40}
	maple  = model.Condition{CommunityName: "Maple Yard", HouseType: model.HouseTypeThreeRoom}
)

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage(" ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))
	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
	assert.Len(t, migrations, ExpectedSchemaVersion)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "migrations are numbered consecutively")
	}
}

func TestConditions_CRUD(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	got, err := store.GetConditions(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	for i, c := range []model.Condition{harbor, quiet, maple} {
		pos, addErr := store.AddCondition(ctx, c)
		require.NoError(t, addErr)
		assert.Equal(t, i+1, pos)
	}

	got, err = store.GetConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Condition{harbor, quiet, maple}, got)

	require.NoError(t, store.DeleteCondition(ctx, 2))
	got, err = store.GetConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Condition{harbor, maple}, got)

	pos, err := store.AddCondition(ctx, quiet)
	require.NoError(t, err)
	assert.Equal(t, 3, pos, "positions close up after a delete")

	assert.ErrorIs(t, store.DeleteCondition(ctx, 9), common.ErrNotFound)
	assert.ErrorIs(t, store.DeleteCondition(ctx, 0), ErrInvalidPosition)

	require.NoError(t, store.ReplaceConditions(ctx, []model.Condition{maple, harbor}))
	got, err = store.GetConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Condition{maple, harbor}, got)

	require.NoError(t, store.ClearConditions(ctx))
	got, err = store.GetConditions(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConditions_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.AddCondition(ctx, model.Condition{})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = store.AddCondition(ctx, model.Condition{CommunityName: "Harbor Court", FloorRange: "5-3"})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	err = store.ReplaceConditions(ctx, []model.Condition{harbor, {CommunityName: ""}})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	got, err := store.GetConditions(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "a rejected replace leaves the table untouched")
}

func TestRoomIDMappings(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	earlier := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.ReplaceRoomIDMappings(ctx, []model.RoomIDMapping{
		model.NewRoomIDMapping(harbor, []string{"R-1", "R-2"}, earlier),
		model.NewRoomIDMapping(quiet, nil, earlier),
	}))

	m, err := store.GetRoomIDMapping(ctx, harbor)
	require.NoError(t, err)
	assert.Equal(t, harbor.Key(), m.ConditionKey)
	assert.Equal(t, harbor, m.Condition)
	assert.Equal(t, []string{"R-1", "R-2"}, m.RoomIDs)
	assert.True(t, m.LastUpdated.Equal(earlier))

	all, err := store.GetRoomIDMappings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Harbor Court", all[0].Condition.CommunityName)
	assert.Empty(t, all[1].RoomIDs)

	_, err = store.GetRoomIDMapping(ctx, maple)
	assert.ErrorIs(t, err, common.ErrNotFound)

	n, err := store.ClearRoomIDMappings(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestReplaceRoomIDMappings(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.ReplaceRoomIDMappings(ctx, []model.RoomIDMapping{
		model.NewRoomIDMapping(harbor, []string{"R-1"}, at),
		model.NewRoomIDMapping(quiet, []string{"Q-1"}, at),
	}))

	require.NoError(t, store.ReplaceRoomIDMappings(ctx, []model.RoomIDMapping{
		model.NewRoomIDMapping(quiet, []string{"Q-2"}, at.Add(time.Hour)),
	}))
	all, err := store.GetRoomIDMappings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, quiet.Key(), all[0].ConditionKey)
	assert.Equal(t, []string{"Q-2"}, all[0].RoomIDs)
	assert.True(t, all[0].LastUpdated.Equal(at.Add(time.Hour)))

	bad := model.NewRoomIDMapping(harbor, []string{"R-1"}, time.Time{})
	assert.ErrorIs(t, store.ReplaceRoomIDMappings(ctx, []model.RoomIDMapping{bad}), ErrInvalidMapping)
	all, err = store.GetRoomIDMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "a rejected replace leaves the table untouched")

	require.NoError(t, store.ReplaceRoomIDMappings(ctx, nil))
	all, err = store.GetRoomIDMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRoomIDMappings_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bad := model.NewRoomIDMapping(harbor, []string{"R-1"}, time.Now())
	bad.ConditionKey = "stale"
	assert.ErrorIs(t, store.ReplaceRoomIDMappings(ctx, []model.RoomIDMapping{bad}), ErrInvalidMapping)

	undated := model.NewRoomIDMapping(harbor, []string{"R-1"}, time.Time{})
	assert.ErrorIs(t, store.ReplaceRoomIDMappings(ctx, []model.RoomIDMapping{undated}), ErrInvalidMapping)
}

func TestRuns(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := model.RunRecord{
		ID:         "run-1",
		StartedAt:  base,
		FinishedAt: base.Add(2 * time.Second),
		Applicant:  "Alice Zhang",
		Mode:       "http",
		Outcome:    model.OutcomeExhausted,
		Attempts:   6,
	}
	second := model.RunRecord{
		ID:           "run-2",
		StartedAt:    base.Add(time.Hour),
		Applicant:    "Alice Zhang",
		Mode:         "browser",
		Outcome:      model.OutcomeClaimed,
		RoomID:       "R-9",
		ConditionKey: harbor.Key(),
		Attempts:     1,
	}
	require.NoError(t, store.SaveRun(ctx, first))
	require.NoError(t, store.SaveRun(ctx, second))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, model.OutcomeClaimed, runs[0].Outcome)
	assert.Equal(t, "R-9", runs[0].RoomID)
	assert.Equal(t, harbor.Key(), runs[0].ConditionKey)
	assert.True(t, runs[0].FinishedAt.Equal(second.StartedAt), "missing finish time falls back to start")
	assert.Equal(t, 6, runs[1].Attempts)

	runs, err = store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	assert.ErrorIs(t, store.SaveRun(ctx, model.RunRecord{ID: "x"}), ErrInvalidRun)
	assert.Error(t, store.SaveRun(ctx, first), "duplicate ids are rejected")
}
