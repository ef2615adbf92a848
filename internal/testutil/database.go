// Package testutil provides test helpers shared across packages.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/roomrush/internal/model"
	"github.com/Veraticus/roomrush/internal/storage"
)

// TestDB is a migrated in-memory database.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Conditions []model.Condition
}

// SetupTestDB creates a migrated in-memory database seeded with conditions
// in priority order. It is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.HarborCourt, testutil.QuietGardens)
func SetupTestDB(t *testing.T, conditions ...model.Condition) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Conditions: conditions})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup func(context.Context, *storage.SQLiteStorage) error
	Conditions  []model.Condition
	Mappings    []model.RoomIDMapping
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(opts.Conditions) > 0 {
		if err := store.ReplaceConditions(ctx, opts.Conditions); err != nil {
			t.Fatalf("failed to seed conditions: %v", err)
		}
	}
	if len(opts.Mappings) > 0 {
		if err := store.ReplaceRoomIDMappings(ctx, opts.Mappings); err != nil {
			t.Fatalf("failed to seed room id mappings: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage:    store,
		Conditions: opts.Conditions,
		t:          t,
	}
}

// MustConditions returns the stored conditions or fails the test.
func (db *TestDB) MustConditions() []model.Condition {
	db.t.Helper()
	conditions, err := db.Storage.GetConditions(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load conditions: %v", err)
	}
	return conditions
}

// MustMappings returns the stored room id mappings or fails the test.
func (db *TestDB) MustMappings() []model.RoomIDMapping {
	db.t.Helper()
	mappings, err := db.Storage.GetRoomIDMappings(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load room id mappings: %v", err)
	}
	return mappings
}
