// Package dbtest provides migrated in-memory databases for tests.
package dbtest

import (
	"testing"

	"gorm.io/gorm"

	"clinical-lab-server/internal/database"
)

// Open returns a freshly migrated in-memory SQLite database that is closed
// when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Store returns a Store over a fresh test database.
func Store(t testing.TB) database.Store {
	t.Helper()
	return database.NewStore(Open(t))
}
