// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"testing"

	"gorm.io/gorm"

	"github.com/sujalbistaa/crown/internal/db"
)

// Open returns a migrated in-memory SQLite database closed at test cleanup.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()

	database, err := db.Open("sqlite://:memory:")
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}

	tb.Cleanup(func() {
		_ = db.Close(database)
	})

	if err := db.Migrate(database); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}

	return database
}
