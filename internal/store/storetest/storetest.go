// Package storetest opens migrated in-memory stores for tests.
package storetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/playperu/geoquest/internal/database"
	"github.com/playperu/geoquest/internal/migrations"
	"github.com/playperu/geoquest/internal/store"
)

// New returns a store over a fresh migrated in-memory database that is closed
// when the test ends.
func New(t testing.TB) *store.SQLiteStore {
	t.Helper()
	return store.New(DB(t))
}

// DB returns the raw migrated database.
func DB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return db
}
