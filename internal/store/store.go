// Package store implements the geoquest storage contracts on SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/playperu/geoquest/internal/geoquest"
)

var (
	_ geoquest.GameStore     = (*SQLiteStore)(nil)
	_ geoquest.PointStore    = (*SQLiteStore)(nil)
	_ geoquest.ProgressStore = (*SQLiteStore)(nil)
	_ geoquest.AccountStore  = (*SQLiteStore)(nil)
)

type SQLiteStore struct {
	db *sqlx.DB
}

// New wraps an open database. Migrations must already have run.
func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: sqlx.NewDb(db, "sqlite3")}
}

// withTx runs fn in a transaction. fn must only use tx: the pool has a single
// connection and the transaction holds it.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newID() string { return uuid.NewString() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// notFound maps sql.ErrNoRows to the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return geoquest.ErrNotFound
	}
	return err
}

// mustAffect turns a zero-row update into ErrNotFound.
func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return geoquest.ErrNotFound
	}
	return nil
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
