// Package localstore opens the client's durable local database and bundles
// the repositories stored in it: registrations, the mutation queue and the
// expiring cache. The database survives restarts; goose migrations bring its
// schema to the current version on open.
package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"golang.org/x/sync/singleflight"

	"github.com/aowusu/birthsync/internal/client/migrations"
	"github.com/aowusu/birthsync/internal/client/repositories/cache"
	"github.com/aowusu/birthsync/internal/client/repositories/queue"
	"github.com/aowusu/birthsync/internal/client/repositories/registrations"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/dbx"

	_ "modernc.org/sqlite"
)

// Store is the durable local store. All access to persisted client state goes
// through its repositories.
type Store struct {
	db *sql.DB

	Registrations registrations.Repository
	Queue         queue.Repository
	Cache         cache.Repository
}

var openGroup singleflight.Group

// Open opens (creating or upgrading if necessary) the local database at dsn.
// Use ":memory:" for an in-memory database in tests. Failures are reported as
// common.ErrStorageUnavailable: without the local store there is no offline
// capability for the session.
//
// Concurrent callers opening the same dsn share a single open attempt and
// receive the same *Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	v, err, _ := openGroup.Do(dsn, func() (any, error) {
		return open(ctx, dsn)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", common.ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", common.ErrStorageUnavailable, err)
	}

	// SQLite in WAL mode supports many readers but a single writer; keep one
	// connection so writes serialize in the pool instead of failing busy.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: set pragma: %v", common.ErrStorageUnavailable, err)
		}
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", common.ErrStorageUnavailable, err)
	}

	return &Store{
		db:            db,
		Registrations: registrations.NewSQLiteRepository(db),
		Queue:         queue.NewSQLiteRepository(db),
		Cache:         cache.NewSQLiteRepository(db),
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// WithTx runs fn with registration and queue repositories bound to a single
// transaction. A record write and its queued mutation must land together or
// not at all; a record without its queue item would never be synchronized.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, regs registrations.Repository, q queue.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, registrations.NewSQLiteRepository(tx), queue.NewSQLiteRepository(tx))
	})
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying connection for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}
