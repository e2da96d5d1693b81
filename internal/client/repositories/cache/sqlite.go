package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX

	// now is a test seam for expiry checks.
	now func() time.Time
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	now := r.now().UTC()
	query := `INSERT INTO cache (key, value, written_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				written_at = excluded.written_at,
				expires_at = excluded.expires_at`
	_, err := r.db.ExecContext(ctx, query, key, []byte(value), now, now.Add(ttl))
	if err != nil {
		return common.StorageError("set cache", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	entry := models.CacheEntry{Key: key}
	var value []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT value, written_at, expires_at FROM cache WHERE key = ?`, key).
		Scan(&value, &entry.WrittenAt, &entry.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.StorageError("get cache", key, err)
	}
	entry.Value = value

	if entry.Expired(r.now().UTC()) {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key); err != nil {
			return nil, common.StorageError("evict cache", key, err)
		}
		return nil, nil
	}

	return entry.Value, nil
}

func (r *SQLiteRepository) Sweep(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cache WHERE expires_at <= ?`, r.now().UTC())
	if err != nil {
		return 0, common.StorageError("sweep cache", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.StorageError("sweep cache", "", err)
	}
	return int(n), nil
}
