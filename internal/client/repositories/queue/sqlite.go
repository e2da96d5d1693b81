package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const queueColumns = `id, user_id, operation_type, collection_name, document_id,
	data, timestamp, retry_count, status, last_error`

func (r *SQLiteRepository) Enqueue(ctx context.Context, item *models.QueueItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	item.RetryCount = 0
	item.Status = models.QueueStatusPending

	query := `INSERT INTO sync_queue (` + queueColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.OperationType, item.CollectionName,
		item.DocumentID, []byte(item.Data), item.Timestamp, item.RetryCount,
		item.Status, item.LastError)
	if err != nil {
		return common.StorageError("enqueue", item.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.QueueItem, error) {
	return r.list(ctx, `SELECT `+queueColumns+` FROM sync_queue ORDER BY timestamp, rowid`)
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.QueueItem, error) {
	return r.list(ctx, `SELECT `+queueColumns+` FROM sync_queue
			WHERE status = ? ORDER BY timestamp, rowid`,
		models.QueueStatusPending)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.StorageError("list queue", "", err)
	}
	defer rows.Close()

	var result []*models.QueueItem
	for rows.Next() {
		item := &models.QueueItem{}
		var data []byte
		if err := rows.Scan(&item.ID, &item.UserID, &item.OperationType,
			&item.CollectionName, &item.DocumentID, &data, &item.Timestamp,
			&item.RetryCount, &item.Status, &item.LastError); err != nil {
			return nil, common.StorageError("scan queue item", "", err)
		}
		item.Data = data
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError("list queue", "", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Dequeue(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return common.StorageError("dequeue", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`)
	if err != nil {
		return common.StorageError("clear queue", "", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateState(ctx context.Context, id string, status models.QueueItemStatus, retryCount int, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, retry_count = ?, last_error = ? WHERE id = ?`,
		status, retryCount, lastError, id)
	if err != nil {
		return common.StorageError("update queue item", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ResetFailed(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ? WHERE status = ?`,
		models.QueueStatusPending, models.QueueStatusFailed)
	if err != nil {
		return 0, common.StorageError("reset failed items", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.StorageError("reset failed items", "", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) ResetProcessing(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ? WHERE status = ?`,
		models.QueueStatusPending, models.QueueStatusProcessing)
	if err != nil {
		return 0, common.StorageError("reset processing items", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.StorageError("reset processing items", "", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status = ?`,
		models.QueueStatusPending).Scan(&n)
	if err != nil {
		return 0, common.StorageError("count pending", "", err)
	}
	return n, nil
}
