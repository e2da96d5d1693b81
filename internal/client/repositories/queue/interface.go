package queue

import (
	"context"

	"github.com/aowusu/birthsync/internal/client/models"
)

// Repository persists mutation queue items. Completed items are removed, not
// retained as history; failed items stay until manually retried or cleared.
type Repository interface {
	// Enqueue inserts a new item. A blank ID is replaced with a fresh UUID,
	// RetryCount is forced to 0 and Status to pending.
	Enqueue(ctx context.Context, item *models.QueueItem) error

	// List returns all items regardless of status, in insertion order.
	List(ctx context.Context) ([]*models.QueueItem, error)

	// ListPending returns pending items in insertion order, the set a drain
	// cycle operates on. Failed items are excluded until ResetFailed.
	ListPending(ctx context.Context) ([]*models.QueueItem, error)

	// Dequeue removes an item by id. Removing a missing id is not an error.
	Dequeue(ctx context.Context, id string) error

	// Clear removes all items. Used for "discard offline changes".
	Clear(ctx context.Context) error

	// UpdateState sets the status, retry count and last error of an item.
	UpdateState(ctx context.Context, id string, status models.QueueItemStatus, retryCount int, lastError string) error

	// ResetFailed flips all failed items back to pending, preserving their
	// retry counts. Returns the number of items reset.
	ResetFailed(ctx context.Context) (int, error)

	// ResetProcessing flips items stuck in processing back to pending. A row
	// stays processing only when a drain was cut short before settling it;
	// without the reset such a mutation would never be attempted again.
	ResetProcessing(ctx context.Context) (int, error)

	// PendingCount returns the number of items with status pending.
	PendingCount(ctx context.Context) (int, error)
}
