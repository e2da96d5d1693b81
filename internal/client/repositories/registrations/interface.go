package registrations

import (
	"context"

	"github.com/aowusu/birthsync/internal/client/models"
)

// Repository describes CRUD and query operations for locally stored birth
// registrations. Implementations are backed by the local SQLite database.
type Repository interface {
	// Add inserts a new registration. A blank ID is replaced with a fresh
	// UUID. Inserting a registration number that already exists fails with
	// common.ErrDuplicateKey.
	Add(ctx context.Context, reg *models.Registration) error

	// Get returns a registration by id, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*models.Registration, error)

	// GetAll returns all registrations, oldest first.
	GetAll(ctx context.Context) ([]*models.Registration, error)

	// Update upserts a registration by primary id.
	Update(ctx context.Context, reg *models.Registration) error

	// Delete removes a registration by id. Deleting a missing id is not an
	// error.
	Delete(ctx context.Context, id string) error

	// SetSyncStatus updates only the sync status of a registration. Unknown
	// ids are ignored (the queue may reference entities deleted by the user).
	SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error
}
