// Package remote is the client for the remote registry service: a keyed
// document store plus authentication, reached over an HTTP JSON API. The sync
// engine and the registration service depend only on the Service interface.
package remote

import (
	"context"
	"encoding/json"
)

// Document is one stored record as confirmed by the server.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Query describes a paged read of a collection.
type Query struct {
	Filters    map[string]string
	OrderBy    string
	Descending bool
	PageSize   int
	Cursor     string
}

// Page is one page of query results.
type Page struct {
	Documents  []Document `json:"documents"`
	NextCursor string     `json:"next_cursor"`
}

// Service is the remote persistence collaborator. All calls may fail with
// network, permission or validation errors; callers in the sync path treat
// every failure kind uniformly as "this attempt failed".
type Service interface {
	// Ping checks server reachability. Used by the network watcher.
	Ping(ctx context.Context) error

	// Login authenticates and establishes the session used by subsequent
	// calls.
	Login(ctx context.Context, username, password string) error

	// Logout drops the session. Local work continues without one.
	Logout()

	// Authenticated reports whether a non-expired session is held.
	Authenticated() bool

	// UserID returns the id of the logged-in user, or "".
	UserID() string

	// Create stores a new document. The payload carries the client-assigned
	// id; the server adopts it and returns the confirmed record, which may
	// include server-assigned fields such as the registration number.
	Create(ctx context.Context, collection string, data json.RawMessage) (*Document, error)

	// Update replaces the document's payload.
	Update(ctx context.Context, collection, documentID string, data json.RawMessage) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, documentID string) error

	// Get returns a document, or common.ErrNotFound.
	Get(ctx context.Context, collection, documentID string) (*Document, error)

	// Query returns a page of documents.
	Query(ctx context.Context, collection string, q Query) (*Page, error)
}
