package models

import (
	"encoding/json"
	"time"
)

// OperationType classifies a queued mutation.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// QueueItemStatus is the state of a queued mutation.
//
// Transitions:
//
//	pending --(drain attempt starts)--> processing
//	processing --(remote ack)--> completed (row removed)
//	processing --(failure, retries left)--> pending
//	processing --(failure, ceiling reached)--> failed
//	failed --(manual resync)--> pending (retry count is kept)
type QueueItemStatus string

const (
	QueueStatusPending    QueueItemStatus = "pending"
	QueueStatusProcessing QueueItemStatus = "processing"
	QueueStatusCompleted  QueueItemStatus = "completed"
	QueueStatusFailed     QueueItemStatus = "failed"
)

// QueueItem is one outstanding write intended for the remote service. For
// create operations DocumentID equals the pre-assigned Registration.ID, which
// keeps local and remote identities from forking.
type QueueItem struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	OperationType  OperationType   `json:"operation_type"`
	CollectionName string          `json:"collection_name"`
	DocumentID     string          `json:"document_id"`
	Data           json.RawMessage `json:"data"`
	Timestamp      time.Time       `json:"timestamp"`
	RetryCount     int             `json:"retry_count"`
	Status         QueueItemStatus `json:"status"`
	LastError      string          `json:"last_error"`
}
