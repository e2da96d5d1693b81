// Package syncengine drains the mutation queue against the remote service.
// The engine owns the client's network state and guarantees that at most one
// drain cycle runs at a time; concurrent triggers share the running cycle's
// result.
package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/client/notify"
	"github.com/aowusu/birthsync/internal/client/remote"
	"github.com/aowusu/birthsync/internal/client/repositories/queue"
	"github.com/aowusu/birthsync/internal/client/repositories/registrations"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/logging"
)

// DefaultMaxRetries is the retry ceiling for a queued mutation. An item that
// fails this many times is parked as failed until a manual resync.
const DefaultMaxRetries = 5

// NetworkState is a snapshot of the client's connectivity and sync activity.
type NetworkState struct {
	IsOnline     bool
	IsSyncing    bool
	LastSyncTime time.Time
	SyncErrors   []string
}

// ItemResult is the outcome of one queue item within a drain cycle.
type ItemResult struct {
	ID         string
	DocumentID string
	Success    bool
	Err        error
}

// Engine applies queued mutations to the remote service.
type Engine struct {
	queue      queue.Repository
	regs       registrations.Repository
	remote     remote.Service
	notifier   notify.Notifier
	logger     logging.Logger
	maxRetries int

	mu    sync.RWMutex
	state NetworkState

	drainGroup singleflight.Group
}

// New creates an Engine. A maxRetries of zero or less selects
// DefaultMaxRetries.
func New(queueRepo queue.Repository, regRepo registrations.Repository,
	rs remote.Service, notifier notify.Notifier, logger logging.Logger,
	maxRetries int) *Engine {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Engine{
		queue:      queueRepo,
		regs:       regRepo,
		remote:     rs,
		notifier:   notifier,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// SetOnline records the connectivity status reported by the network watcher.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	e.state.IsOnline = online
	e.mu.Unlock()
}

// Online reports the last known connectivity status.
func (e *Engine) Online() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.IsOnline
}

// State returns a copy of the current network state.
func (e *Engine) State() NetworkState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.state
	s.SyncErrors = append([]string(nil), e.state.SyncErrors...)
	return s
}

// Drain runs one drain cycle: every pending or failed-then-reset item is
// attempted once, oldest first, with items for the same document applied in
// order. When the engine believes it is offline the call is a no-op.
//
// Overlapping calls do not start a second cycle; they receive the results of
// the cycle already in flight.
func (e *Engine) Drain(ctx context.Context) ([]ItemResult, error) {
	v, err, _ := e.drainGroup.Do("drain", func() (any, error) {
		return e.drain(ctx)
	})
	if err != nil {
		return nil, err
	}
	results, _ := v.([]ItemResult)
	return results, nil
}

func (e *Engine) drain(ctx context.Context) ([]ItemResult, error) {
	if !e.Online() {
		return nil, nil
	}

	e.setSyncing(true)
	defer e.setSyncing(false)

	// A processing row with no drain running means a previous cycle was cut
	// short before settling it. Flip it back so it is picked up below.
	if n, err := e.queue.ResetProcessing(ctx); err != nil {
		return nil, fmt.Errorf("recovering interrupted items: %w", err)
	} else if n > 0 {
		e.logger.Warn(ctx, "recovered interrupted queue items", "count", n)
	}

	items, err := e.queue.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing queue: %w", err)
	}
	e.logger.Debug(ctx, "drain cycle started", "pending", len(items))

	var results []ItemResult
	var errs []string
	for _, group := range groupByDocument(items) {
		for _, item := range group {
			if ctx.Err() != nil {
				e.finish(errs)
				return results, ctx.Err()
			}

			res := e.apply(ctx, item)
			results = append(results, res)
			if !res.Success {
				if res.Err != nil {
					errs = append(errs, res.Err.Error())
				}
				// Later changes to this document must not overtake the
				// failed one; they wait for the next cycle.
				break
			}
		}
	}

	e.finish(errs)
	e.report(ctx, results)
	return results, nil
}

// apply pushes a single item to the remote service and settles its queue row.
func (e *Engine) apply(ctx context.Context, item *models.QueueItem) ItemResult {
	res := ItemResult{ID: item.ID, DocumentID: item.DocumentID}

	err := e.queue.UpdateState(ctx, item.ID, models.QueueStatusProcessing, item.RetryCount, item.LastError)
	if err != nil {
		res.Err = err
		return res
	}

	if err := e.dispatch(ctx, item); err != nil {
		res.Err = e.settleFailure(ctx, item, err)
		return res
	}

	if err := e.queue.Dequeue(ctx, item.ID); err != nil {
		e.logger.Error(ctx, "failed to remove completed queue item", "id", item.ID, "error", err)
	}
	if item.OperationType != models.OperationDelete {
		if err := e.regs.SetSyncStatus(ctx, item.DocumentID, models.SyncStatusSynced); err != nil {
			e.logger.Error(ctx, "failed to mark registration synced", "id", item.DocumentID, "error", err)
		}
	}

	res.Success = true
	return res
}

func (e *Engine) dispatch(ctx context.Context, item *models.QueueItem) error {
	switch item.OperationType {
	case models.OperationCreate:
		doc, err := e.remote.Create(ctx, item.CollectionName, item.Data)
		if err != nil {
			return err
		}
		e.adoptConfirmed(ctx, item, doc)
		return nil
	case models.OperationUpdate:
		return e.remote.Update(ctx, item.CollectionName, item.DocumentID, item.Data)
	case models.OperationDelete:
		return e.remote.Delete(ctx, item.CollectionName, item.DocumentID)
	default:
		return fmt.Errorf("unknown operation type %q", item.OperationType)
	}
}

// settleFailure increments the item's retry count and either requeues it or,
// at the ceiling, parks it as failed.
func (e *Engine) settleFailure(ctx context.Context, item *models.QueueItem, cause error) error {
	retries := item.RetryCount + 1

	if retries < e.maxRetries {
		err := e.queue.UpdateState(ctx, item.ID, models.QueueStatusPending, retries, cause.Error())
		if err != nil {
			e.logger.Error(ctx, "failed to requeue item", "id", item.ID, "error", err)
		}
		e.logger.Warn(ctx, "sync attempt failed",
			"document_id", item.DocumentID, "attempt", retries, "error", cause)
		return cause
	}

	err := e.queue.UpdateState(ctx, item.ID, models.QueueStatusFailed, retries, cause.Error())
	if err != nil {
		e.logger.Error(ctx, "failed to park exhausted item", "id", item.ID, "error", err)
	}
	if item.OperationType != models.OperationDelete {
		if err := e.regs.SetSyncStatus(ctx, item.DocumentID, models.SyncStatusFailed); err != nil {
			e.logger.Error(ctx, "failed to mark registration failed", "id", item.DocumentID, "error", err)
		}
	}

	e.notifier.Publish(ctx, notify.Notification{
		Type:    notify.TypeError,
		Message: fmt.Sprintf("a change could not be synchronized after %d attempts; use resync to try again", retries),
	})
	return fmt.Errorf("%w: %s after %d attempts: %v", common.ErrQueueExhausted, item.DocumentID, retries, cause)
}

// adoptConfirmed copies server-assigned fields, currently just the
// registration number, onto the local record after a successful create.
func (e *Engine) adoptConfirmed(ctx context.Context, item *models.QueueItem, doc *remote.Document) {
	if item.CollectionName != models.CollectionRegistrations || doc == nil {
		return
	}
	var confirmed models.Registration
	if err := json.Unmarshal(doc.Data, &confirmed); err != nil || confirmed.RegistrationNumber == "" {
		return
	}

	local, err := e.regs.Get(ctx, item.DocumentID)
	if err != nil || local == nil || local.RegistrationNumber == confirmed.RegistrationNumber {
		return
	}

	local.RegistrationNumber = confirmed.RegistrationNumber
	local.UpdatedAt = time.Now().UTC()
	if err := e.regs.Update(ctx, local); err != nil {
		e.logger.Error(ctx, "failed to adopt server registration number", "id", local.ID, "error", err)
	}
}

// ResetFailed flips failed items back to pending so the next drain picks them
// up. Retry counts are preserved.
func (e *Engine) ResetFailed(ctx context.Context) (int, error) {
	n, err := e.queue.ResetFailed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.notifier.Publish(ctx, notify.Notification{
			Type:    notify.TypeInfo,
			Message: fmt.Sprintf("%d failed change(s) queued for retry", n),
		})
	}
	return n, nil
}

func (e *Engine) setSyncing(v bool) {
	e.mu.Lock()
	e.state.IsSyncing = v
	e.mu.Unlock()
}

func (e *Engine) finish(errs []string) {
	e.mu.Lock()
	e.state.LastSyncTime = time.Now()
	e.state.SyncErrors = errs
	e.mu.Unlock()
}

func (e *Engine) report(ctx context.Context, results []ItemResult) {
	if len(results) == 0 {
		return
	}
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	if ok == len(results) {
		e.notifier.Publish(ctx, notify.Notification{
			Type:    notify.TypeSuccess,
			Message: fmt.Sprintf("synchronized %d offline change(s)", ok),
		})
		return
	}
	e.notifier.Publish(ctx, notify.Notification{
		Type:    notify.TypeWarning,
		Message: fmt.Sprintf("synchronization incomplete: %d of %d changes applied", ok, len(results)),
	})
}

// groupByDocument splits items into per-document runs, preserving both the
// order documents first appear and the timestamp order within each document.
func groupByDocument(items []*models.QueueItem) [][]*models.QueueItem {
	index := make(map[string]int, len(items))
	var groups [][]*models.QueueItem
	for _, item := range items {
		i, ok := index[item.DocumentID]
		if !ok {
			i = len(groups)
			index[item.DocumentID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], item)
	}
	return groups
}
