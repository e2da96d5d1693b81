// Package services contains the application services for the client. The
// registration service is the write path: every create, update and delete goes
// through it so the offline behavior is the same no matter which surface
// triggered the operation.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aowusu/birthsync/internal/client/localstore"
	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/client/notify"
	"github.com/aowusu/birthsync/internal/client/remote"
	"github.com/aowusu/birthsync/internal/client/repositories/queue"
	"github.com/aowusu/birthsync/internal/client/repositories/registrations"
	"github.com/aowusu/birthsync/internal/client/syncengine"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/logging"
)

// DefaultSearchTTL bounds how long remote search results may be served from
// the local cache.
const DefaultSearchTTL = 5 * time.Minute

// ValidationFailedError aggregates the field errors of a rejected form.
type ValidationFailedError struct {
	Errors []models.ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		msgs = append(msgs, ve.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Status is a point-in-time view of local sync health for the status screen.
type Status struct {
	Network syncengine.NetworkState
	Pending int
	Items   []*models.QueueItem
}

// RegistrationService defines the registration operations for the CLI.
//
// Contract:
//   - Create/Update/Delete never fail just because the server is unreachable;
//     the change is persisted locally and queued instead.
//   - Only a local storage failure propagates to the caller.
//   - Get/List read local data only. SearchRemote reads the server through a
//     short-lived cache.
type RegistrationService interface {
	Create(ctx context.Context, form models.RegistrationForm) (*models.Registration, error)
	Update(ctx context.Context, id string, form models.RegistrationForm) (*models.Registration, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Registration, error)
	List(ctx context.Context) ([]*models.Registration, error)
	SearchRemote(ctx context.Context, q remote.Query) (*remote.Page, error)
	Status(ctx context.Context) (*Status, error)
	RetryFailed(ctx context.Context) (int, error)
	DiscardOffline(ctx context.Context) (int, error)
}

type registrationService struct {
	remote     remote.Service
	store      *localstore.Store
	engine     *syncengine.Engine
	notifier   notify.Notifier
	logger     logging.Logger
	validate   models.Validator
	officeCode string
	searchTTL  time.Duration
}

// NewRegistrationService constructs the service. It takes the whole store
// rather than individual repositories because the write path needs record and
// queue writes in one transaction. officeCode becomes part of locally
// generated reference numbers so records from different registration offices
// stay distinguishable before the server assigns real numbers.
func NewRegistrationService(rs remote.Service, store *localstore.Store,
	engine *syncengine.Engine, notifier notify.Notifier, logger logging.Logger,
	officeCode string) RegistrationService {
	return &registrationService{
		remote:     rs,
		store:      store,
		engine:     engine,
		notifier:   notifier,
		logger:     logger,
		validate:   models.ValidateForm,
		officeCode: strings.ToUpper(officeCode),
		searchTTL:  DefaultSearchTTL,
	}
}

// Create registers a new birth record. The registration id is assigned here,
// before any network attempt, and is carried into the queued mutation, so the
// local record and the server record can never end up with different
// identities.
func (s *registrationService) Create(ctx context.Context, form models.RegistrationForm) (*models.Registration, error) {
	if errs := s.validate(form); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	refNumber, err := s.localRefNumber()
	if err != nil {
		return nil, err
	}

	status := form.Status
	if status == "" {
		status = models.RegistrationStatusDraft
	}

	now := time.Now().UTC()
	reg := &models.Registration{
		ID:                 uuid.NewString(),
		UserID:             s.remote.UserID(),
		RegistrationNumber: refNumber,
		ChildName:          form.ChildName,
		Sex:                form.Sex,
		DateOfBirth:        form.DateOfBirth,
		PlaceOfBirth:       form.PlaceOfBirth,
		MotherName:         form.MotherName,
		FatherName:         form.FatherName,
		Status:             status,
		SyncStatus:         models.SyncStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	ok, queuedNote, err := s.tryDirect(ctx, reg)
	if err != nil {
		return nil, err
	}
	if ok {
		return reg, nil
	}

	if err := s.persistQueued(ctx, reg, models.OperationCreate); err != nil {
		return nil, err
	}
	// Only now is the change durable; telling the user earlier would claim a
	// save that may not have happened.
	s.notifier.Publish(ctx, queuedNote)

	if s.engine.Online() {
		if _, err := s.engine.Drain(ctx); err != nil {
			s.logger.Warn(ctx, "drain after create failed", "error", err)
		}
		if fresh, err := s.store.Registrations.Get(ctx, reg.ID); err == nil && fresh != nil {
			reg = fresh
		}
	}
	return reg, nil
}

// tryDirect attempts the online fast path for a create. It reports whether
// the record was confirmed and stored; a remote failure is not an error, it
// just means the caller should fall back to the queued path. The returned
// notification describes that fallback and is published by the caller once
// the queued write is actually durable.
func (s *registrationService) tryDirect(ctx context.Context, reg *models.Registration) (bool, notify.Notification, error) {
	queuedNote := notify.Notification{
		Type:    notify.TypeInfo,
		Message: "offline: registration saved locally and queued for sync",
	}
	if !s.engine.Online() {
		return false, queuedNote, nil
	}
	if n, err := s.store.Queue.PendingCount(ctx); err != nil || n > 0 {
		// Earlier queued changes must reach the server first.
		queuedNote.Message = "registration saved locally, queued behind earlier changes"
		return false, queuedNote, nil
	}

	data, err := json.Marshal(reg)
	if err != nil {
		return false, queuedNote, fmt.Errorf("encoding registration: %w", err)
	}

	doc, err := s.remote.Create(ctx, models.CollectionRegistrations, data)
	if err != nil {
		s.logger.Warn(ctx, "online create failed, falling back to queue", "id", reg.ID, "error", err)
		queuedNote.Type = notify.TypeWarning
		queuedNote.Message = "server unreachable: registration saved locally and queued for sync"
		return false, queuedNote, nil
	}

	var confirmed models.Registration
	if err := json.Unmarshal(doc.Data, &confirmed); err == nil && confirmed.RegistrationNumber != "" {
		reg.RegistrationNumber = confirmed.RegistrationNumber
	}
	reg.SyncStatus = models.SyncStatusSynced

	if err := s.store.Registrations.Add(ctx, reg); err != nil {
		return false, queuedNote, err
	}
	s.notifier.Publish(ctx, notify.Notification{
		Type:    notify.TypeSuccess,
		Message: fmt.Sprintf("registration %s confirmed by the registry", reg.RegistrationNumber),
	})
	return true, queuedNote, nil
}

// persistQueued stores the record and enqueues the mutation in one
// transaction. This is the only path that may fail a write operation: if the
// local store rejects the pair there is nothing durable to sync later.
func (s *registrationService) persistQueued(ctx context.Context, reg *models.Registration, op models.OperationType) error {
	reg.SyncStatus = models.SyncStatusPending

	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encoding registration: %w", err)
	}

	return s.store.WithTx(ctx, func(ctx context.Context, regs registrations.Repository, q queue.Repository) error {
		switch op {
		case models.OperationCreate:
			if err := regs.Add(ctx, reg); err != nil {
				return err
			}
		case models.OperationUpdate:
			if err := regs.Update(ctx, reg); err != nil {
				return err
			}
		}
		return q.Enqueue(ctx, &models.QueueItem{
			UserID:         reg.UserID,
			OperationType:  op,
			CollectionName: models.CollectionRegistrations,
			DocumentID:     reg.ID,
			Data:           data,
		})
	})
}

func (s *registrationService) Update(ctx context.Context, id string, form models.RegistrationForm) (*models.Registration, error) {
	if errs := s.validate(form); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	reg, err := s.store.Registrations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, common.ErrNotFound
	}

	reg.ChildName = form.ChildName
	reg.Sex = form.Sex
	reg.DateOfBirth = form.DateOfBirth
	reg.PlaceOfBirth = form.PlaceOfBirth
	reg.MotherName = form.MotherName
	reg.FatherName = form.FatherName
	if form.Status != "" {
		reg.Status = form.Status
	}
	reg.UpdatedAt = time.Now().UTC()

	if err := s.persistQueued(ctx, reg, models.OperationUpdate); err != nil {
		return nil, err
	}
	if s.engine.Online() {
		if _, err := s.engine.Drain(ctx); err != nil {
			s.logger.Warn(ctx, "drain after update failed", "error", err)
		}
		if fresh, err := s.store.Registrations.Get(ctx, id); err == nil && fresh != nil {
			reg = fresh
		}
	}
	return reg, nil
}

func (s *registrationService) Delete(ctx context.Context, id string) error {
	reg, err := s.store.Registrations.Get(ctx, id)
	if err != nil {
		return err
	}
	if reg == nil {
		return common.ErrNotFound
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, regs registrations.Repository, q queue.Repository) error {
		if err := regs.Delete(ctx, id); err != nil {
			return err
		}
		return q.Enqueue(ctx, &models.QueueItem{
			UserID:         reg.UserID,
			OperationType:  models.OperationDelete,
			CollectionName: models.CollectionRegistrations,
			DocumentID:     id,
		})
	})
	if err != nil {
		return err
	}

	if s.engine.Online() {
		if _, err := s.engine.Drain(ctx); err != nil {
			s.logger.Warn(ctx, "drain after delete failed", "error", err)
		}
	}
	return nil
}

func (s *registrationService) Get(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.store.Registrations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, common.ErrNotFound
	}
	return reg, nil
}

func (s *registrationService) List(ctx context.Context) ([]*models.Registration, error) {
	return s.store.Registrations.GetAll(ctx)
}

// SearchRemote queries the registry, serving repeated identical queries from
// the local cache while a fresh entry exists. Offline, only a cached page can
// be returned.
func (s *registrationService) SearchRemote(ctx context.Context, q remote.Query) (*remote.Page, error) {
	key := searchCacheKey(q)

	if cached, err := s.store.Cache.Get(ctx, key); err == nil && cached != nil {
		var page remote.Page
		if err := json.Unmarshal(cached, &page); err == nil {
			return &page, nil
		}
	}

	if !s.engine.Online() {
		return nil, fmt.Errorf("%w: search requires a connection", common.ErrUnavailable)
	}

	page, err := s.remote.Query(ctx, models.CollectionRegistrations, q)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(page); err == nil {
		if err := s.store.Cache.Set(ctx, key, data, s.searchTTL); err != nil {
			s.logger.Warn(ctx, "failed to cache search results", "error", err)
		}
	}
	return page, nil
}

func (s *registrationService) Status(ctx context.Context) (*Status, error) {
	items, err := s.store.Queue.List(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.Queue.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Network: s.engine.State(),
		Pending: pending,
		Items:   items,
	}, nil
}

// RetryFailed resurrects failed queue items and, when online, drains right
// away.
func (s *registrationService) RetryFailed(ctx context.Context) (int, error) {
	n, err := s.engine.ResetFailed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.engine.Online() {
		if _, err := s.engine.Drain(ctx); err != nil {
			s.logger.Warn(ctx, "drain after retry failed", "error", err)
		}
	}
	return n, nil
}

// DiscardOffline drops every queued mutation. Local records are kept; they
// simply stop being candidates for synchronization.
func (s *registrationService) DiscardOffline(ctx context.Context) (int, error) {
	items, err := s.store.Queue.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := s.store.Queue.Clear(ctx); err != nil {
		return 0, err
	}
	s.notifier.Publish(ctx, notify.Notification{
		Type:    notify.TypeInfo,
		Message: fmt.Sprintf("discarded %d queued change(s)", len(items)),
	})
	return len(items), nil
}

// localRefNumber builds the provisional reference shown to the user until the
// server assigns the real registration number.
func (s *registrationService) localRefNumber() (string, error) {
	suffix, err := common.MakeRandHexString(4)
	if err != nil {
		return "", fmt.Errorf("generating reference number: %w", err)
	}
	return fmt.Sprintf("OFFLINE-%s-%s", s.officeCode, strings.ToUpper(suffix)), nil
}

// searchCacheKey derives a stable cache key from the query. Filter keys are
// sorted so equal queries hash equal.
func searchCacheKey(q remote.Query) string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("search:")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s&", k, q.Filters[k])
	}
	fmt.Fprintf(&b, "order=%s&desc=%t&size=%d&cursor=%s", q.OrderBy, q.Descending, q.PageSize, q.Cursor)
	return b.String()
}
