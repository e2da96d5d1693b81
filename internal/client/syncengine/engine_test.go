package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aowusu/birthsync/internal/client/localstore"
	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/client/notify"
	"github.com/aowusu/birthsync/internal/client/remote"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/logging"
)

type fakeRemote struct {
	mu      sync.Mutex
	creates []string
	updates []string
	deletes []string

	createFn func(collection string, data json.RawMessage) (*remote.Document, error)
	updateFn func(collection, id string) error
	deleteFn func(collection, id string) error
}

func (f *fakeRemote) Ping(context.Context) error              { return nil }
func (f *fakeRemote) Login(context.Context, string, string) error { return nil }
func (f *fakeRemote) Logout()                                      {}
func (f *fakeRemote) Authenticated() bool                     { return true }
func (f *fakeRemote) UserID() string                          { return "user-1" }

func (f *fakeRemote) Create(_ context.Context, collection string, data json.RawMessage) (*remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(collection, data)
	}
	var reg models.Registration
	_ = json.Unmarshal(data, &reg)
	f.creates = append(f.creates, reg.ID)
	return &remote.Document{ID: reg.ID, Data: data}, nil
}

func (f *fakeRemote) Update(_ context.Context, collection, id string, _ json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateFn != nil {
		return f.updateFn(collection, id)
	}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteFn != nil {
		return f.deleteFn(collection, id)
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeRemote) Get(context.Context, string, string) (*remote.Document, error) {
	return nil, common.ErrNotFound
}

func (f *fakeRemote) Query(context.Context, string, remote.Query) (*remote.Page, error) {
	return &remote.Page{}, nil
}

type captureNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (c *captureNotifier) Publish(_ context.Context, n notify.Notification) {
	c.mu.Lock()
	c.notes = append(c.notes, n)
	c.mu.Unlock()
}

func (c *captureNotifier) ofType(typ notify.Type) []notify.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Notification
	for _, n := range c.notes {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fixture struct {
	store    *localstore.Store
	remote   *fakeRemote
	notifier *captureNotifier
	engine   *Engine
}

func newFixture(t *testing.T, maxRetries int) *fixture {
	t.Helper()
	store, err := localstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fr := &fakeRemote{}
	cn := &captureNotifier{}
	eng := New(store.Queue, store.Registrations, fr, cn, testLogger(), maxRetries)
	return &fixture{store: store, remote: fr, notifier: cn, engine: eng}
}

func (f *fixture) addPendingRegistration(t *testing.T, id string, op models.OperationType, ts time.Time) *models.Registration {
	t.Helper()
	ctx := context.Background()

	reg := &models.Registration{
		ID:                 id,
		UserID:             "user-1",
		RegistrationNumber: "OFFLINE-ACC-" + id,
		ChildName:          "Ama Mensah",
		Sex:                "female",
		DateOfBirth:        "2026-08-01",
		PlaceOfBirth:       "Accra",
		MotherName:         "Efua Mensah",
		Status:             models.RegistrationStatusSubmitted,
		SyncStatus:         models.SyncStatusPending,
	}
	if op == models.OperationCreate || op == models.OperationUpdate {
		require.NoError(t, f.store.Registrations.Update(context.Background(), reg))
	}

	data, err := json.Marshal(reg)
	require.NoError(t, err)
	require.NoError(t, f.store.Queue.Enqueue(ctx, &models.QueueItem{
		UserID:         "user-1",
		OperationType:  op,
		CollectionName: models.CollectionRegistrations,
		DocumentID:     id,
		Data:           data,
		Timestamp:      ts,
	}))
	return reg
}

func TestDrain_OfflineIsNoOp(t *testing.T) {
	f := newFixture(t, 0)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())

	results, err := f.engine.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)

	items, err := f.store.Queue.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueStatusPending, items[0].Status)
	assert.Empty(t, f.remote.creates)
}

func TestDrain_RecoversInterruptedProcessingItem(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetOnline(true)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())
	ctx := context.Background()

	// An earlier cycle was cut short after marking the item processing.
	items, err := f.store.Queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, f.store.Queue.UpdateState(ctx, items[0].ID,
		models.QueueStatusProcessing, items[0].RetryCount, ""))

	results, err := f.engine.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1, "the interrupted item is re-attempted")
	assert.True(t, results[0].Success)

	items, err = f.store.Queue.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDrain_Success(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetOnline(true)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())

	results, err := f.engine.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "reg-1", results[0].DocumentID)

	items, err := f.store.Queue.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "completed items are removed")

	reg, err := f.store.Registrations.Get(context.Background(), "reg-1")
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, models.SyncStatusSynced, reg.SyncStatus)

	assert.Len(t, f.notifier.ofType(notify.TypeSuccess), 1)

	state := f.engine.State()
	assert.False(t, state.IsSyncing)
	assert.False(t, state.LastSyncTime.IsZero())
	assert.Empty(t, state.SyncErrors)
}

func TestDrain_AdoptsServerRegistrationNumber(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetOnline(true)
	reg := f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())

	f.remote.createFn = func(_ string, data json.RawMessage) (*remote.Document, error) {
		var confirmed models.Registration
		require.NoError(t, json.Unmarshal(data, &confirmed))
		confirmed.RegistrationNumber = "BR-2026-00123"
		out, err := json.Marshal(confirmed)
		require.NoError(t, err)
		return &remote.Document{ID: confirmed.ID, Data: out}, nil
	}

	_, err := f.engine.Drain(context.Background())
	require.NoError(t, err)

	got, err := f.store.Registrations.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "BR-2026-00123", got.RegistrationNumber)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
}

func TestDrain_FailureRequeuesWithIncrementedRetry(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetOnline(true)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())

	f.remote.createFn = func(string, json.RawMessage) (*remote.Document, error) {
		return nil, errors.New("connection reset")
	}

	results, err := f.engine.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)

	items, err := f.store.Queue.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueStatusPending, items[0].Status)
	assert.Equal(t, 1, items[0].RetryCount)
	assert.Contains(t, items[0].LastError, "connection reset")

	state := f.engine.State()
	require.Len(t, state.SyncErrors, 1)
}

func TestDrain_RetryCeilingParksItemAsFailed(t *testing.T) {
	f := newFixture(t, 2)
	f.engine.SetOnline(true)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())

	f.remote.createFn = func(string, json.RawMessage) (*remote.Document, error) {
		return nil, errors.New("server rejected payload")
	}

	_, err := f.engine.Drain(context.Background())
	require.NoError(t, err)

	results, err := f.engine.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, common.ErrQueueExhausted)

	items, err := f.store.Queue.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueStatusFailed, items[0].Status)
	assert.Equal(t, 2, items[0].RetryCount)

	reg, err := f.store.Registrations.Get(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, reg.SyncStatus)

	require.NotEmpty(t, f.notifier.ofType(notify.TypeError))

	// A failed item is left alone by subsequent drains.
	results, err = f.engine.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDrain_FailedDocumentBlocksLaterItems(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetOnline(true)

	base := time.Now().UTC().Truncate(time.Second)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, base)
	f.addPendingRegistration(t, "reg-1", models.OperationUpdate, base.Add(time.Second))
	f.addPendingRegistration(t, "reg-2", models.OperationCreate, base.Add(2*time.Second))

	f.remote.createFn = func(_ string, data json.RawMessage) (*remote.Document, error) {
		var reg models.Registration
		_ = json.Unmarshal(data, &reg)
		if reg.ID == "reg-1" {
			return nil, errors.New("boom")
		}
		return &remote.Document{ID: reg.ID, Data: data}, nil
	}

	results, err := f.engine.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2, "the update for reg-1 must not run after its create failed")
	assert.False(t, results[0].Success)
	assert.Equal(t, "reg-1", results[0].DocumentID)
	assert.True(t, results[1].Success)
	assert.Equal(t, "reg-2", results[1].DocumentID)

	assert.Empty(t, f.remote.updates)
	assert.NotEmpty(t, f.notifier.ofType(notify.TypeWarning))
}

func TestDrain_PerDocumentOrder(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetOnline(true)

	base := time.Now().UTC().Truncate(time.Second)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, base)
	f.addPendingRegistration(t, "reg-1", models.OperationUpdate, base.Add(time.Second))
	f.addPendingRegistration(t, "reg-1", models.OperationDelete, base.Add(2*time.Second))

	results, err := f.engine.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"reg-1"}, f.remote.creates)
	assert.Equal(t, []string{"reg-1"}, f.remote.updates)
	assert.Equal(t, []string{"reg-1"}, f.remote.deletes)
}

func TestDrain_ConcurrentCallsShareOneCycle(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetOnline(true)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())

	started := make(chan struct{})
	release := make(chan struct{})
	f.remote.createFn = func(_ string, data json.RawMessage) (*remote.Document, error) {
		close(started)
		<-release
		var reg models.Registration
		_ = json.Unmarshal(data, &reg)
		return &remote.Document{ID: reg.ID, Data: data}, nil
	}

	type drainOut struct {
		results []ItemResult
		err     error
	}
	first := make(chan drainOut, 1)
	go func() {
		r, err := f.engine.Drain(context.Background())
		first <- drainOut{r, err}
	}()

	<-started
	assert.True(t, f.engine.State().IsSyncing)

	second := make(chan drainOut, 1)
	go func() {
		r, err := f.engine.Drain(context.Background())
		second <- drainOut{r, err}
	}()

	// Give the second caller time to join the in-flight cycle before the
	// remote call is released.
	time.Sleep(100 * time.Millisecond)
	close(release)

	a := <-first
	b := <-second
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	require.Len(t, a.results, 1)
	require.Len(t, b.results, 1, "second caller shares the in-flight cycle")

	items, err := f.store.Queue.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "the item was pushed exactly once")
}

func TestResetFailed(t *testing.T) {
	f := newFixture(t, 1)
	f.engine.SetOnline(true)
	f.addPendingRegistration(t, "reg-1", models.OperationCreate, time.Now().UTC())

	f.remote.createFn = func(string, json.RawMessage) (*remote.Document, error) {
		return nil, errors.New("boom")
	}
	_, err := f.engine.Drain(context.Background())
	require.NoError(t, err)

	n, err := f.engine.ResetFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, err := f.store.Queue.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueStatusPending, items[0].Status)
	assert.Equal(t, 1, items[0].RetryCount, "reset keeps the retry count")
}
