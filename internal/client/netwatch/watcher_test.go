package netwatch

import (
	"context"
	"encoding/json"
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
	"github.com/aowusu/birthsync/internal/client/syncengine"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/logging"
)

type fakeProber struct {
	mu        sync.Mutex
	reachable bool
}

func (f *fakeProber) set(v bool) {
	f.mu.Lock()
	f.reachable = v
	f.mu.Unlock()
}

func (f *fakeProber) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return common.ErrUnavailable
	}
	return nil
}

// stubRemote accepts every write. Only the methods the drain path touches
// matter here.
type stubRemote struct {
	mu      sync.Mutex
	creates int
}

func (s *stubRemote) Ping(context.Context) error                  { return nil }
func (s *stubRemote) Login(context.Context, string, string) error { return nil }
func (s *stubRemote) Logout()                                     {}
func (s *stubRemote) Authenticated() bool                         { return true }
func (s *stubRemote) UserID() string                              { return "user-1" }

func (s *stubRemote) Create(_ context.Context, _ string, data json.RawMessage) (*remote.Document, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return &remote.Document{Data: data}, nil
}

func (s *stubRemote) Update(context.Context, string, string, json.RawMessage) error { return nil }
func (s *stubRemote) Delete(context.Context, string, string) error                  { return nil }

func (s *stubRemote) Get(context.Context, string, string) (*remote.Document, error) {
	return nil, common.ErrNotFound
}

func (s *stubRemote) Query(context.Context, string, remote.Query) (*remote.Page, error) {
	return &remote.Page{}, nil
}

func (s *stubRemote) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
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

func (c *captureNotifier) types() []notify.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Type
	for _, n := range c.notes {
		out = append(out, n.Type)
	}
	return out
}

type fixture struct {
	store    *localstore.Store
	prober   *fakeProber
	remote   *stubRemote
	notifier *captureNotifier
	engine   *syncengine.Engine
	watcher  *Watcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := localstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	sr := &stubRemote{}
	cn := &captureNotifier{}
	eng := syncengine.New(store.Queue, store.Registrations, sr, cn, logger, 0)
	pr := &fakeProber{}
	w := New(pr, eng, cn, logger, time.Minute, time.Second)
	return &fixture{store: store, prober: pr, remote: sr, notifier: cn, engine: eng, watcher: w}
}

func enqueueCreate(t *testing.T, f *fixture, id string) {
	t.Helper()
	reg := &models.Registration{ID: id, ChildName: "Kofi", SyncStatus: models.SyncStatusPending}
	require.NoError(t, f.store.Registrations.Update(context.Background(), reg))
	data, err := json.Marshal(reg)
	require.NoError(t, err)
	require.NoError(t, f.store.Queue.Enqueue(context.Background(), &models.QueueItem{
		OperationType:  models.OperationCreate,
		CollectionName: models.CollectionRegistrations,
		DocumentID:     id,
		Data:           data,
	}))
}

func TestInitialCheckIsSilent(t *testing.T) {
	f := newFixture(t)
	f.prober.set(true)

	f.watcher.check(context.Background(), true)

	assert.True(t, f.engine.Online())
	for _, typ := range f.notifier.types() {
		assert.NotEqual(t, notify.TypeInfo, typ, "no connectivity chatter on startup")
		assert.NotEqual(t, notify.TypeWarning, typ)
	}
}

func TestInitialCheckDrainsLeftoverQueue(t *testing.T) {
	f := newFixture(t)
	f.prober.set(true)
	enqueueCreate(t, f, "reg-1")

	f.watcher.check(context.Background(), true)

	assert.Equal(t, 1, f.remote.createCount())
	items, err := f.store.Queue.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTransitionToOffline(t *testing.T) {
	f := newFixture(t)
	f.prober.set(true)
	f.watcher.check(context.Background(), true)

	f.prober.set(false)
	f.watcher.check(context.Background(), false)

	assert.False(t, f.engine.Online())
	assert.Contains(t, f.notifier.types(), notify.TypeWarning)
}

func TestReconnectTriggersDrain(t *testing.T) {
	f := newFixture(t)
	f.prober.set(false)
	f.watcher.check(context.Background(), true)
	require.False(t, f.engine.Online())

	enqueueCreate(t, f, "reg-1")

	f.prober.set(true)
	f.watcher.check(context.Background(), false)

	assert.True(t, f.engine.Online())
	assert.Contains(t, f.notifier.types(), notify.TypeInfo)
	assert.Equal(t, 1, f.remote.createCount())

	reg, err := f.store.Registrations.Get(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, reg.SyncStatus)
}

func TestSteadyStateStaysQuiet(t *testing.T) {
	f := newFixture(t)
	f.prober.set(true)
	f.watcher.check(context.Background(), true)

	before := len(f.notifier.types())
	f.watcher.check(context.Background(), false)
	f.watcher.check(context.Background(), false)
	assert.Len(t, f.notifier.types(), before)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.prober.set(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.watcher.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}
