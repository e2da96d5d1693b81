package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aowusu/birthsync/internal/client/config"
	"github.com/aowusu/birthsync/internal/client/localstore"
	"github.com/aowusu/birthsync/internal/client/netwatch"
	"github.com/aowusu/birthsync/internal/client/notify"
	"github.com/aowusu/birthsync/internal/client/remote"
	"github.com/aowusu/birthsync/internal/client/services"
	"github.com/aowusu/birthsync/internal/client/syncengine"
	"github.com/aowusu/birthsync/internal/logging"
)

// App wires the client together and drives the interactive loop.
type App struct {
	config  *config.Config
	store   *localstore.Store
	hub     *notify.Hub
	engine  *syncengine.Engine
	watcher *netwatch.Watcher
	auth    services.AuthService
	regs    services.RegistrationService
	logger  logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store and constructs all services. The returned App
// owns the store; Run closes it on exit.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	store, err := localstore.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	api := remote.NewHTTPClient(cfg.ServerEndpointAddr)
	hub := notify.NewHub(notify.NewLogNotifier(logger))
	engine := syncengine.New(store.Queue, store.Registrations, api, hub,
		logger.With("component", "syncengine"), cfg.MaxSyncRetries)
	watcher := netwatch.New(api, engine, hub,
		logger.With("component", "netwatch"), cfg.OnlineCheckInterval, cfg.ProbeTimeout)

	return &App{
		config:  cfg,
		store:   store,
		hub:     hub,
		engine:  engine,
		watcher: watcher,
		auth:    services.NewAuthService(api),
		regs:    services.NewRegistrationService(api, store, engine, hub, logger, cfg.OfficeCode),
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// Run starts the background workers and blocks in the command loop until the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.watcher.Run(ctx)
	go a.printNotifications(a.hub.Subscribe())
	go a.sweepCache(ctx)

	a.Root(ctx)

	a.hub.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error(ctx, "closing local store", "error", err)
	}
}

func (a *App) printNotifications(ch <-chan notify.Notification) {
	for n := range ch {
		a.printf("\n[%s] %s\n", n.Type, n.Message)
	}
}

// sweepCache reclaims expired cache rows in the background.
func (a *App) sweepCache(ctx context.Context) {
	interval := a.config.CacheSweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := a.store.Cache.Sweep(ctx); err != nil {
				a.logger.Warn(ctx, "cache sweep failed", "error", err)
			} else if n > 0 {
				a.logger.Info(ctx, "cache sweep", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
