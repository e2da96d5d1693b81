// Package netwatch monitors reachability of the remote service and keeps the
// sync engine's connectivity state current. A recovered connection triggers a
// drain of the mutation queue.
package netwatch

import (
	"context"
	"time"

	"github.com/aowusu/birthsync/internal/client/notify"
	"github.com/aowusu/birthsync/internal/client/syncengine"
	"github.com/aowusu/birthsync/internal/logging"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// Prober checks whether the remote service is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// Watcher periodically probes the remote service. On an offline-to-online
// transition it notifies the user and starts a drain; on online-to-offline it
// warns that changes will be kept locally.
type Watcher struct {
	probe    Prober
	engine   *syncengine.Engine
	notifier notify.Notifier
	logger   logging.Logger

	interval     time.Duration
	probeTimeout time.Duration
}

// New creates a Watcher. Non-positive durations select the defaults.
func New(probe Prober, engine *syncengine.Engine, notifier notify.Notifier,
	logger logging.Logger, interval, probeTimeout time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Watcher{
		probe:        probe,
		engine:       engine,
		notifier:     notifier,
		logger:       logger,
		interval:     interval,
		probeTimeout: probeTimeout,
	}
}

// Run blocks until ctx is cancelled. The first probe happens immediately so
// the client does not sit in the default offline state for a full interval.
func (w *Watcher) Run(ctx context.Context) {
	w.check(ctx, true)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx, false)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) check(ctx context.Context, initial bool) {
	probeCtx, cancel := context.WithTimeout(ctx, w.probeTimeout)
	err := w.probe.Ping(probeCtx)
	cancel()

	online := err == nil
	was := w.engine.Online()

	if !initial && online == was {
		w.logger.Debug(ctx, "connectivity unchanged", "online", online)
		return
	}
	w.engine.SetOnline(online)

	if !online {
		if !initial {
			w.notifier.Publish(ctx, notify.Notification{
				Type:    notify.TypeWarning,
				Message: "connection lost; new registrations will be saved locally",
			})
		}
		return
	}

	if !initial {
		w.notifier.Publish(ctx, notify.Notification{
			Type:    notify.TypeInfo,
			Message: "connection restored; synchronizing offline changes",
		})
	}
	if _, err := w.engine.Drain(ctx); err != nil {
		w.logger.Error(ctx, "drain after reconnect failed", "error", err)
	}
}
