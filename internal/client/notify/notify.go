// Package notify is the process-wide notification mechanism. The sync engine
// and the network watcher publish to it; the UI layer renders what it
// receives. Publishers never read back.
package notify

import (
	"context"
	"time"

	"github.com/aowusu/birthsync/internal/logging"
)

// Type classifies a notification for rendering.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Notification is a single user-facing message.
type Notification struct {
	Type    Type
	Message string
	Time    time.Time
}

// Notifier accepts notifications. Implementations must not block the caller.
type Notifier interface {
	Publish(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the structured logger. It is the
// default sink when no interactive UI is attached.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Publish(ctx context.Context, n Notification) {
	switch n.Type {
	case TypeWarning:
		l.logger.Warn(ctx, n.Message)
	case TypeError:
		l.logger.Error(ctx, n.Message)
	default:
		l.logger.Info(ctx, n.Message)
	}
}

// Hub fans notifications out to subscribers and forwards them to an optional
// fallback notifier. Slow subscribers have messages dropped rather than
// blocking the publisher.
type Hub struct {
	fallback Notifier
	subs     chan chan Notification
	publish  chan Notification
	done     chan struct{}
}

const subscriberBuffer = 16

// NewHub creates a Hub forwarding to fallback (may be nil) and starts its
// dispatch loop. Call Close to stop it.
func NewHub(fallback Notifier) *Hub {
	h := &Hub{
		fallback: fallback,
		subs:     make(chan chan Notification),
		publish:  make(chan Notification, subscriberBuffer),
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) loop() {
	var subscribers []chan Notification
	for {
		select {
		case ch := <-h.subs:
			subscribers = append(subscribers, ch)
		case n := <-h.publish:
			for _, ch := range subscribers {
				select {
				case ch <- n:
				default: // drop for slow subscribers
				}
			}
		case <-h.done:
			for _, ch := range subscribers {
				close(ch)
			}
			return
		}
	}
}

// Subscribe returns a channel receiving future notifications. The channel is
// closed when the hub is closed.
func (h *Hub) Subscribe() <-chan Notification {
	ch := make(chan Notification, subscriberBuffer)
	select {
	case h.subs <- ch:
	case <-h.done:
		close(ch)
	}
	return ch
}

func (h *Hub) Publish(ctx context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	if h.fallback != nil {
		h.fallback.Publish(ctx, n)
	}
	select {
	case h.publish <- n:
	case <-h.done:
	}
}

// Close stops the dispatch loop and closes all subscriber channels.
func (h *Hub) Close() {
	close(h.done)
}
