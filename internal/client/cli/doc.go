// Package cli is the interactive terminal client for birthsync. It wires the
// local store, the sync engine and the network watcher together and exposes
// registration work through a small command loop.
//
// The loop works fully offline: every write is persisted locally first and
// queued for the registry, and background workers take care of reconnecting
// and draining the queue.
package cli
