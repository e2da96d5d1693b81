// Package common defines shared constants and sentinel errors used across
// birthsync components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Local store errors.
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrStorage            = errors.New("local storage operation failed")
	ErrDuplicateKey       = errors.New("duplicate key")

	// Generic flow-control errors.
	ErrNotFound = errors.New("not found")

	// Remote service errors. Network, permission and validation failures are
	// deliberately not distinguished: the sync engine treats them all as
	// "this attempt failed".
	ErrRemote      = errors.New("remote service error")
	ErrUnavailable = errors.New("server unavailable")

	// Queue errors.
	ErrQueueExhausted = errors.New("retry limit reached, manual resync required")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
)

// StorageError wraps a storage-engine failure with the operation name and the
// affected key so it matches ErrStorage under errors.Is.
func StorageError(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrStorage, op, key, err)
}

// RemoteError wraps a failed remote call with the operation context so it
// matches ErrRemote under errors.Is.
func RemoteError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrRemote, op, err)
}
