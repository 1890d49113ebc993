// Package storage provides the key/value area that every persisted
// collection and flag lives in. It mirrors a browser's local storage: one
// opaque value per key, shared by every component in the process.
package storage

import "errors"

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned when a write would exceed the configured quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Backend is a key/value storage area.
type Backend interface {
	GetItem(key string) ([]byte, error)
	SetItem(key string, value []byte) error
	RemoveItem(key string) error
	Keys() ([]string, error)
}

// usage returns the byte count of a stored key/value pair.
func usage(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
