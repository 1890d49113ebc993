package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Item is a single stored key/value pair.
type Item struct {
	Key       string `boltholdKey:"Key"`
	Value     []byte
	UpdatedAt time.Time
}

// BoltBackend stores items in a bolthold database file.
type BoltBackend struct {
	store *bolthold.Store
	quota int64

	// mu serialises quota accounting with the write that follows it.
	mu sync.Mutex
}

// OpenBolt opens (or creates) the database at path. A quota of zero or less
// disables the size limit.
func OpenBolt(path string, quota int64) (*BoltBackend, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltBackend{store: store, quota: quota}, nil
}

// Close closes the database.
func (b *BoltBackend) Close() error {
	return b.store.Close()
}

// GetItem returns the value stored under key.
func (b *BoltBackend) GetItem(key string) ([]byte, error) {
	var item Item
	if err := b.store.Get(key, &item); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return item.Value, nil
}

// SetItem stores value under key, replacing any previous value.
func (b *BoltBackend) SetItem(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.quota > 0 {
		used, err := b.usageExcluding(key)
		if err != nil {
			return err
		}
		if used+usage(key, value) > b.quota {
			return ErrQuotaExceeded
		}
	}

	item := &Item{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := b.store.Upsert(key, item); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (b *BoltBackend) RemoveItem(key string) error {
	err := b.store.Delete(key, &Item{})
	if err != nil && !errors.Is(err, bolthold.ErrNotFound) {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

// Keys lists every stored key.
func (b *BoltBackend) Keys() ([]string, error) {
	var items []Item
	if err := b.store.Find(&items, nil); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return keys, nil
}

func (b *BoltBackend) usageExcluding(key string) (int64, error) {
	var items []Item
	if err := b.store.Find(&items, bolthold.Where(bolthold.Key).Ne(key)); err != nil {
		return 0, fmt.Errorf("failed to compute storage usage: %w", err)
	}
	var total int64
	for _, item := range items {
		total += usage(item.Key, item.Value)
	}
	return total, nil
}
