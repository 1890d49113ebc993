// Package persist implements the persisted collection shared by every store:
// a JSON array under one storage key, validated on read and announced on
// the change-signal bus after every successful write.
package persist

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/metrics"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
)

// Validator reports whether a decoded element is structurally sound.
type Validator[T any] func(item T) bool

// Collection is a persisted sequence of T under a single storage key.
type Collection[T any] struct {
	key      string
	backend  storage.Backend
	bus      *events.Bus
	validate Validator[T]
	logger   *logrus.Logger

	mu      sync.Mutex
	lastErr error
}

// New creates a collection. A nil validator accepts every decodable element.
func New[T any](key string, backend storage.Backend, bus *events.Bus, validate Validator[T], logger *logrus.Logger) *Collection[T] {
	if validate == nil {
		validate = func(T) bool { return true }
	}
	return &Collection[T]{
		key:      key,
		backend:  backend,
		bus:      bus,
		validate: validate,
		logger:   logger,
	}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string {
	return c.key
}

// Load reads the collection. A missing or unparsable value yields an empty
// slice. Elements that fail to decode or validate are dropped, and the
// cleaned slice is written back when anything was dropped.
func (c *Collection[T]) Load() []T {
	raw, err := c.backend.GetItem(c.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.WithError(err).WithField("key", c.key).Error("Failed to read collection")
		}
		return []T{}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		c.logger.WithError(err).WithField("key", c.key).Warn("Stored collection is not a JSON array, ignoring it")
		return []T{}
	}

	items := make([]T, 0, len(elements))
	for _, element := range elements {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			continue
		}
		if !c.validate(item) {
			continue
		}
		items = append(items, item)
	}

	if dropped := len(elements) - len(items); dropped > 0 {
		c.logger.WithFields(logrus.Fields{
			"key":     c.key,
			"dropped": dropped,
			"kept":    len(items),
		}).Warn("Dropped invalid entries from stored collection")
		metrics.StoreSelfHeals.WithLabelValues(c.key).Inc()
		if err := c.write(items); err != nil {
			c.logger.WithError(err).WithField("key", c.key).Error("Failed to rewrite cleaned collection")
		}
	}

	return items
}

// Save writes items and, on success, publishes the change signal. It never
// returns an error; failures are reported as false and kept in LastError.
func (c *Collection[T]) Save(items []T) bool {
	if err := c.write(items); err != nil {
		c.logger.WithError(err).WithField("key", c.key).Error("Failed to save collection")
		metrics.StoreSaveFailures.WithLabelValues(c.key).Inc()
		return false
	}
	c.Notify()
	return true
}

// Rewrite writes items without publishing a change signal. Stores use it
// for load-time hygiene so that a reload never triggers another reload.
func (c *Collection[T]) Rewrite(items []T) bool {
	if err := c.write(items); err != nil {
		c.logger.WithError(err).WithField("key", c.key).Error("Failed to rewrite collection")
		metrics.StoreSaveFailures.WithLabelValues(c.key).Inc()
		return false
	}
	return true
}

// Notify publishes the change signal for this collection.
func (c *Collection[T]) Notify() {
	if c.bus != nil {
		c.bus.Publish(c.key)
	}
}

// Subscribe calls fn after every change signal for this collection.
func (c *Collection[T]) Subscribe(fn func()) func() {
	if c.bus == nil {
		return func() {}
	}
	return c.bus.Subscribe(c.key, func(string) { fn() })
}

// LastError returns the error of the most recent failed write, or nil if
// the most recent write succeeded.
func (c *Collection[T]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Collection[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err == nil {
		err = c.backend.SetItem(c.key, data)
	}
	if err != nil {
		err = fmt.Errorf("failed to write %s: %w", c.key, err)
	}

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	return err
}
