// Package events is the in-process change-signal bus shared by the stores.
//
// A publication names a storage key and carries no payload; subscribers
// treat it as "re-read the whole collection". Delivery is asynchronous:
// Publish only queues the signal, and a single dispatcher goroutine delivers
// queued signals in publish order once the publisher has returned. A
// subscriber that publishes from inside its callback therefore never
// re-enters another subscriber.
package events

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler receives the storage key of a change.
type Handler func(key string)

type subscription struct {
	key     string // empty for wildcard subscriptions
	handler Handler
}

// Bus is a keyed publish/subscribe dispatcher.
type Bus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	subs    map[uint64]subscription
	nextID  uint64
	queue   []string
	pending int
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	logger  *logrus.Logger
}

// NewBus creates a bus and starts its dispatcher.
func NewBus(logger *logrus.Logger) *Bus {
	b := &Bus{
		subs:   make(map[uint64]subscription),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	b.cond = sync.NewCond(&b.mu)
	go b.dispatch()
	return b
}

// Subscribe registers h for changes to key. The returned function removes
// the subscription and is safe to call more than once.
func (b *Bus) Subscribe(key string, h Handler) func() {
	return b.add(subscription{key: key, handler: h})
}

// SubscribeAll registers h for changes to every key.
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.add(subscription{handler: h})
}

func (b *Bus) add(s subscription) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish queues a change signal for key.
func (b *Bus) Publish(key string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, key)
	b.pending++
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every signal published before the call has been
// delivered. It must not be called from inside a handler.
func (b *Bus) Flush() {
	b.mu.Lock()
	for b.pending > 0 && !b.closed {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Close stops the dispatcher. Queued signals that were not yet delivered are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.queue = nil
	b.pending = 0
	b.cond.Broadcast()
	b.mu.Unlock()
	close(b.done)
}

func (b *Bus) dispatch() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}

		for {
			b.mu.Lock()
			if b.closed || len(b.queue) == 0 {
				b.mu.Unlock()
				break
			}
			key := b.queue[0]
			b.queue = b.queue[1:]
			handlers := b.handlersFor(key)
			b.mu.Unlock()

			for _, h := range handlers {
				b.deliver(key, h)
			}

			b.mu.Lock()
			if b.pending > 0 {
				b.pending--
			}
			b.cond.Broadcast()
			b.mu.Unlock()
		}
	}
}

// handlersFor returns the handlers for key in subscription order. Caller holds mu.
func (b *Bus) handlersFor(key string) []Handler {
	ids := make([]uint64, 0, len(b.subs))
	for id, s := range b.subs {
		if s.key == "" || s.key == key {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]Handler, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.subs[id].handler)
	}
	return out
}

func (b *Bus) deliver(key string, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				"key":   key,
				"panic": r,
			}).Error("Change signal handler panicked")
		}
	}()
	h(key)
}
