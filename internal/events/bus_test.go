package events

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestPublishFromHandlerIsNotReentrant(t *testing.T) {
	bus := NewBus(testLogger())
	defer bus.Close()

	rec := &recorder{}
	bus.Subscribe("a", func(key string) {
		rec.add("a-start")
		bus.Publish("b")
		rec.add("a-end")
	})
	bus.Subscribe("b", func(key string) {
		rec.add("b")
	})

	bus.Publish("a")
	bus.Flush()

	assert.Equal(t, []string{"a-start", "a-end", "b"}, rec.list())
}

func TestSubscribersOnlySeeTheirKey(t *testing.T) {
	bus := NewBus(testLogger())
	defer bus.Close()

	rec := &recorder{}
	bus.Subscribe("favorites", func(key string) { rec.add("fav:" + key) })
	bus.SubscribeAll(func(key string) { rec.add("all:" + key) })

	bus.Publish("favorites")
	bus.Publish("reminders")
	bus.Flush()

	assert.Equal(t, []string{"fav:favorites", "all:favorites", "all:reminders"}, rec.list())
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(testLogger())
	defer bus.Close()

	rec := &recorder{}
	unsubscribe := bus.Subscribe("k", func(key string) { rec.add(key) })

	bus.Publish("k")
	bus.Flush()
	unsubscribe()
	unsubscribe()
	bus.Publish("k")
	bus.Flush()

	assert.Equal(t, []string{"k"}, rec.list())
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(testLogger())
	defer bus.Close()

	rec := &recorder{}
	bus.Subscribe("k", func(string) { panic("boom") })
	bus.Subscribe("k", func(key string) { rec.add(key) })

	bus.Publish("k")
	bus.Flush()

	assert.Equal(t, []string{"k"}, rec.list())
}

func TestClosedBusDropsPublications(t *testing.T) {
	bus := NewBus(testLogger())
	rec := &recorder{}
	bus.Subscribe("k", func(key string) { rec.add(key) })
	bus.Close()
	bus.Close()

	bus.Publish("k")
	bus.Flush()
	assert.Empty(t, rec.list())
}
