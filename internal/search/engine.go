// Package search drives a catalog search from keystrokes: a trailing
// debounce on typed queries, immediate manual searches, and a request
// sequence number so that only the newest request can change the visible
// state.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/services/tmdb"
)

const (
	DefaultDebounce  = 500 * time.Millisecond
	DefaultMinLength = 2
)

// Catalog is the movie search backend.
type Catalog interface {
	SearchMovies(ctx context.Context, query string, page int) (*models.SearchResponse, error)
}

// Options configures an Engine.
type Options struct {
	Debounce   time.Duration
	MinLength  int
	AutoSearch bool
}

// DefaultOptions returns the standard debounce, minimum length and auto search.
func DefaultOptions() Options {
	return Options{Debounce: DefaultDebounce, MinLength: DefaultMinLength, AutoSearch: true}
}

// State is the visible search state.
type State struct {
	Query       string                 `json:"query"`
	Result      *models.SearchResponse `json:"result,omitempty"`
	Loading     bool                   `json:"loading"`
	Err         error                  `json:"-"`
	Error       string                 `json:"error,omitempty"`
	ErrorKind   tmdb.Kind              `json:"errorKind,omitempty"`
	HasSearched bool                   `json:"hasSearched"`
}

// Engine is the search state machine for one consumer.
type Engine struct {
	catalog Catalog
	opts    Options
	logger  *logrus.Logger
	ctx     context.Context
	stop    context.CancelFunc

	mu           sync.Mutex
	state        State
	seq          uint64
	lastQuery    string
	timer        *time.Timer
	debounceGen  uint64
	cancelFlight context.CancelFunc
	closed       bool
	version      uint64

	subMu      sync.Mutex
	subs       map[int]func(State)
	nextSub    int
	delivered  uint64
	pending    []snapshot
	delivering bool
}

type snapshot struct {
	state   State
	version uint64
}

// NewEngine creates an engine. Zero option values fall back to the defaults,
// except AutoSearch which is taken as given.
func NewEngine(catalog Catalog, opts Options, logger *logrus.Logger) *Engine {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		catalog: catalog,
		opts:    opts,
		logger:  logger,
		ctx:     ctx,
		stop:    stop,
		subs:    make(map[int]func(State)),
	}
}

// State returns a snapshot of the visible state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe calls fn with every new state. The returned function removes
// the subscription.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.subMu.Lock()
	e.nextSub++
	id := e.nextSub
	e.subs[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

// SetQuery updates the displayed query and, with auto search enabled,
// schedules a search once no further call arrives within the debounce
// delay. An empty query resets the state immediately.
func (e *Engine) SetQuery(text string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.stopTimerLocked()
	e.state.Query = text

	if strings.TrimSpace(text) == "" {
		e.runLocked(text, false)
		snap, v := e.snapshotLocked()
		e.mu.Unlock()
		e.publish(snap, v)
		return
	}

	if e.opts.AutoSearch {
		gen := e.debounceGen
		e.timer = time.AfterFunc(e.opts.Debounce, func() {
			e.fireDebounced(gen, text)
		})
	}
	snap, v := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap, v)
}

// Search runs text immediately, cancelling any pending debounced search and
// superseding any request in flight, even one for the same query.
func (e *Engine) Search(text string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.stopTimerLocked()
	e.state.Query = text
	e.runLocked(text, true)
	snap, v := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap, v)
}

// ClearSearch cancels pending work and resets the state.
func (e *Engine) ClearSearch() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.resetLocked()
	snap, v := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap, v)
}

// Close invalidates everything in flight and detaches all subscribers.
// No state produced after Close is published.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.resetLocked()
	e.closed = true
	e.mu.Unlock()

	e.stop()
	e.subMu.Lock()
	e.subs = make(map[int]func(State))
	e.subMu.Unlock()
}

func (e *Engine) fireDebounced(gen uint64, text string) {
	e.mu.Lock()
	if e.closed || gen != e.debounceGen {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.runLocked(text, false)
	snap, v := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap, v)
}

// runLocked executes a search for text. Caller holds mu.
func (e *Engine) runLocked(text string, force bool) {
	query := strings.TrimSpace(text)

	if query == "" {
		e.invalidateLocked()
		e.state.Result = nil
		e.state.Loading = false
		e.setErrLocked(nil)
		e.state.HasSearched = false
		return
	}

	if utf8.RuneCountInString(query) < e.opts.MinLength {
		e.invalidateLocked()
		e.state.Result = nil
		e.state.Loading = false
		e.setErrLocked(nil)
		return
	}

	if !force && e.state.Loading && query == e.lastQuery {
		return
	}

	e.invalidateLocked()
	id := e.seq
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelFlight = cancel
	e.lastQuery = query
	e.state.Loading = true
	e.state.HasSearched = true
	e.setErrLocked(nil)

	e.logger.WithFields(logrus.Fields{
		"query":    query,
		"sequence": id,
	}).Debug("Dispatching search")

	go e.fetch(ctx, cancel, id, query)
}

func (e *Engine) fetch(ctx context.Context, cancel context.CancelFunc, id uint64, query string) {
	defer cancel()
	resp, err := e.catalog.SearchMovies(ctx, query, 1)

	e.mu.Lock()
	if id != e.seq || e.closed {
		e.mu.Unlock()
		e.logger.WithFields(logrus.Fields{
			"query":    query,
			"sequence": id,
		}).Debug("Discarding superseded search response")
		return
	}
	e.state.Loading = false
	e.cancelFlight = nil
	if err != nil {
		e.setErrLocked(err)
	} else {
		e.state.Result = resp
		e.setErrLocked(nil)
	}
	snap, v := e.snapshotLocked()
	e.mu.Unlock()

	if err != nil {
		e.logger.WithError(err).WithField("query", query).Warn("Search failed")
	}
	e.publish(snap, v)
}

// invalidateLocked makes every outstanding request stale and cancels it.
func (e *Engine) invalidateLocked() {
	e.seq++
	if e.cancelFlight != nil {
		e.cancelFlight()
		e.cancelFlight = nil
	}
}

func (e *Engine) resetLocked() {
	e.stopTimerLocked()
	e.invalidateLocked()
	e.lastQuery = ""
	e.state = State{}
}

func (e *Engine) stopTimerLocked() {
	e.debounceGen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) setErrLocked(err error) {
	e.state.Err = err
	if err == nil {
		e.state.Error = ""
		e.state.ErrorKind = ""
		return
	}
	e.state.Error = err.Error()
	e.state.ErrorKind = tmdb.KindOf(err)
}

func (e *Engine) snapshotLocked() (State, uint64) {
	e.version++
	return e.state, e.version
}

// publish delivers snap to subscribers unless a newer snapshot was already
// delivered. Subscribers run without subMu held, so they may call back into
// the engine; a snapshot published from inside a subscriber is queued and
// delivered by the goroutine already delivering.
func (e *Engine) publish(snap State, version uint64) {
	e.subMu.Lock()
	e.pending = append(e.pending, snapshot{state: snap, version: version})
	if e.delivering {
		e.subMu.Unlock()
		return
	}
	e.delivering = true

	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending = e.pending[1:]
		if next.version <= e.delivered {
			continue
		}
		e.delivered = next.version

		fns := make([]func(State), 0, len(e.subs))
		for _, fn := range e.subs {
			fns = append(fns, fn)
		}
		e.subMu.Unlock()
		for _, fn := range fns {
			fn(next.state)
		}
		e.subMu.Lock()
	}

	e.delivering = false
	e.subMu.Unlock()
}
