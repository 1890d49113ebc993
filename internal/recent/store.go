package recent

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/persist"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
)

const (
	// StorageKey is the storage key of the recently-viewed collection.
	StorageKey = "recently-viewed"
	// MaxItems bounds the collection.
	MaxItems = 5
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for ViewedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps the most recently viewed movies, newest first.
type Store struct {
	coll   *persist.Collection[models.RecentlyViewedEntry]
	logger *logrus.Logger
	now    func() time.Time

	mu          sync.RWMutex
	items       []models.RecentlyViewedEntry
	unsubscribe func()
}

// NewStore loads the collection and subscribes to its change signal.
func NewStore(backend storage.Backend, bus *events.Bus, logger *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		coll: persist.New[models.RecentlyViewedEntry](StorageKey, backend, bus, func(e models.RecentlyViewedEntry) bool {
			return models.Validate(e) == nil
		}, logger),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.items = truncate(s.coll.Load())
	s.unsubscribe = s.coll.Subscribe(s.reload)
	return s
}

func (s *Store) reload() {
	items := truncate(s.coll.Load())
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Close stops listening for change signals.
func (s *Store) Close() {
	s.unsubscribe()
}

// Add records a view of movie, moving it to the front if already present.
func (s *Store) Add(movie models.Movie) bool {
	movie.ID = models.NewMovieID(movie.ID)
	entry := models.RecentlyViewedEntry{Movie: movie, ViewedAt: s.now()}
	if err := models.Validate(entry); err != nil {
		s.logger.WithError(err).WithField("movie_id", movie.ID).Warn("Refusing to record an invalid view")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.RecentlyViewedEntry, 0, MaxItems)
	next = append(next, entry)
	for _, e := range s.items {
		if e.Movie.ID != movie.ID {
			next = append(next, e)
		}
	}
	return s.commit(truncate(next))
}

// Remove deletes the entry for id.
func (s *Store) Remove(id models.MovieID) bool {
	id = models.NewMovieID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.RecentlyViewedEntry, 0, len(s.items))
	for _, e := range s.items {
		if e.Movie.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(s.items) {
		return false
	}
	return s.commit(next)
}

// Clear removes every entry.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit([]models.RecentlyViewedEntry{})
}

// All returns the entries, newest first.
func (s *Store) All() []models.RecentlyViewedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RecentlyViewedEntry(nil), s.items...)
}

func (s *Store) commit(next []models.RecentlyViewedEntry) bool {
	if !s.coll.Save(next) {
		return false
	}
	s.items = next
	return true
}

func truncate(items []models.RecentlyViewedEntry) []models.RecentlyViewedEntry {
	if len(items) > MaxItems {
		return items[:MaxItems]
	}
	return items
}
