package favorites

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/persist"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
)

// StorageKey is the storage key of the favorites collection.
const StorageKey = "movie-favorites"

const saveErrorMessage = "Failed to save favorites. Storage may be full."

// UpdateRequest changes the rating and/or notes of an existing favorite.
// Nil fields are left unchanged.
type UpdateRequest struct {
	MovieID models.MovieID
	Rating  *int
	Notes   *string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for DateAdded.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the favorites collection. Reads are served from an in-memory
// mirror that is refreshed on every change signal for StorageKey.
type Store struct {
	coll   *persist.Collection[models.FavoriteEntry]
	logger *logrus.Logger
	now    func() time.Time

	mu          sync.RWMutex
	items       []models.FavoriteEntry
	errMsg      string
	unsubscribe func()
}

// NewStore loads the favorites and subscribes to their change signal.
func NewStore(backend storage.Backend, bus *events.Bus, logger *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		coll:   persist.New[models.FavoriteEntry](StorageKey, backend, bus, validEntry, logger),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.items = s.coll.Load()
	s.unsubscribe = s.coll.Subscribe(s.reload)
	return s
}

func validEntry(e models.FavoriteEntry) bool {
	return models.Validate(e) == nil
}

func (s *Store) reload() {
	items := s.coll.Load()
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Close stops listening for change signals.
func (s *Store) Close() {
	s.unsubscribe()
}

// Add saves movie as a favorite. An out-of-range rating falls back to 1.
// Adding a movie that is already a favorite updates its rating, and its
// notes when notes is non-nil.
func (s *Store) Add(movie models.Movie, rating int, notes *string) bool {
	movie.ID = models.NewMovieID(movie.ID)
	if movie.ID.IsZero() || movie.Title == "" {
		s.logger.WithField("movie_id", movie.ID).Warn("Refusing to favorite a movie without id or title")
		return false
	}
	if !models.ValidRating(rating) {
		s.logger.WithFields(logrus.Fields{
			"movie_id": movie.ID,
			"rating":   rating,
		}).Warn("Invalid rating, using 1")
		rating = models.MinRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneEntries(s.items)
	if i := indexOf(next, movie.ID); i >= 0 {
		next[i].Rating = rating
		if notes != nil {
			next[i].Notes = copyString(notes)
		}
	} else {
		next = append(next, models.FavoriteEntry{
			Movie:     movie,
			Rating:    rating,
			Notes:     copyString(notes),
			DateAdded: s.now(),
		})
	}
	return s.commit(next)
}

// Remove deletes the favorite for id. It returns false when id is not a
// favorite or the write failed.
func (s *Store) Remove(id models.MovieID) bool {
	id = models.NewMovieID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.items, id)
	if i < 0 {
		return false
	}
	next := cloneEntries(s.items)
	next = append(next[:i], next[i+1:]...)
	return s.commit(next)
}

// Update applies req to an existing favorite. Nothing is applied when the
// movie is not a favorite or the rating is out of range.
func (s *Store) Update(req UpdateRequest) bool {
	id := models.NewMovieID(req.MovieID)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.items, id)
	if i < 0 {
		s.logger.WithField("movie_id", id).Warn("Cannot update a movie that is not a favorite")
		return false
	}
	if req.Rating != nil && !models.ValidRating(*req.Rating) {
		s.logger.WithFields(logrus.Fields{
			"movie_id": id,
			"rating":   *req.Rating,
		}).Warn("Invalid rating, favorite left unchanged")
		return false
	}

	next := cloneEntries(s.items)
	if req.Rating != nil {
		next[i].Rating = *req.Rating
	}
	if req.Notes != nil {
		next[i].Notes = copyString(req.Notes)
	}
	return s.commit(next)
}

// ClearAll removes every favorite.
func (s *Store) ClearAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit([]models.FavoriteEntry{})
}

// IsFavorite reports whether id is a favorite.
func (s *Store) IsFavorite(id models.MovieID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.items, models.NewMovieID(id)) >= 0
}

// Get returns the favorite for id.
func (s *Store) Get(id models.MovieID) (models.FavoriteEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.items, models.NewMovieID(id))
	if i < 0 {
		return models.FavoriteEntry{}, false
	}
	return cloneEntries(s.items[i : i+1])[0], true
}

// All returns every favorite in insertion order.
func (s *Store) All() []models.FavoriteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.items)
}

// Count returns the number of favorites.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Err returns the message of the last failed write, or "" after a
// successful one.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// commit persists next and adopts it as the mirror on success. Caller holds mu.
func (s *Store) commit(next []models.FavoriteEntry) bool {
	if !s.coll.Save(next) {
		s.errMsg = saveErrorMessage
		return false
	}
	s.items = next
	s.errMsg = ""
	return true
}

func indexOf(items []models.FavoriteEntry, id models.MovieID) int {
	for i, e := range items {
		if e.Movie.ID == id {
			return i
		}
	}
	return -1
}

func cloneEntries(items []models.FavoriteEntry) []models.FavoriteEntry {
	out := make([]models.FavoriteEntry, len(items))
	for i, e := range items {
		out[i] = e
		out[i].Notes = copyString(e.Notes)
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
