package reminders

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/persist"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
)

const (
	// StorageKey is the storage key of the reminders collection.
	StorageKey = "movie-reminders"
	// GracePeriod is how long a due reminder survives a reload.
	GracePeriod = 60 * time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the reminders collection, one reminder per movie.
type Store struct {
	coll   *persist.Collection[models.Reminder]
	logger *logrus.Logger
	now    func() time.Time

	mu          sync.RWMutex
	items       []models.Reminder
	unsubscribe func()
}

// NewStore loads the reminders, dropping expired ones, and subscribes to
// their change signal.
func NewStore(backend storage.Backend, bus *events.Bus, logger *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		coll: persist.New[models.Reminder](StorageKey, backend, bus, func(r models.Reminder) bool {
			return models.Validate(r) == nil
		}, logger),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.items = s.load()
	s.unsubscribe = s.coll.Subscribe(s.reload)
	return s
}

// load reads the collection and purges reminders more than GracePeriod
// past due, persisting the cleaned set.
func (s *Store) load() []models.Reminder {
	items := s.coll.Load()
	cutoff := s.now().Add(-GracePeriod)

	kept := make([]models.Reminder, 0, len(items))
	for _, r := range items {
		if r.ReminderTime.After(cutoff) {
			kept = append(kept, r)
		}
	}
	if expired := len(items) - len(kept); expired > 0 {
		s.logger.WithField("expired", expired).Info("Purged expired reminders")
		s.coll.Rewrite(kept)
	}
	return kept
}

func (s *Store) reload() {
	items := s.load()
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Close stops listening for change signals.
func (s *Store) Close() {
	s.unsubscribe()
}

// Add schedules a reminder for movieID, replacing any existing one. It
// returns false when the option is unknown, a custom time is missing or
// not in the future, or the write fails.
func (s *Store) Add(movieID models.MovieID, title string, opt TimeOption, custom *time.Time) bool {
	movieID = models.NewMovieID(movieID)
	if movieID.IsZero() || title == "" {
		s.logger.Warn("Refusing to add a reminder without movie id or title")
		return false
	}

	now := s.now()
	at, err := ComputeReminderTime(opt, now, custom)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"movie_id": movieID,
			"option":   opt,
		}).Warn("Failed to add reminder")
		return false
	}

	reminder := models.Reminder{
		MovieID:      movieID,
		MovieTitle:   title,
		ReminderTime: at,
		CreatedAt:    now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Reminder, 0, len(s.items)+1)
	for _, r := range s.items {
		if r.MovieID != movieID {
			next = append(next, r)
		}
	}
	next = append(next, reminder)
	if !s.commit(next) {
		return false
	}

	s.logger.WithFields(logrus.Fields{
		"movie_id":      movieID,
		"title":         title,
		"reminder_time": at,
	}).Info("Reminder scheduled")
	return true
}

// Remove deletes the reminder for movieID.
func (s *Store) Remove(movieID models.MovieID) bool {
	movieID = models.NewMovieID(movieID)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Reminder, 0, len(s.items))
	for _, r := range s.items {
		if r.MovieID != movieID {
			next = append(next, r)
		}
	}
	if len(next) == len(s.items) {
		return false
	}
	return s.commit(next)
}

// Get returns the reminder for movieID.
func (s *Store) Get(movieID models.MovieID) (models.Reminder, bool) {
	movieID = models.NewMovieID(movieID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.items {
		if r.MovieID == movieID {
			return r, true
		}
	}
	return models.Reminder{}, false
}

// Has reports whether movieID has a reminder.
func (s *Store) Has(movieID models.MovieID) bool {
	_, ok := s.Get(movieID)
	return ok
}

// All returns every reminder, including due ones still within the grace period.
func (s *Store) All() []models.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Reminder(nil), s.items...)
}

// Upcoming returns reminders strictly in the future, soonest first.
func (s *Store) Upcoming() []models.Reminder {
	now := s.now()
	var out []models.Reminder
	for _, r := range s.All() {
		if r.ReminderTime.After(now) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReminderTime.Before(out[j].ReminderTime)
	})
	return out
}

func (s *Store) commit(next []models.Reminder) bool {
	if !s.coll.Save(next) {
		return false
	}
	s.items = next
	return true
}
