package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/metrics"
	"github.com/AtharvRaotole/reel-picks/internal/models"
)

// DefaultCheckInterval is how often due reminders are evaluated.
const DefaultCheckInterval = 30 * time.Second

// ReminderSource supplies the current reminder set.
type ReminderSource interface {
	All() []models.Reminder
	Remove(id models.MovieID) bool
}

// Notifier delivers the user-visible notification for a due reminder.
type Notifier interface {
	NotifyReminder(ctx context.Context, r models.Reminder) error
}

// TriggerFunc is called once for every reminder that fires.
type TriggerFunc func(r models.Reminder)

// ReminderScheduler polls the reminder set and fires due reminders once per
// process lifetime. Delivery may lag the reminder time by up to one interval.
type ReminderScheduler struct {
	source    ReminderSource
	notifier  Notifier
	onTrigger TriggerFunc
	interval  time.Duration
	logger    *logrus.Logger

	// RemoveOnTrigger deletes a reminder from the source after it fires.
	RemoveOnTrigger bool

	now func() time.Time

	mu        sync.Mutex
	cron      *cron.Cron
	ctx       context.Context
	triggered map[firedKey]struct{}
}

// NewReminderScheduler creates a scheduler. An interval of zero uses
// DefaultCheckInterval; notifier and onTrigger may be nil.
func NewReminderScheduler(source ReminderSource, notifier Notifier, onTrigger TriggerFunc, interval time.Duration, logger *logrus.Logger) *ReminderScheduler {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &ReminderScheduler{
		source:    source,
		notifier:  notifier,
		onTrigger: onTrigger,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		ctx:       context.Background(),
		triggered: make(map[firedKey]struct{}),
	}
}

// firedKey identifies one scheduled occurrence. A reminder re-created for
// the same movie at a new time is a different occurrence.
type firedKey struct {
	id models.MovieID
	at int64
}

func keyOf(r models.Reminder) firedKey {
	return firedKey{id: r.MovieID, at: r.ReminderTime.UnixNano()}
}

// Start evaluates due reminders immediately and then on every interval.
// Starting a running scheduler is a no-op.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, s.Check); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to add reminder check job: %w", err)
	}
	s.cron = c
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.WithField("interval", s.interval).Info("Starting reminder scheduler")
	s.Check()
	c.Start()
	return nil
}

// Stop cancels the polling job. It is safe to call repeatedly or before Start.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("Reminder scheduler stopped")
}

// Running reports whether the polling job is active.
func (s *ReminderScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Reset forgets which reminders have fired.
func (s *ReminderScheduler) Reset() {
	s.mu.Lock()
	s.triggered = make(map[firedKey]struct{})
	s.mu.Unlock()
}

// Check fires every reminder that is due and has not fired yet.
func (s *ReminderScheduler) Check() {
	now := s.now()

	s.mu.Lock()
	ctx := s.ctx
	var due []models.Reminder
	for _, r := range s.source.All() {
		if r.ReminderTime.After(now) {
			continue
		}
		key := keyOf(r)
		if _, fired := s.triggered[key]; fired {
			continue
		}
		s.triggered[key] = struct{}{}
		due = append(due, r)
	}
	s.mu.Unlock()

	for _, r := range due {
		s.fire(ctx, r)
	}
}

func (s *ReminderScheduler) fire(ctx context.Context, r models.Reminder) {
	s.logger.WithFields(logrus.Fields{
		"movie_id":      r.MovieID,
		"title":         r.MovieTitle,
		"reminder_time": r.ReminderTime,
	}).Info("Reminder due")
	metrics.RemindersTriggered.Inc()

	if s.notifier != nil {
		if err := s.notifier.NotifyReminder(ctx, r); err != nil {
			s.logger.WithError(err).WithField("movie_id", r.MovieID).Warn("Failed to deliver reminder notification")
		}
	}
	if s.onTrigger != nil {
		s.onTrigger(r)
	}
	if s.RemoveOnTrigger {
		s.source.Remove(r.MovieID)
	}
}

// LogNotifier writes reminder notifications to the log.
type LogNotifier struct {
	Logger *logrus.Logger
}

// NotifyReminder implements Notifier.
func (n LogNotifier) NotifyReminder(_ context.Context, r models.Reminder) error {
	n.Logger.WithFields(logrus.Fields{
		"movie_id": r.MovieID,
		"title":    r.MovieTitle,
	}).Infof("Time to watch %s", r.MovieTitle)
	return nil
}

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier []Notifier

// NotifyReminder implements Notifier. It returns the first error encountered
// after notifying every member.
func (m MultiNotifier) NotifyReminder(ctx context.Context, r models.Reminder) error {
	var first error
	for _, n := range m {
		if err := n.NotifyReminder(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
