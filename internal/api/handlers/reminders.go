package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/reminders"
)

type addReminderRequest struct {
	MovieID    models.MovieID `json:"movieId" validate:"required"`
	MovieTitle string         `json:"movieTitle" validate:"required"`
	Option     string         `json:"option" validate:"required"`
	CustomTime *time.Time     `json:"customTime,omitempty"`
}

// reminderView adds the human-readable countdown to a reminder.
type reminderView struct {
	models.Reminder
	Relative string `json:"relative"`
}

// RemindersHandler exposes the reminder set.
type RemindersHandler struct {
	store  *reminders.Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewRemindersHandler creates the reminders handler.
func NewRemindersHandler(store *reminders.Store, logger *logrus.Logger) *RemindersHandler {
	return &RemindersHandler{store: store, logger: logger, now: time.Now}
}

// List handles GET /api/reminders.
func (h *RemindersHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.views(h.store.All()))
}

// Upcoming handles GET /api/reminders/upcoming.
func (h *RemindersHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.views(h.store.Upcoming()))
}

// Options handles GET /api/reminders/options.
func (h *RemindersHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reminders.Options())
}

// Get handles GET /api/reminders/{id}.
func (h *RemindersHandler) Get(w http.ResponseWriter, r *http.Request) {
	rem, ok := h.store.Get(pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "no reminder for this movie", kindMissing)
		return
	}
	writeJSON(w, http.StatusOK, h.view(rem))
}

// Add handles POST /api/reminders.
func (h *RemindersHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addReminderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	opt, err := reminders.ParseTimeOption(req.Option)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	if _, err := reminders.ComputeReminderTime(opt, h.now(), req.CustomTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}

	if !h.store.Add(req.MovieID, req.MovieTitle, opt, req.CustomTime) {
		writeError(w, http.StatusInternalServerError, "Failed to save reminder", kindStorage)
		return
	}
	rem, _ := h.store.Get(req.MovieID)
	writeJSON(w, http.StatusCreated, h.view(rem))
}

// Remove handles DELETE /api/reminders/{id}.
func (h *RemindersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if !h.store.Has(id) {
		writeError(w, http.StatusNotFound, "no reminder for this movie", kindMissing)
		return
	}
	if !h.store.Remove(id) {
		writeError(w, http.StatusInternalServerError, "Failed to save reminder", kindStorage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RemindersHandler) view(r models.Reminder) reminderView {
	return reminderView{Reminder: r, Relative: reminders.FormatRelative(r.ReminderTime, h.now())}
}

func (h *RemindersHandler) views(items []models.Reminder) []reminderView {
	out := make([]reminderView, 0, len(items))
	for _, r := range items {
		out = append(out, h.view(r))
	}
	return out
}
