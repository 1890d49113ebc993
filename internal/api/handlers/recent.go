package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/recent"
)

type addRecentRequest struct {
	Movie models.Movie `json:"movie"`
}

// RecentHandler exposes the recently viewed list.
type RecentHandler struct {
	store  *recent.Store
	logger *logrus.Logger
}

// NewRecentHandler creates the recently viewed handler.
func NewRecentHandler(store *recent.Store, logger *logrus.Logger) *RecentHandler {
	return &RecentHandler{store: store, logger: logger}
}

// List handles GET /api/recent.
func (h *RecentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.store.All()))
}

// Add handles POST /api/recent.
func (h *RecentHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRecentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	if !h.store.Add(req.Movie) {
		writeError(w, http.StatusInternalServerError, "Failed to save recently viewed movies", kindStorage)
		return
	}
	writeJSON(w, http.StatusCreated, orEmpty(h.store.All()))
}

// Remove handles DELETE /api/recent/{id}.
func (h *RecentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	found := false
	for _, e := range h.store.All() {
		if e.Movie.ID == id {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "movie is not in the recently viewed list", kindMissing)
		return
	}
	if !h.store.Remove(id) {
		writeError(w, http.StatusInternalServerError, "Failed to save recently viewed movies", kindStorage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/recent.
func (h *RecentHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.store.Clear() {
		writeError(w, http.StatusInternalServerError, "Failed to save recently viewed movies", kindStorage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
