package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/favorites"
	"github.com/AtharvRaotole/reel-picks/internal/models"
)

type addFavoriteRequest struct {
	Movie  models.Movie `json:"movie"`
	Rating int          `json:"rating"`
	Notes  *string      `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type updateFavoriteRequest struct {
	Rating *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// FavoritesHandler exposes the favorites collection.
type FavoritesHandler struct {
	store  *favorites.Store
	logger *logrus.Logger
}

// NewFavoritesHandler creates the favorites handler.
func NewFavoritesHandler(store *favorites.Store, logger *logrus.Logger) *FavoritesHandler {
	return &FavoritesHandler{store: store, logger: logger}
}

// List handles GET /api/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.store.All()))
}

// Get handles GET /api/favorites/{id}.
func (h *FavoritesHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.store.Get(pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "movie is not a favorite", kindMissing)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Add handles POST /api/favorites.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	if req.Rating == 0 {
		req.Rating = models.MinRating
	}
	if !h.store.Add(req.Movie, req.Rating, req.Notes) {
		h.saveFailed(w)
		return
	}
	entry, _ := h.store.Get(req.Movie.ID)
	writeJSON(w, http.StatusCreated, entry)
}

// Update handles PATCH /api/favorites/{id}.
func (h *FavoritesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var req updateFavoriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	if !h.store.IsFavorite(id) {
		writeError(w, http.StatusNotFound, "movie is not a favorite", kindMissing)
		return
	}
	if !h.store.Update(favorites.UpdateRequest{MovieID: id, Rating: req.Rating, Notes: req.Notes}) {
		h.saveFailed(w)
		return
	}
	entry, _ := h.store.Get(id)
	writeJSON(w, http.StatusOK, entry)
}

// Remove handles DELETE /api/favorites/{id}.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if !h.store.IsFavorite(id) {
		writeError(w, http.StatusNotFound, "movie is not a favorite", kindMissing)
		return
	}
	if !h.store.Remove(id) {
		h.saveFailed(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/favorites.
func (h *FavoritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.store.ClearAll() {
		h.saveFailed(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/favorites/stats.
func (h *FavoritesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// Export handles GET /api/favorites/export.
func (h *FavoritesHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Export()
	if err != nil {
		h.logger.WithError(err).Error("Failed to export favorites")
		writeError(w, http.StatusInternalServerError, "Failed to export favorites", kindStorage)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="favorites.json"`)
	_, _ = w.Write(data)
}

// Import handles POST /api/favorites/import.
func (h *FavoritesHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	n, err := h.store.Import(body)
	if err != nil {
		if h.store.Err() != "" {
			writeError(w, http.StatusInternalServerError, h.store.Err(), kindStorage)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), kindInvalid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (h *FavoritesHandler) saveFailed(w http.ResponseWriter) {
	msg := h.store.Err()
	if msg == "" {
		msg = "Failed to save favorites"
	}
	writeError(w, http.StatusInternalServerError, msg, kindStorage)
}
