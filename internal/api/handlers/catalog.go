package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/services/tmdb"
)

// MovieCatalog is the upstream catalog as seen by the proxy routes.
type MovieCatalog interface {
	SearchMovies(ctx context.Context, query string, page int) (*models.SearchResponse, error)
	GetMovieDetails(ctx context.Context, id int) (*models.MovieDetails, error)
}

// CatalogHandler proxies search and detail lookups so the API key never
// leaves the server.
type CatalogHandler struct {
	catalog MovieCatalog
	logger  *logrus.Logger
}

// NewCatalogHandler creates the catalog proxy handler.
func NewCatalogHandler(catalog MovieCatalog, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// Search handles GET /api/search?query=&page=.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer", string(tmdb.KindClient))
			return
		}
		page = p
	}

	resp, err := h.catalog.SearchMovies(r.Context(), query, page)
	if err != nil {
		h.logFailure(err, logrus.Fields{"query": query, "page": page})
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Details handles GET /api/movies/{id}.
func (h *CatalogHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid movie id", string(tmdb.KindClient))
		return
	}

	details, err := h.catalog.GetMovieDetails(r.Context(), id)
	if err != nil {
		h.logFailure(err, logrus.Fields{"movie_id": id})
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *CatalogHandler) logFailure(err error, fields logrus.Fields) {
	entry := h.logger.WithError(err).WithFields(fields)
	switch tmdb.KindOf(err) {
	case tmdb.KindNotFound, tmdb.KindClient:
		entry.Debug("Catalog request rejected")
	default:
		entry.Warn("Catalog request failed")
	}
}
