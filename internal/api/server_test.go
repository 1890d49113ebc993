package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvRaotole/reel-picks/internal/config"
	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/favorites"
	"github.com/AtharvRaotole/reel-picks/internal/models"
	"github.com/AtharvRaotole/reel-picks/internal/recent"
	"github.com/AtharvRaotole/reel-picks/internal/reminders"
	"github.com/AtharvRaotole/reel-picks/internal/services/tmdb"
	"github.com/AtharvRaotole/reel-picks/internal/settings"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
	"github.com/AtharvRaotole/reel-picks/internal/websocket"
)

type fakeCatalog struct{}

func (fakeCatalog) SearchMovies(_ context.Context, query string, page int) (*models.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &tmdb.CatalogError{StatusCode: http.StatusBadRequest, Message: "query is required", Kind: tmdb.KindClient}
	}
	return &models.SearchResponse{
		Page:         page,
		Results:      []models.Movie{{ID: "603", Title: "The Matrix"}},
		TotalPages:   1,
		TotalResults: 1,
	}, nil
}

func (fakeCatalog) GetMovieDetails(_ context.Context, id int) (*models.MovieDetails, error) {
	if id == 404 {
		return nil, &tmdb.CatalogError{StatusCode: http.StatusNotFound, Message: "not found", Kind: tmdb.KindNotFound}
	}
	return &models.MovieDetails{Movie: models.Movie{ID: models.NewMovieID(id), Title: "The Matrix"}, Runtime: 136}, nil
}

type testServer struct {
	handler http.Handler
	backend *storage.MemoryBackend
	fav     *favorites.Store
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := storage.NewMemoryBackend(0)
	bus := events.NewBus(logger)
	t.Cleanup(bus.Close)

	fav := favorites.NewStore(backend, bus, logger)
	rec := recent.NewStore(backend, bus, logger)
	rem := reminders.NewStore(backend, bus, logger)
	t.Cleanup(func() {
		fav.Close()
		rec.Close()
		rem.Close()
	})

	srv := NewServer(ctx, &config.Config{ServerPort: "0", RateLimitPerMinute: rateLimit}, Deps{
		Catalog:   fakeCatalog{},
		Favorites: fav,
		Recent:    rec,
		Reminders: rem,
		Flags:     settings.NewFlags(backend, bus, logger),
		Hub:       websocket.NewHub(logger),
	}, logger)
	return &testServer{handler: srv.Handler(), backend: backend, fav: fav}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 100)
	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCatalogProxy(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(t, http.MethodGet, "/api/search?query=matrix&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.SearchResponse](t, rec)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, models.MovieID("603"), resp.Results[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/search?query=", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "client", decode[errorBody](t, rec).Kind)

	rec = ts.do(t, http.MethodGet, "/api/search?query=matrix&page=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/movies/603", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 136, decode[models.MovieDetails](t, rec).Runtime)

	rec = ts.do(t, http.MethodGet, "/api/movies/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Kind)

	rec = ts.do(t, http.MethodGet, "/api/movies/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesLifecycle(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(t, http.MethodPost, "/api/favorites", `{"movie":{"id":550,"title":"Fight Club"},"rating":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[models.FavoriteEntry](t, rec)
	assert.Equal(t, 4, entry.Rating)
	assert.Equal(t, models.MovieID("550"), entry.Movie.ID)

	rec = ts.do(t, http.MethodPatch, "/api/favorites/550", `{"notes":"rewatch"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	entry = decode[models.FavoriteEntry](t, rec)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, "rewatch", *entry.Notes)
	assert.Equal(t, 4, entry.Rating)

	rec = ts.do(t, http.MethodPatch, "/api/favorites/550", `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/favorites/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[favorites.Stats](t, rec)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1, stats.WithNotes)

	rec = ts.do(t, http.MethodDelete, "/api/favorites/550", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/favorites/550", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodPatch, "/api/favorites/550", `{"rating":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFavoritesValidation(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(t, http.MethodPost, "/api/favorites", `{"movie":{"id":550}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[errorBody](t, rec).Kind)

	rec = ts.do(t, http.MethodPost, "/api/favorites", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesOutOfRangeRatingFallsBack(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(t, http.MethodPost, "/api/favorites", `{"movie":{"id":550,"title":"Fight Club"},"rating":7}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[models.FavoriteEntry](t, rec).Rating)

	rec = ts.do(t, http.MethodPost, "/api/favorites", `{"movie":{"id":551,"title":"Sequel"},"rating":-3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[models.FavoriteEntry](t, rec).Rating)
}

func TestFavoritesStorageFailure(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.backend.FailWrites(true)

	rec := ts.do(t, http.MethodPost, "/api/favorites", `{"movie":{"id":550,"title":"Fight Club"},"rating":3}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "storage", body.Kind)
	assert.Equal(t, ts.fav.Err(), body.Error)
	assert.Zero(t, ts.fav.Count())
}

func TestFavoritesExportImport(t *testing.T) {
	ts := newTestServer(t, 100)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/favorites", `{"movie":{"id":13,"title":"Forrest Gump"},"rating":5}`).Code)

	rec := ts.do(t, http.MethodGet, "/api/favorites/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/favorites", "").Code)
	assert.Zero(t, ts.fav.Count())

	rec = ts.do(t, http.MethodPost, "/api/favorites/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[map[string]int](t, rec)["imported"])
	assert.True(t, ts.fav.IsFavorite("13"))
}

func TestRecentlyViewed(t *testing.T) {
	ts := newTestServer(t, 100)

	for _, body := range []string{
		`{"movie":{"id":1,"title":"One"}}`,
		`{"movie":{"id":2,"title":"Two"}}`,
		`{"movie":{"id":1,"title":"One"}}`,
	} {
		require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/recent", body).Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/recent", "")
	entries := decode[[]models.RecentlyViewedEntry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, models.MovieID("1"), entries[0].Movie.ID)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/recent/2", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/recent/2", "").Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/recent", "").Code)
	assert.Empty(t, decode[[]models.RecentlyViewedEntry](t, ts.do(t, http.MethodGet, "/api/recent", "")))
}

func TestReminders(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(t, http.MethodPost, "/api/reminders", `{"movieId":603,"movieTitle":"The Matrix","option":"1hour"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[struct {
		MovieID  models.MovieID `json:"movieId"`
		Relative string         `json:"relative"`
	}](t, rec)
	assert.Equal(t, models.MovieID("603"), view.MovieID)
	assert.NotEmpty(t, view.Relative)

	rec = ts.do(t, http.MethodPost, "/api/reminders", `{"movieId":1,"movieTitle":"X","option":"someday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/reminders", `{"movieId":1,"movieTitle":"X","option":"custom"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/reminders", `{"movieId":1,"movieTitle":"X","option":"custom","customTime":"2001-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/reminders/upcoming", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/reminders/603", "").Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/reminders/603", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/reminders/603", "").Code)
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(t, http.MethodGet, "/api/settings/sound-effects-enabled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"sound-effects-enabled","value":true}`, rec.Body.String())

	rec = ts.do(t, http.MethodPut, "/api/settings/sound-effects-enabled", `{"value":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/settings/sound-effects-enabled", "")
	assert.JSONEq(t, `{"key":"sound-effects-enabled","value":false}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/settings/sound-effects-enabled", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/settings/bogus", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, "/api/settings/bogus", `{"value":true}`).Code)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, 100)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/favorites", `{"movie":{"id":550,"title":"Fight Club"},"rating":4}`).Code)

	rec := ts.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, status["favorites"])
	assert.EqualValues(t, 4, status["average_rating"])
}

func TestAPIRateLimit(t *testing.T) {
	ts := newTestServer(t, 2)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/favorites", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/favorites", "").Code)
	rec := ts.do(t, http.MethodGet, "/api/favorites", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[errorBody](t, rec).Kind)

	// Non-API routes are not limited.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "").Code)
}
