package tmdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvRaotole/reel-picks/internal/config"
	"github.com/AtharvRaotole/reel-picks/internal/models"
)

const searchBody = `{
  "page": 1,
  "results": [
    {"id": 27205, "title": "Inception", "release_date": "2010-07-15", "poster_path": "/inception.jpg", "vote_average": 8.4, "vote_count": 35000, "genre_ids": [28, 878]},
    {"id": 64956, "title": "Inception: The Cobol Job", "overview": "Prequel"}
  ],
  "total_pages": 1,
  "total_results": 2
}`

const detailsBody = `{
  "id": 550,
  "title": "Fight Club",
  "runtime": 139,
  "tagline": "Mischief. Mayhem. Soap.",
  "budget": 63000000,
  "revenue": 100853753,
  "genres": [{"id": 18, "name": "Drama"}],
  "production_companies": [{"id": 508, "name": "Regency Enterprises", "origin_country": "US"}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client, err := NewClient(&config.Config{TMDBBaseURL: srv.URL, TMDBAPIKey: "secret"}, logger)
	require.NoError(t, err)
	return client, &hits
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(&config.Config{TMDBBaseURL: "https://example.com"}, logrus.New())
	assert.Error(t, err)
}

func TestSearchMovies(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "inception", r.URL.Query().Get("query"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, searchBody)
	})

	resp, err := client.SearchMovies(context.Background(), "  inception ", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalResults)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, models.MovieID("27205"), resp.Results[0].ID)
	assert.Equal(t, []int{28, 878}, resp.Results[0].GenreIDs)

	// Second call is served from cache.
	_, err = client.SearchMovies(context.Background(), "Inception", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSearchEmptyQuery(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.SearchMovies(context.Background(), "   ", 1)
	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.Zero(t, hits.Load())
}

func TestGetMovieDetails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		io.WriteString(w, detailsBody)
	})

	details, err := client.GetMovieDetails(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", details.Title)
	assert.Equal(t, 139, details.Runtime)
	assert.Equal(t, int64(63000000), details.Budget)
	require.Len(t, details.ProductionCompanies, 1)
	assert.Equal(t, "Regency Enterprises", details.ProductionCompanies[0].Name)

	_, err = client.GetMovieDetails(context.Background(), 0)
	assert.True(t, IsClientError(err))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusNotFound, IsNotFound},
		{http.StatusTooManyRequests, IsRateLimited},
		{http.StatusUnauthorized, IsClientError},
		{http.StatusInternalServerError, IsServerError},
		{http.StatusBadGateway, IsServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"status_code": 34, "status_message": "The resource you requested could not be found."}`)
			})
			_, err := client.GetMovieDetails(context.Background(), 1)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected kind %q", KindOf(err))

			var ce *CatalogError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.status, ce.HTTPStatus())
		})
	}
}

func TestUnauthorizedHidesUpstreamMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"status_message": "Invalid API key: secret"}`)
	})
	_, err := client.SearchMovies(context.Background(), "matrix", 1)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestNetworkFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(&config.Config{TMDBBaseURL: url, TMDBAPIKey: "k"}, logger)
	require.NoError(t, err)

	_, err = client.SearchMovies(context.Background(), "matrix", 1)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.httpClient.Timeout = 50 * time.Millisecond

	_, err := client.SearchMovies(context.Background(), "slow", 1)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	var ce *CatalogError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusGatewayTimeout, ce.StatusCode)
}

func TestBreakerOpensAfterRepeatedServerErrors(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := client.GetMovieDetails(context.Background(), 1)
		require.True(t, IsServerError(err))
	}

	_, err := client.GetMovieDetails(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Equal(t, int32(5), hits.Load())
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for i := 0; i < 8; i++ {
		_, err := client.GetMovieDetails(context.Background(), 1)
		require.True(t, IsNotFound(err))
	}
	assert.Equal(t, int32(8), hits.Load())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNetwork, Classify(0))
	assert.Equal(t, KindRateLimited, Classify(429))
	assert.Equal(t, KindNotFound, Classify(404))
	assert.Equal(t, KindClient, Classify(400))
	assert.Equal(t, KindServer, Classify(503))
}
