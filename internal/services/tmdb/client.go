package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/AtharvRaotole/reel-picks/internal/config"
	"github.com/AtharvRaotole/reel-picks/internal/metrics"
	"github.com/AtharvRaotole/reel-picks/internal/models"
)

const (
	// RequestTimeout bounds every upstream call.
	RequestTimeout = 10 * time.Second

	searchCacheTTL  = 5 * time.Minute
	detailsCacheTTL = time.Hour
	maxErrorBody    = 64 * 1024
	breakerName     = "tmdb"
)

// Client proxies search and detail requests to the TMDB API, keeping the
// API key server side.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *logrus.Logger
}

// NewClient creates a catalog client from configuration.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBBaseURL == "" {
		return nil, fmt.Errorf("tmdb base URL is required")
	}
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("tmdb API key is required")
	}
	if _, err := url.Parse(cfg.TMDBBaseURL); err != nil {
		return nil, fmt.Errorf("invalid tmdb base URL: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.TMDBBaseURL, "/"),
		apiKey:  cfg.TMDBAPIKey,
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
		cache:  cache.New(searchCacheTTL, 10*time.Minute),
		logger: logger,
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Catalog circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return c, nil
}

// SearchMovies returns one page of results for query.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*models.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newError(http.StatusBadRequest, "query is required", nil)
	}
	if page < 1 {
		page = 1
	}

	key := "search:" + strings.ToLower(query) + ":" + strconv.Itoa(page)
	if cached, ok := c.cache.Get(key); ok {
		metrics.CatalogCacheHits.WithLabelValues("search").Inc()
		return cached.(*models.SearchResponse), nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	var resp models.SearchResponse
	if err := c.get(ctx, "search", "/search/movie", params, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []models.Movie{}
	}

	c.cache.Set(key, &resp, searchCacheTTL)
	return &resp, nil
}

// GetMovieDetails returns the full record for a movie.
func (c *Client) GetMovieDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	if id <= 0 {
		return nil, newError(http.StatusBadRequest, "invalid movie id", nil)
	}

	key := "movie:" + strconv.Itoa(id)
	if cached, ok := c.cache.Get(key); ok {
		metrics.CatalogCacheHits.WithLabelValues("details").Inc()
		return cached.(*models.MovieDetails), nil
	}

	var details models.MovieDetails
	if err := c.get(ctx, "details", "/movie/"+strconv.Itoa(id), url.Values{}, &details); err != nil {
		return nil, err
	}

	c.cache.Set(key, &details, detailsCacheTTL)
	return &details, nil
}

// get performs a GET against the catalog through the circuit breaker and
// decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	start := time.Now()
	defer func() {
		metrics.CatalogLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = networkError(http.StatusServiceUnavailable, "catalog temporarily unavailable", err)
		}
		metrics.CatalogRequests.WithLabelValues(endpoint, string(KindOf(err))).Inc()
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.CatalogRequests.WithLabelValues(endpoint, string(KindServer)).Inc()
		return newError(http.StatusBadGateway, "invalid catalog response", err)
	}

	metrics.CatalogRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)
	params.Set("language", "en-US")
	fullURL := c.baseURL + path + "?" + params.Encode()

	c.logger.WithFields(logrus.Fields{
		"path":  path,
		"query": params.Get("query"),
		"page":  params.Get("page"),
	}).Debug("Making catalog request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "reelpicks/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := upstreamMessage(resp.StatusCode, raw)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"path":        path,
			"message":     message,
		}).Warn("Catalog returned non-OK status")
		return nil, newError(resp.StatusCode, message, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return body, nil
}

func transportError(ctx context.Context, err error) *CatalogError {
	if errors.Is(ctx.Err(), context.Canceled) {
		return networkError(0, "request cancelled", err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return networkError(http.StatusGatewayTimeout, "catalog request timed out", err)
	}
	return networkError(http.StatusServiceUnavailable, "catalog unreachable", err)
}

// upstreamMessage extracts a safe message from a TMDB error body.
func upstreamMessage(status int, raw []byte) string {
	if status == http.StatusUnauthorized {
		return "catalog authentication failed"
	}
	var body struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.StatusMessage != "" {
		return body.StatusMessage
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("catalog returned status %d", status)
}

// isBreakerSuccess keeps caller mistakes and cancellations from tripping the breaker.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch KindOf(err) {
	case KindClient, KindNotFound, KindRateLimited:
		return true
	}
	return false
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
