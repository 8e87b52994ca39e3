// file: internal/catalog/client.go
// version: 1.0.0
// guid: f5e501ee-2d4c-4aa2-8acc-a040c1b24b69

// Package catalog talks to the Google Books volume API and turns its
// records into models.Book values.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/jdfalk/book-explorer/internal/cache"
	"github.com/jdfalk/book-explorer/internal/logging"
	"github.com/jdfalk/book-explorer/internal/metrics"
	"github.com/jdfalk/book-explorer/internal/models"
)

const (
	// DefaultBaseURL is the public Google Books endpoint.
	DefaultBaseURL = "https://www.googleapis.com/books/v1"
	// MaxResultsLimit is the largest page the service accepts.
	MaxResultsLimit   = 40
	defaultMaxResults = 10
)

// Config controls transport behaviour of the Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests; 0 disables throttling.
	RequestsPerSecond float64
	// CacheTTL keeps search results per request URL; 0 disables caching.
	CacheTTL time.Duration
	// BreakerFailures consecutive failures open the circuit; 0 disables it.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 5,
		CacheTTL:          5 * time.Minute,
		BreakerFailures:   5,
		BreakerTimeout:    30 * time.Second,
	}
}

// Client fetches volumes from the catalog service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	cache      *cache.Cache[[]models.Book]
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger
}

// NewClient creates a catalog client from cfg. Zero fields fall back to
// DefaultConfig values where a zero would be meaningless.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      cache.New[[]models.Book](cfg.CacheTTL),
		logger:     logging.Component("catalog"),
	}
	if cfg.BreakerFailures > 0 {
		c.breaker = newBreaker(cfg)
	}
	return c
}

// NewClientWithBaseURL creates an uncached, unthrottled client against a
// custom base URL (for testing).
func NewClientWithBaseURL(baseURL string) *Client {
	return NewClient(Config{BaseURL: baseURL})
}

func newBreaker(cfg Config) *gobreaker.CircuitBreaker[[]byte] {
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().BreakerTimeout
	}
	failures := uint32(cfg.BreakerFailures)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l := logging.Component("catalog")
			l.Warn().
				Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.SetBreakerState(breakerStateValue(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var ce *CatalogError
			if errors.As(err, &ce) {
				return !ce.retryable()
			}
			return false
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Search issues one volume query. maxResults <= 0 means 10; values above 40
// are capped. An empty slice with a nil error means no matches.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Book, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	maxResults = min(maxResults, MaxResultsLimit)

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("orderBy", "relevance")
	params.Set("printType", "books")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	searchURL := c.baseURL + "/volumes?" + params.Encode()

	books, hit, err := c.cache.Fetch(searchURL, func() ([]models.Book, error) {
		body, err := c.fetch(ctx, query, searchURL)
		if err != nil {
			return nil, err
		}
		var resp volumesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &CatalogError{Query: query, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		out := make([]models.Book, 0, len(resp.Items))
		for _, item := range resp.Items {
			if book, ok := normalize(item); ok {
				out = append(out, book)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if hit {
		metrics.IncCatalogRequest("cached")
	}
	return cloneBooks(books), nil
}

// GetBook fetches a single volume by id.
func (c *Client) GetBook(ctx context.Context, id string) (models.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Book{}, &CatalogError{Query: id, Err: errors.New("empty volume id")}
	}
	volumeURL := c.baseURL + "/volumes/" + url.PathEscape(id)
	if c.apiKey != "" {
		volumeURL += "?key=" + url.QueryEscape(c.apiKey)
	}

	body, err := c.fetch(ctx, id, volumeURL)
	if err != nil {
		return models.Book{}, err
	}
	var v volume
	if err := json.Unmarshal(body, &v); err != nil {
		return models.Book{}, &CatalogError{Query: id, Err: fmt.Errorf("failed to decode volume: %w", err)}
	}
	book, ok := normalize(v)
	if !ok {
		return models.Book{}, &CatalogError{Query: id, Err: errors.New("volume has no metadata")}
	}
	return book, nil
}

// fetch performs a rate-limited GET through the circuit breaker.
func (c *Client) fetch(ctx context.Context, query, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &CatalogError{Query: query, Err: err}
	}

	start := time.Now()
	var (
		body []byte
		err  error
	)
	if c.breaker != nil {
		body, err = c.breaker.Execute(func() ([]byte, error) { return c.get(ctx, query, target) })
	} else {
		body, err = c.get(ctx, query, target)
	}
	metrics.ObserveCatalogDuration(time.Since(start))

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.IncCatalogRequest("rejected")
		return nil, &CatalogError{Query: query, Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
	case err != nil:
		metrics.IncCatalogRequest("error")
		return nil, err
	}
	metrics.IncCatalogRequest("ok")
	return body, nil
}

func (c *Client) get(ctx context.Context, query, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &CatalogError{Query: query, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CatalogError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &CatalogError{Query: query, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CatalogError{Query: query, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return body, nil
}

func cloneBooks(in []models.Book) []models.Book {
	out := make([]models.Book, len(in))
	copy(out, in)
	return out
}
