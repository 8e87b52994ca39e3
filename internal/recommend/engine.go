// file: internal/recommend/engine.go
// version: 1.1.0
// guid: 5689b90b-c563-4939-897b-8a8e7504dada

// Package recommend produces personalized, trending and genre-explore book
// sets from the user's state and the catalog.
package recommend

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jdfalk/book-explorer/internal/library"
	"github.com/jdfalk/book-explorer/internal/logging"
	"github.com/jdfalk/book-explorer/internal/metrics"
	"github.com/jdfalk/book-explorer/internal/models"
)

// Strategy names the rule that produced a recommendation set.
type Strategy string

const (
	StrategyRatingBased      Strategy = "rating-based"
	StrategyGenreBased       Strategy = "genre-based"
	StrategyReadingListBased Strategy = "reading-list-based"
	StrategyPopularity       Strategy = "popularity-fallback"
	StrategyGenreExplore     Strategy = "genre-explore"
)

const (
	MaxRecommendations = 20
	PerGenreResults    = 8
	MaxStrategyGenres  = 3
	MaxAuthors         = 2
	PerAuthorResults   = 4
	TrendingResults    = 12
	MaxExploreGenres   = models.MaxHomeGenres
)

var (
	// ErrSuperseded is returned when a newer request replaced this one
	// before it finished; its result was not published.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrNoTrending is returned when trending and the popular fallback
	// both failed.
	ErrNoTrending = errors.New("no trending books available")
	// ErrTooManyGenres rejects a genre-explore selection over the limit.
	ErrTooManyGenres = errors.New("genre explore is limited to 5 genres")
)

// Catalog is the subset of the catalog client the engine needs.
type Catalog interface {
	PopularBooks(ctx context.Context, maxResults int) ([]models.Book, error)
	TrendingBooks(ctx context.Context, maxResults int) ([]models.Book, error)
	BooksByGenre(ctx context.Context, genre string, maxResults int) ([]models.Book, error)
	BooksByAuthor(ctx context.Context, author string, maxResults int) ([]models.Book, error)
}

// State supplies a consistent view of the user's data.
type State interface {
	Snapshot() library.Snapshot
}

// Result is one computed recommendation set.
type Result struct {
	Strategy Strategy      `json:"strategy"`
	Books    []models.Book `json:"books"`
	// Fallback is set when a higher-ranked strategy failed and the
	// popularity fallback took over.
	Fallback    bool      `json:"fallback"`
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Engine computes recommendations. Each of its three result slots
// (personalized, trending, explore) only accepts the newest request's
// result; starting a request cancels the previous one for that slot.
type Engine struct {
	catalog Catalog
	state   State
	logger  zerolog.Logger
	now     func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	strategies []strategy

	recs     slot[Result]
	trending slot[[]models.Book]
	explore  slot[Result]
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the shuffle source for genre-explore.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New creates an engine reading state and querying catalog.
func New(catalog Catalog, state State, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		state:   state,
		logger:  logging.Component("recommend"),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.strategies = []strategy{
		{StrategyRatingBased, e.ratingBased},
		{StrategyGenreBased, e.genreBased},
		{StrategyReadingListBased, e.readingListBased},
	}
	return e
}

// Recommend evaluates the strategy chain once without touching the result
// slot. The only error is the context's.
func (e *Engine) Recommend(ctx context.Context) (Result, error) {
	snap := e.state.Snapshot()
	exclude := readingListIDs(snap)

	res := Result{GeneratedAt: e.now()}
	found := false
	for _, s := range e.strategies {
		books, applicable, err := s.run(ctx, snap, exclude)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if err == nil && !applicable {
			continue
		}
		if err == nil && len(books) == 0 {
			err = errors.New("no books left after filtering")
		}
		if err != nil {
			e.logger.Warn().Err(err).Str("strategy", string(s.name)).Msg("strategy failed, using popularity fallback")
			metrics.IncStrategyFallback(string(s.name))
			res.Fallback = true
			break
		}
		res.Strategy, res.Books, found = s.name, books, true
		break
	}
	if !found {
		res.Strategy = StrategyPopularity
		res.Books = e.popularityFallback(ctx, exclude)
	}

	res.Books = e.augmentWithAuthors(ctx, snap.Preferences.Authors, res.Books, exclude)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	metrics.IncStrategySelected(string(res.Strategy))
	return res, nil
}

// Refresh recomputes recommendations as a new generation, cancelling any
// in-flight refresh. The result is published to Latest unless a newer
// refresh started meanwhile, in which case ErrSuperseded is returned.
func (e *Engine) Refresh(ctx context.Context) (Result, error) {
	runCtx, gen := e.recs.begin(ctx)
	defer e.recs.done(gen)

	res, err := e.Recommend(runCtx)
	if err != nil {
		if e.recs.current(gen) {
			return Result{}, err
		}
		metrics.IncStaleResult()
		return Result{}, ErrSuperseded
	}
	res.Generation = gen
	if !e.recs.publish(gen, res) {
		metrics.IncStaleResult()
		return res, ErrSuperseded
	}
	return res, nil
}

// Latest returns the most recent published recommendation set.
func (e *Engine) Latest() (Result, bool) { return e.recs.latest() }

func readingListIDs(snap library.Snapshot) map[string]bool {
	ids := make(map[string]bool, len(snap.ReadingList))
	for _, entry := range snap.ReadingList {
		ids[entry.ID] = true
	}
	return ids
}

// collector accumulates books in order, dropping duplicates and excluded ids.
// An empty reason leaves each book as it came from the catalog.
type collector struct {
	exclude map[string]bool
	seen    map[string]bool
	books   []models.Book
}

func newCollector(exclude map[string]bool, existing []models.Book) *collector {
	c := &collector{exclude: exclude, seen: make(map[string]bool, len(existing))}
	for _, b := range existing {
		c.seen[b.ID] = true
		c.books = append(c.books, b)
	}
	return c
}

func (c *collector) add(books []models.Book, reason string) {
	for _, b := range books {
		if c.exclude[b.ID] || c.seen[b.ID] {
			continue
		}
		c.seen[b.ID] = true
		if reason != "" {
			b = b.WithReason(reason)
		}
		c.books = append(c.books, b)
	}
}

func (c *collector) result(limit int) []models.Book {
	out := c.books
	if out == nil {
		out = []models.Book{}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// slot holds the newest result of a repeatable computation.
type slot[T any] struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	value  T
	has    bool
}

func (s *slot[T]) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	return ctx, s.gen
}

func (s *slot[T]) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *slot[T]) publish(gen uint64, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.value, s.has = v, true
	return true
}

// done releases the context of generation gen if it is still current.
func (s *slot[T]) done(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// reset cancels any in-flight run and forgets the published value.
func (s *slot[T]) reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	var zero T
	s.value, s.has = zero, false
	return s.gen
}

func (s *slot[T]) latest() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}
