// file: internal/recommend/explore.go
// version: 1.1.0
// guid: 6256e9cb-edc9-4699-a6a4-6c99fe878474

package recommend

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jdfalk/book-explorer/internal/metrics"
	"github.com/jdfalk/book-explorer/internal/models"
)

// Trending returns trending books, falling back once to popular books. Books
// already on the reading list are left out of either result. When both fail
// it returns an empty slice and an error wrapping ErrNoTrending.
func (e *Engine) Trending(ctx context.Context) ([]models.Book, error) {
	exclude := readingListIDs(e.state.Snapshot())

	books, err := e.catalog.TrendingBooks(ctx, TrendingResults)
	if err == nil {
		return withoutIDs(books, exclude), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return []models.Book{}, ctxErr
	}
	e.logger.Warn().Err(err).Msg("trending books unavailable, falling back to popular")

	books, popErr := e.catalog.PopularBooks(ctx, TrendingResults)
	if popErr == nil {
		return withoutIDs(books, exclude), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return []models.Book{}, ctxErr
	}
	e.logger.Error().Err(popErr).Msg("popular fallback for trending failed")
	return []models.Book{}, fmt.Errorf("%w: %w", ErrNoTrending, errors.Join(err, popErr))
}

func withoutIDs(books []models.Book, exclude map[string]bool) []models.Book {
	c := newCollector(exclude, nil)
	c.add(books, "")
	return c.result(0)
}

// RefreshTrending recomputes trending books into their own result slot.
func (e *Engine) RefreshTrending(ctx context.Context) ([]models.Book, error) {
	runCtx, gen := e.trending.begin(ctx)
	defer e.trending.done(gen)

	books, err := e.Trending(runCtx)
	if !e.trending.current(gen) {
		return books, ErrSuperseded
	}
	if err != nil && !errors.Is(err, ErrNoTrending) {
		return books, err
	}
	e.trending.publish(gen, books)
	return books, err
}

// LatestTrending returns the most recent published trending set.
func (e *Engine) LatestTrending() ([]models.Book, bool) { return e.trending.latest() }

// Explore fetches books for an explicit genre selection of at most five
// genres. Genres that fail are skipped; an error is returned only when every
// genre failed. The union is shuffled and capped at MaxRecommendations. An
// empty selection clears the explore slot.
func (e *Engine) Explore(ctx context.Context, genres []string) (Result, error) {
	genres = models.UniqueStrings(genres, 0)
	if len(genres) > MaxExploreGenres {
		return Result{}, ErrTooManyGenres
	}
	if len(genres) == 0 {
		gen := e.explore.reset()
		return Result{Strategy: StrategyGenreExplore, Books: []models.Book{}, Generation: gen, GeneratedAt: e.now()}, nil
	}

	runCtx, gen := e.explore.begin(ctx)
	defer e.explore.done(gen)

	exclude := readingListIDs(e.state.Snapshot())
	results, err := e.fetchGenresTolerant(runCtx, genres, PerGenreResults)
	if !e.explore.current(gen) {
		metrics.IncStaleResult()
		return Result{}, ErrSuperseded
	}
	if err != nil {
		return Result{Strategy: StrategyGenreExplore, Books: []models.Book{}, Generation: gen, GeneratedAt: e.now()}, err
	}

	c := newCollector(exclude, nil)
	for i, books := range results {
		c.add(books, genres[i]+" books for you")
	}
	books := c.result(0)
	e.shuffle(books)
	if len(books) > MaxRecommendations {
		books = books[:MaxRecommendations]
	}

	res := Result{Strategy: StrategyGenreExplore, Books: books, Generation: gen, GeneratedAt: e.now()}
	if !e.explore.publish(gen, res) {
		metrics.IncStaleResult()
		return res, ErrSuperseded
	}
	return res, nil
}

// LatestExplore returns the most recent published genre-explore set.
func (e *Engine) LatestExplore() (Result, bool) { return e.explore.latest() }

// fetchGenresTolerant fetches every genre concurrently and returns results
// indexed like genres. Failed genres are logged and left empty.
func (e *Engine) fetchGenresTolerant(ctx context.Context, genres []string, perGenre int) ([][]models.Book, error) {
	return FetchGenres(ctx, e.catalog, genres, perGenre, func(genre string, err error) {
		e.logger.Warn().Err(err).Str("genre", genre).Msg("genre fetch failed, skipping")
	})
}

// GenreFetcher is the catalog call FetchGenres needs.
type GenreFetcher interface {
	BooksByGenre(ctx context.Context, genre string, maxResults int) ([]models.Book, error)
}

// FetchGenres fetches perGenre books for each genre concurrently. onError is
// called for each failed genre. The returned error is non-nil only when every
// genre failed or ctx was cancelled.
func FetchGenres(ctx context.Context, catalog GenreFetcher, genres []string, perGenre int, onError func(genre string, err error)) ([][]models.Book, error) {
	results := make([][]models.Book, len(genres))
	errs := make([]error, len(genres))

	var g errgroup.Group
	for i, genre := range genres {
		g.Go(func() error {
			results[i], errs[i] = catalog.BooksByGenre(ctx, genre, perGenre)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			if onError != nil {
				onError(genres[i], err)
			}
		}
	}
	if failed > 0 && failed == len(genres) {
		return nil, fmt.Errorf("all %d genres failed: %w", failed, errors.Join(errs...))
	}
	return results, nil
}

func (e *Engine) shuffle(books []models.Book) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(len(books), func(i, j int) { books[i], books[j] = books[j], books[i] })
}
