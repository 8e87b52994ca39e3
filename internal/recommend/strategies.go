// file: internal/recommend/strategies.go
// version: 1.0.0
// guid: 33da68f8-22d5-4c47-97cf-5d29c700011c

package recommend

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jdfalk/book-explorer/internal/library"
	"github.com/jdfalk/book-explorer/internal/models"
)

const (
	reasonSimilarToLibrary = "Similar to books in your library"
	reasonPopular          = "Popular with other readers"
)

// strategyFunc returns applicable=false when its inputs are absent so the
// chain moves on to the next strategy.
type strategyFunc func(ctx context.Context, snap library.Snapshot, exclude map[string]bool) (books []models.Book, applicable bool, err error)

type strategy struct {
	name Strategy
	run  strategyFunc
}

func (e *Engine) ratingBased(ctx context.Context, snap library.Snapshot, exclude map[string]bool) ([]models.Book, bool, error) {
	if len(snap.Ratings) == 0 {
		return nil, false, nil
	}
	genres := ratingGenres(snap)
	if len(genres) == 0 {
		return nil, false, nil
	}
	books, err := e.fetchGenresStrict(ctx, genres, exclude, fmt.Sprintf("You rated %s books highly", genres[0]))
	return books, true, err
}

func (e *Engine) genreBased(ctx context.Context, snap library.Snapshot, exclude map[string]bool) ([]models.Book, bool, error) {
	genres := models.UniqueStrings(snap.Preferences.Genres, MaxStrategyGenres)
	if len(genres) == 0 {
		return nil, false, nil
	}
	reason := "Based on your interest in " + strings.Join(genres[:min(2, len(genres))], " and ")
	books, err := e.fetchGenresStrict(ctx, genres, exclude, reason)
	return books, true, err
}

func (e *Engine) readingListBased(ctx context.Context, snap library.Snapshot, exclude map[string]bool) ([]models.Book, bool, error) {
	var all []string
	for _, entry := range snap.ReadingList {
		all = append(all, entry.Categories...)
	}
	genres := models.UniqueStrings(all, MaxStrategyGenres)
	if len(genres) == 0 {
		return nil, false, nil
	}
	books, err := e.fetchGenresStrict(ctx, genres, exclude, reasonSimilarToLibrary)
	return books, true, err
}

func (e *Engine) popularityFallback(ctx context.Context, exclude map[string]bool) []models.Book {
	books, err := e.catalog.PopularBooks(ctx, MaxRecommendations)
	if err != nil {
		e.logger.Warn().Err(err).Msg("popular books unavailable, returning no recommendations")
		return []models.Book{}
	}
	c := newCollector(exclude, nil)
	c.add(books, reasonPopular)
	return c.result(MaxRecommendations)
}

// ratingGenres derives up to three genres from reading-list books rated 4 or
// higher, most frequent first. Ties keep reading-list order.
func ratingGenres(snap library.Snapshot) []string {
	counts := map[string]int{}
	var order []string
	for _, entry := range snap.ReadingList {
		if snap.Ratings[entry.ID] < 4 {
			continue
		}
		for _, c := range entry.Categories {
			if c = strings.TrimSpace(c); c == "" {
				continue
			}
			if counts[c] == 0 {
				order = append(order, c)
			}
			counts[c]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	if len(order) > MaxStrategyGenres {
		order = order[:MaxStrategyGenres]
	}
	return order
}

// fetchGenresStrict fetches every genre concurrently; any failure fails the
// whole set. Results are unioned in genre order.
func (e *Engine) fetchGenresStrict(ctx context.Context, genres []string, exclude map[string]bool, reason string) ([]models.Book, error) {
	results := make([][]models.Book, len(genres))
	g, gctx := errgroup.WithContext(ctx)
	for i, genre := range genres {
		g.Go(func() error {
			books, err := e.catalog.BooksByGenre(gctx, genre, PerGenreResults)
			if err != nil {
				return fmt.Errorf("genre %q: %w", genre, err)
			}
			results[i] = books
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := newCollector(exclude, nil)
	for _, books := range results {
		c.add(books, reason)
	}
	return c.result(MaxRecommendations), nil
}

// augmentWithAuthors appends books by up to two favorite authors. Author
// lookups that fail are logged and skipped.
func (e *Engine) augmentWithAuthors(ctx context.Context, authors []string, books []models.Book, exclude map[string]bool) []models.Book {
	authors = models.UniqueStrings(authors, MaxAuthors)
	if len(authors) == 0 {
		return books
	}

	results := make([][]models.Book, len(authors))
	var g errgroup.Group
	for i, author := range authors {
		g.Go(func() error {
			found, err := e.catalog.BooksByAuthor(ctx, author, PerAuthorResults)
			if err != nil {
				e.logger.Warn().Err(err).Str("author", author).Msg("author lookup failed, skipping")
				return nil
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	c := newCollector(exclude, books)
	for i, found := range results {
		c.add(found, "More books by "+authors[i])
	}
	return c.result(0)
}
