// file: internal/catalog/aggregate.go
// version: 1.0.0
// guid: 38eafac0-0729-48ca-8478-3af097434648

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jdfalk/book-explorer/internal/models"
)

// cannedQueryResults is how many results each canned query asks for.
const cannedQueryResults = 10

var (
	popularQueries = []string{
		"bestseller fiction",
		"popular books 2024",
		"award winning books",
		"new york times bestseller",
	}
	trendingQueries = []string{
		"trending books",
		"new releases fiction",
		"most popular books this week",
	}
)

// PopularBooks runs the canned popularity queries in order, deduplicating by
// id, until maxResults books are collected. A failing query is logged and
// skipped; an error is returned only when every query failed.
func (c *Client) PopularBooks(ctx context.Context, maxResults int) ([]models.Book, error) {
	return c.aggregate(ctx, popularQueries, cannedQueryResults, maxResults)
}

// TrendingBooks is PopularBooks over the trending query set.
func (c *Client) TrendingBooks(ctx context.Context, maxResults int) ([]models.Book, error) {
	return c.aggregate(ctx, trendingQueries, cannedQueryResults, maxResults)
}

// BooksByGenre searches the subject index for genre.
func (c *Client) BooksByGenre(ctx context.Context, genre string, maxResults int) ([]models.Book, error) {
	q := "subject:" + strings.TrimSpace(genre)
	return c.aggregate(ctx, []string{q}, maxResults, maxResults)
}

// BooksByAuthor searches the author index for an exact author name.
func (c *Client) BooksByAuthor(ctx context.Context, author string, maxResults int) ([]models.Book, error) {
	q := fmt.Sprintf("inauthor:%q", strings.TrimSpace(author))
	return c.aggregate(ctx, []string{q}, maxResults, maxResults)
}

func (c *Client) aggregate(ctx context.Context, queries []string, perQuery, maxResults int) ([]models.Book, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var (
		books    []models.Book
		seen     = make(map[string]bool)
		failures []error
		ok       int
	)
	for _, q := range queries {
		if len(books) >= maxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := c.Search(ctx, q, perQuery)
		if err != nil {
			c.logger.Warn().Err(err).Str("query", q).Msg("catalog query failed, skipping")
			failures = append(failures, err)
			continue
		}
		ok++
		for _, b := range results {
			if seen[b.ID] {
				continue
			}
			seen[b.ID] = true
			books = append(books, b)
		}
	}

	if ok == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllQueriesFailed, errors.Join(failures...))
	}
	if len(books) > maxResults {
		books = books[:maxResults]
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}
