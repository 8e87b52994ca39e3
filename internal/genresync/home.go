// file: internal/genresync/home.go
// version: 1.0.0
// guid: f5dfe87e-f931-4309-ad5a-8a9c8e3aac4d

package genresync

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jdfalk/book-explorer/internal/logging"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/recommend"
)

const (
	HomeFeedSize     = 12
	HomePerGenre     = 6
	popularHomeTitle = "Popular Books"
	genreTitleJoiner = " & "
	genreTitleSuffix = " Books"
)

// HomeCatalog is the catalog surface the home feed reads.
type HomeCatalog interface {
	PopularBooks(ctx context.Context, maxResults int) ([]models.Book, error)
	BooksByGenre(ctx context.Context, genre string, maxResults int) ([]models.Book, error)
}

// HomeFeed is the home page listing. It only reads the home genre selection.
type HomeFeed struct {
	catalog HomeCatalog
	genres  HomeGenreReader
	logger  zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHomeFeed creates a feed over catalog filtered by the stored home genres.
// A nil rng uses a randomly seeded source.
func NewHomeFeed(catalog HomeCatalog, genres HomeGenreReader, rng *rand.Rand) *HomeFeed {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &HomeFeed{
		catalog: catalog,
		genres:  genres,
		logger:  logging.Component("genresync"),
		rng:     rng,
	}
}

// Title names the listing after the selected genres, or "Popular Books".
func (h *HomeFeed) Title() string {
	genres := h.genres.HomeGenres()
	if len(genres) == 0 {
		return popularHomeTitle
	}
	return strings.Join(genres, genreTitleJoiner) + genreTitleSuffix
}

// Books returns the home listing. With a genre selection it draws only from
// per-genre fetches: six per genre, deduplicated, shuffled and capped at
// twelve. Without one it returns popular books.
func (h *HomeFeed) Books(ctx context.Context) ([]models.Book, error) {
	genres := h.genres.HomeGenres()
	if len(genres) == 0 {
		return h.catalog.PopularBooks(ctx, HomeFeedSize)
	}

	results, err := recommend.FetchGenres(ctx, h.catalog, genres, HomePerGenre, func(genre string, err error) {
		h.logger.Warn().Err(err).Str("genre", genre).Msg("home genre fetch failed, skipping")
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return []models.Book{}, nil
	}

	seen := map[string]bool{}
	books := []models.Book{}
	for _, set := range results {
		for _, b := range set {
			if seen[b.ID] {
				continue
			}
			seen[b.ID] = true
			books = append(books, b)
		}
	}

	h.rngMu.Lock()
	h.rng.Shuffle(len(books), func(i, j int) { books[i], books[j] = books[j], books[i] })
	h.rngMu.Unlock()

	if len(books) > HomeFeedSize {
		books = books[:HomeFeedSize]
	}
	return books, nil
}
