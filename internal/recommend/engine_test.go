// file: internal/recommend/engine_test.go
// version: 1.1.0
// guid: 32560b3e-4620-4c64-9dbc-764b39819d27

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/book-explorer/internal/library"
	"github.com/jdfalk/book-explorer/internal/models"
)

// fakeCatalog serves canned books and records every call.
type fakeCatalog struct {
	mu sync.Mutex

	genres      map[string][]models.Book
	genreErr    map[string]error
	authors     map[string][]models.Book
	authorErr   map[string]error
	popular     []models.Book
	popularErr  error
	trending    []models.Book
	trendingErr error

	// blockGenre makes BooksByGenre wait for cancellation for that genre.
	blockGenre string
	started    chan string

	genreCalls    []string
	genreMax      []int
	authorCalls   []string
	authorMax     []int
	popularCalls  []int
	trendingCalls []int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		genres:    map[string][]models.Book{},
		genreErr:  map[string]error{},
		authors:   map[string][]models.Book{},
		authorErr: map[string]error{},
	}
}

func (f *fakeCatalog) BooksByGenre(ctx context.Context, genre string, maxResults int) ([]models.Book, error) {
	f.mu.Lock()
	f.genreCalls = append(f.genreCalls, genre)
	f.genreMax = append(f.genreMax, maxResults)
	books, err, block := f.genres[genre], f.genreErr[genre], f.blockGenre == genre
	f.mu.Unlock()

	if block {
		if f.started != nil {
			f.started <- genre
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return slices.Clone(books), err
}

func (f *fakeCatalog) BooksByAuthor(_ context.Context, author string, maxResults int) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorCalls = append(f.authorCalls, author)
	f.authorMax = append(f.authorMax, maxResults)
	return slices.Clone(f.authors[author]), f.authorErr[author]
}

func (f *fakeCatalog) PopularBooks(_ context.Context, maxResults int) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.popularCalls = append(f.popularCalls, maxResults)
	return slices.Clone(f.popular), f.popularErr
}

func (f *fakeCatalog) TrendingBooks(_ context.Context, maxResults int) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trendingCalls = append(f.trendingCalls, maxResults)
	return slices.Clone(f.trending), f.trendingErr
}

func (f *fakeCatalog) genreCallsSorted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := slices.Clone(f.genreCalls)
	slices.Sort(calls)
	return calls
}

type fakeState struct {
	mu   sync.Mutex
	snap library.Snapshot
}

func (s *fakeState) Snapshot() library.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeState) set(snap library.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

func books(prefix string, n int) []models.Book {
	out := make([]models.Book, n)
	for i := range out {
		out[i] = models.Book{ID: fmt.Sprintf("%s-%d", prefix, i+1), Title: prefix}
	}
	return out
}

func entry(id string, categories ...string) models.ReadingListEntry {
	return models.ReadingListEntry{
		Book:          models.Book{ID: id, Categories: categories},
		ReadingStatus: models.StatusWantToRead,
	}
}

func ids(bs []models.Book) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func newEngine(catalog Catalog, snap library.Snapshot) (*Engine, *fakeState) {
	state := &fakeState{snap: snap}
	return New(catalog, state, WithRand(rand.New(rand.NewPCG(1, 2)))), state
}

func TestRecommend_GenreBasedFromPreferences(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.genres["Mystery"] = books("mystery", 3)
	catalog.genres["History"] = books("history", 3)
	engine, _ := newEngine(catalog, library.Snapshot{
		Preferences: models.Preferences{Genres: []string{"Mystery", "History"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyGenreBased, res.Strategy)
	assert.False(t, res.Fallback)
	assert.Equal(t, []string{"History", "Mystery"}, catalog.genreCallsSorted())
	assert.Equal(t, []int{PerGenreResults, PerGenreResults}, catalog.genreMax)
	require.Len(t, res.Books, 6)
	for _, b := range res.Books {
		assert.Contains(t, b.RecommendationReason, "Mystery and History")
	}
	assert.Equal(t, []string{"mystery-1", "mystery-2", "mystery-3", "history-1", "history-2", "history-3"}, ids(res.Books))
	assert.Empty(t, catalog.popularCalls)
}

func TestRecommend_GenreBasedUsesFirstThreeGenres(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	for _, g := range []string{"A", "B", "C", "D"} {
		catalog.genres[g] = books(g, 1)
	}
	engine, _ := newEngine(catalog, library.Snapshot{
		Preferences: models.Preferences{Genres: []string{"A", "B", "C", "D"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, catalog.genreCallsSorted())
	assert.Equal(t, "Based on your interest in A and B", res.Books[0].RecommendationReason)
}

func TestRecommend_RatingBased(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.genres["Fantasy"] = append(books("fantasy", 3), models.Book{ID: "loved"})
	engine, _ := newEngine(catalog, library.Snapshot{
		ReadingList: []models.ReadingListEntry{entry("loved", "Fantasy"), entry("meh", "Horror")},
		Ratings:     map[string]int{"loved": 5, "meh": 2},
		Preferences: models.Preferences{Genres: []string{"Mystery"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyRatingBased, res.Strategy)
	assert.Equal(t, []string{"Fantasy"}, catalog.genreCallsSorted())
	assert.Equal(t, []string{"fantasy-1", "fantasy-2", "fantasy-3"}, ids(res.Books))
	assert.Equal(t, "You rated Fantasy books highly", res.Books[0].RecommendationReason)
}

func TestRecommend_RatingsWithoutHighScoresFallThroughToGenres(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.genres["Mystery"] = books("mystery", 2)
	engine, _ := newEngine(catalog, library.Snapshot{
		ReadingList: []models.ReadingListEntry{entry("meh", "Horror")},
		Ratings:     map[string]int{"meh": 3},
		Preferences: models.Preferences{Genres: []string{"Mystery"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyGenreBased, res.Strategy)
	assert.Equal(t, []string{"Mystery"}, catalog.genreCallsSorted())
}

func TestRecommend_LowRatingsOnlyUsesPopularity(t *testing.T) {
	// Arrange: ratings exist but none are 4+, no genres, empty reading list.
	catalog := newFakeCatalog()
	catalog.popular = books("popular", 5)
	engine, _ := newEngine(catalog, library.Snapshot{
		Ratings: map[string]int{"elsewhere": 2},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyPopularity, res.Strategy)
	assert.False(t, res.Fallback)
	assert.Empty(t, catalog.genreCalls)
	assert.Equal(t, []int{MaxRecommendations}, catalog.popularCalls)
	require.Len(t, res.Books, 5)
	assert.Equal(t, "Popular with other readers", res.Books[0].RecommendationReason)
}

func TestRecommend_ReadingListBased(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.genres["Science"] = append(books("science", 2), models.Book{ID: "owned"})
	catalog.genres["Travel"] = books("travel", 1)
	engine, _ := newEngine(catalog, library.Snapshot{
		ReadingList: []models.ReadingListEntry{entry("owned", "Science", "Travel"), entry("other", "Science")},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyReadingListBased, res.Strategy)
	assert.Equal(t, []string{"Science", "Travel"}, catalog.genreCallsSorted())
	assert.Equal(t, []string{"science-1", "science-2", "travel-1"}, ids(res.Books))
	assert.Equal(t, "Similar to books in your library", res.Books[2].RecommendationReason)
}

func TestRecommend_ReadingListWithoutCategoriesUsesPopularity(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.popular = append(books("popular", 2), models.Book{ID: "owned"})
	engine, _ := newEngine(catalog, library.Snapshot{
		ReadingList: []models.ReadingListEntry{entry("owned")},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyPopularity, res.Strategy)
	assert.Equal(t, []string{"popular-1", "popular-2"}, ids(res.Books))
}

func TestRecommend_StrategyFailureGoesToPopularity(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.genreErr["Fantasy"] = errors.New("boom")
	catalog.genres["Mystery"] = books("mystery", 2)
	catalog.popular = books("popular", 3)
	engine, _ := newEngine(catalog, library.Snapshot{
		ReadingList: []models.ReadingListEntry{entry("loved", "Fantasy")},
		Ratings:     map[string]int{"loved": 4},
		Preferences: models.Preferences{Genres: []string{"Mystery"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyPopularity, res.Strategy)
	assert.True(t, res.Fallback)
	assert.NotContains(t, catalog.genreCallsSorted(), "Mystery")
	assert.Equal(t, []string{"popular-1", "popular-2", "popular-3"}, ids(res.Books))
}

func TestRecommend_PartialGenreFailureFailsStrategy(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.genres["Mystery"] = books("mystery", 2)
	catalog.genreErr["History"] = errors.New("503")
	catalog.popular = books("popular", 1)
	engine, _ := newEngine(catalog, library.Snapshot{
		Preferences: models.Preferences{Genres: []string{"Mystery", "History"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyPopularity, res.Strategy)
	assert.True(t, res.Fallback)
}

func TestRecommend_EmptyStrategyResultGoesToPopularity(t *testing.T) {
	// Arrange: every rating-based book is already in the reading list.
	catalog := newFakeCatalog()
	catalog.genres["Fantasy"] = []models.Book{{ID: "loved"}}
	catalog.genres["Mystery"] = books("mystery", 2)
	catalog.popular = books("popular", 2)
	engine, _ := newEngine(catalog, library.Snapshot{
		ReadingList: []models.ReadingListEntry{entry("loved", "Fantasy")},
		Ratings:     map[string]int{"loved": 5},
		Preferences: models.Preferences{Genres: []string{"Mystery"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyPopularity, res.Strategy)
	assert.True(t, res.Fallback)
	assert.NotContains(t, catalog.genreCallsSorted(), "Mystery")
}

func TestRecommend_PopularityFailureYieldsEmpty(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.popularErr = errors.New("offline")
	engine, _ := newEngine(catalog, library.Snapshot{})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyPopularity, res.Strategy)
	assert.NotNil(t, res.Books)
	assert.Empty(t, res.Books)
}

func TestRecommend_DedupExcludeAndCap(t *testing.T) {
	// Arrange: three genres of eight with overlap and one owned id.
	catalog := newFakeCatalog()
	catalog.genres["A"] = books("a", 8)
	catalog.genres["B"] = append(books("b", 7), models.Book{ID: "a-1"})
	catalog.genres["C"] = append(books("c", 7), models.Book{ID: "owned"})
	engine, _ := newEngine(catalog, library.Snapshot{
		ReadingList: []models.ReadingListEntry{entry("owned")},
		Preferences: models.Preferences{Genres: []string{"A", "B", "C"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, res.Books, MaxRecommendations)
	seen := map[string]bool{}
	for _, b := range res.Books {
		assert.False(t, seen[b.ID], "duplicate %s", b.ID)
		assert.NotEqual(t, "owned", b.ID)
		seen[b.ID] = true
	}
	assert.Equal(t, "a-1", res.Books[0].ID)
}

func TestRecommend_AuthorAugmentation(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.popular = books("popular", 2)
	catalog.authors["Le Guin"] = append(books("leguin", 2), models.Book{ID: "popular-1"})
	catalog.authorErr["Pratchett"] = errors.New("boom")
	engine, _ := newEngine(catalog, library.Snapshot{
		Preferences: models.Preferences{Authors: []string{"Le Guin", "Pratchett", "Banks"}},
	})

	// Act
	res, err := engine.Recommend(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StrategyPopularity, res.Strategy)
	assert.ElementsMatch(t, []string{"Le Guin", "Pratchett"}, catalog.authorCalls)
	assert.Equal(t, []int{PerAuthorResults, PerAuthorResults}, catalog.authorMax)
	assert.Equal(t, []string{"popular-1", "popular-2", "leguin-1", "leguin-2"}, ids(res.Books))
	assert.Equal(t, "Popular with other readers", res.Books[0].RecommendationReason)
	assert.Equal(t, "More books by Le Guin", res.Books[3].RecommendationReason)
}

func TestRatingGenres_OrderedByFrequency(t *testing.T) {
	// Arrange
	snap := library.Snapshot{
		ReadingList: []models.ReadingListEntry{
			entry("1", "Drama"),
			entry("2", "Poetry", "Fantasy"),
			entry("3", "Fantasy", "Poetry"),
			entry("4", "Fantasy"),
			entry("5", "Horror"),
			entry("6", "Western"),
		},
		Ratings: map[string]int{"1": 4, "2": 5, "3": 4, "4": 5, "5": 3, "6": 4},
	}

	// Act
	genres := ratingGenres(snap)

	// Assert
	assert.Equal(t, []string{"Fantasy", "Poetry", "Drama"}, genres)
}

func TestRefresh_PublishesLatest(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.popular = books("popular", 1)
	engine, _ := newEngine(catalog, library.Snapshot{})
	_, ok := engine.Latest()
	require.False(t, ok)

	// Act
	first, err1 := engine.Refresh(context.Background())
	second, err2 := engine.Refresh(context.Background())

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, uint64(1), first.Generation)
	assert.Equal(t, uint64(2), second.Generation)
	latest, ok := engine.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest.Generation)
}

func TestRefresh_NewerRequestSupersedesInFlight(t *testing.T) {
	// Arrange
	catalog := newFakeCatalog()
	catalog.blockGenre = "Slow"
	catalog.started = make(chan string, 1)
	catalog.genres["Fast"] = books("fast", 2)
	engine, state := newEngine(catalog, library.Snapshot{
		Preferences: models.Preferences{Genres: []string{"Slow"}},
	})

	firstErr := make(chan error, 1)
	go func() {
		_, err := engine.Refresh(context.Background())
		firstErr <- err
	}()
	select {
	case <-catalog.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh never reached the catalog")
	}

	// Act
	state.set(library.Snapshot{Preferences: models.Preferences{Genres: []string{"Fast"}}})
	res, err := engine.Refresh(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"fast-1", "fast-2"}, ids(res.Books))
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh was not cancelled")
	}
	latest, ok := engine.Latest()
	require.True(t, ok)
	assert.Equal(t, res.Generation, latest.Generation)
	assert.Equal(t, StrategyGenreBased, latest.Strategy)
}

func TestTrending(t *testing.T) {
	t.Run("trending succeeds", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.trending = books("trend", 3)
		engine, _ := newEngine(catalog, library.Snapshot{})

		got, err := engine.Trending(context.Background())

		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Equal(t, []int{TrendingResults}, catalog.trendingCalls)
		assert.Empty(t, catalog.popularCalls)
	})

	t.Run("falls back to popular", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.trendingErr = errors.New("down")
		catalog.popular = books("popular", 2)
		engine, _ := newEngine(catalog, library.Snapshot{})

		got, err := engine.Trending(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"popular-1", "popular-2"}, ids(got))
		assert.Equal(t, []int{TrendingResults}, catalog.popularCalls)
	})

	t.Run("excludes reading list books", func(t *testing.T) {
		// Arrange
		catalog := newFakeCatalog()
		catalog.trending = books("trend", 3)
		catalog.popular = books("trend", 2)
		engine, _ := newEngine(catalog, library.Snapshot{
			ReadingList: []models.ReadingListEntry{entry("trend-1")},
		})

		// Act
		got, err := engine.Trending(context.Background())
		catalog.trendingErr = errors.New("down")
		fallback, fallbackErr := engine.Trending(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"trend-2", "trend-3"}, ids(got))
		require.NoError(t, fallbackErr)
		assert.Equal(t, []string{"trend-2"}, ids(fallback))
		assert.Empty(t, got[0].RecommendationReason)
	})

	t.Run("both fail", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.trendingErr = errors.New("down")
		catalog.popularErr = errors.New("also down")
		engine, _ := newEngine(catalog, library.Snapshot{})

		got, err := engine.RefreshTrending(context.Background())

		assert.ErrorIs(t, err, ErrNoTrending)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		latest, ok := engine.LatestTrending()
		assert.True(t, ok)
		assert.Empty(t, latest)
	})
}

func TestExplore(t *testing.T) {
	t.Run("rejects more than five genres", func(t *testing.T) {
		engine, _ := newEngine(newFakeCatalog(), library.Snapshot{})

		_, err := engine.Explore(context.Background(), []string{"a", "b", "c", "d", "e", "f"})

		assert.ErrorIs(t, err, ErrTooManyGenres)
	})

	t.Run("unions genres tolerating failures", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.genres["Romance"] = append(books("romance", 3), models.Book{ID: "owned"})
		catalog.genreErr["Horror"] = errors.New("boom")
		engine, _ := newEngine(catalog, library.Snapshot{
			ReadingList: []models.ReadingListEntry{entry("owned")},
		})

		res, err := engine.Explore(context.Background(), []string{"Romance", "Horror"})

		require.NoError(t, err)
		assert.Equal(t, StrategyGenreExplore, res.Strategy)
		assert.ElementsMatch(t, []string{"romance-1", "romance-2", "romance-3"}, ids(res.Books))
		for _, b := range res.Books {
			assert.Equal(t, "Romance books for you", b.RecommendationReason)
		}
		assert.Equal(t, []int{PerGenreResults, PerGenreResults}, catalog.genreMax)
		latest, ok := engine.LatestExplore()
		require.True(t, ok)
		assert.Equal(t, res.Generation, latest.Generation)
	})

	t.Run("caps at twenty", func(t *testing.T) {
		catalog := newFakeCatalog()
		for _, g := range []string{"A", "B", "C"} {
			catalog.genres[g] = books(g, 8)
		}
		engine, _ := newEngine(catalog, library.Snapshot{})

		res, err := engine.Explore(context.Background(), []string{"A", "B", "C"})

		require.NoError(t, err)
		assert.Len(t, res.Books, MaxRecommendations)
	})

	t.Run("all genres failing is an error", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.genreErr["A"] = errors.New("boom")
		engine, _ := newEngine(catalog, library.Snapshot{})

		res, err := engine.Explore(context.Background(), []string{"A"})

		assert.Error(t, err)
		assert.Empty(t, res.Books)
	})

	t.Run("empty selection clears the slot", func(t *testing.T) {
		catalog := newFakeCatalog()
		catalog.genres["A"] = books("a", 1)
		engine, _ := newEngine(catalog, library.Snapshot{})
		_, err := engine.Explore(context.Background(), []string{"A"})
		require.NoError(t, err)

		res, err := engine.Explore(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, res.Books)
		_, ok := engine.LatestExplore()
		assert.False(t, ok)
	})
}
