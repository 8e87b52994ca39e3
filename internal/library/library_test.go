// file: internal/library/library_test.go
// version: 1.0.0
// guid: 2c9807b8-c46a-4777-b44f-1d6cab2d3eaf

package library

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/book-explorer/internal/database"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/realtime"
)

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) database.Store {
	t.Helper()
	store, err := database.NewInMemoryPebbleStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newLibrary(t *testing.T, store database.Store, opts ...Option) *Library {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return Open(store, opts...)
}

func book(id string, categories ...string) models.Book {
	return models.Book{ID: id, Title: "Title " + id, Authors: []string{"Author"}, Categories: categories, PageCount: 300}
}

func TestOpenEmptyStoreUsesDefaults(t *testing.T) {
	lib := newLibrary(t, newStore(t))

	assert.Empty(t, lib.ReadingList())
	assert.Empty(t, lib.Ratings())
	assert.Equal(t, models.DefaultPreferences(), lib.Preferences())
	assert.False(t, lib.IsPremium())
	assert.Empty(t, lib.HomeGenres())
	assert.False(t, lib.IsAuthenticated())
	assert.Empty(t, lib.LoadErrors())
}

func TestAddIsIdempotent(t *testing.T) {
	// Arrange
	lib := newLibrary(t, newStore(t))
	b := book("x").WithReason("Popular with other readers")

	// Act
	added1, err1 := lib.Add(b)
	added2, err2 := lib.Add(b)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, added1)
	assert.False(t, added2)
	list := lib.ReadingList()
	require.Len(t, list, 1)
	assert.Equal(t, "x", list[0].ID)
	assert.Equal(t, models.StatusWantToRead, list[0].ReadingStatus)
	assert.Equal(t, fixedNow, list[0].DateAdded)
	assert.Empty(t, list[0].RecommendationReason)
}

func TestAddRequiresID(t *testing.T) {
	lib := newLibrary(t, newStore(t))

	_, err := lib.Add(models.Book{Title: "no id"})

	assert.ErrorIs(t, err, ErrMissingBookID)
	assert.Empty(t, lib.ReadingList())
}

func TestRemove(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	_, _ = lib.Add(book("a"))
	_, _ = lib.Add(book("b"))

	removed, err := lib.Remove("a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = lib.Remove("a")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.False(t, lib.Contains("a"))
	assert.True(t, lib.Contains("b"))
}

func TestUpdateStatus(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	_, _ = lib.Add(book("a"))

	require.NoError(t, lib.UpdateStatus("a", models.StatusFinished))
	entry, ok := lib.Entry("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusFinished, entry.ReadingStatus)
	require.NotNil(t, entry.StatusUpdated)
	assert.Equal(t, fixedNow, *entry.StatusUpdated)

	assert.NoError(t, lib.UpdateStatus("absent", models.StatusFinished))
	assert.Len(t, lib.ReadingList(), 1)
	assert.ErrorIs(t, lib.UpdateStatus("a", models.ReadingStatus("abandoned")), ErrInvalidStatus)
}

func TestUpdateProgressAndReview(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	_, _ = lib.Add(book("a"))
	page := 150

	entry, err := lib.UpdateProgress("a", models.ProgressUpdate{Page: &page})
	require.NoError(t, err)
	assert.Equal(t, 150, entry.CurrentPage)
	assert.InDelta(t, 50.0, entry.ProgressPercent, 0.001)
	require.NotNil(t, entry.LastUpdated)

	_, err = lib.UpdateProgress("missing", models.ProgressUpdate{Page: &page})
	assert.ErrorIs(t, err, ErrNotInReadingList)

	require.NoError(t, lib.SetReview("a", "  loved it  "))
	got, _ := lib.Entry("a")
	assert.Equal(t, "loved it", got.Review)
	assert.ErrorIs(t, lib.SetReview("missing", "x"), ErrNotInReadingList)
}

func TestRateOverwrites(t *testing.T) {
	lib := newLibrary(t, newStore(t))

	require.NoError(t, lib.Rate("b1", 2))
	require.NoError(t, lib.Rate("b1", 5))

	r, ok := lib.Rating("b1")
	assert.True(t, ok)
	assert.Equal(t, 5, r)
	assert.Len(t, lib.Ratings(), 1)
}

func TestRateRejectsInvalidInput(t *testing.T) {
	lib := newLibrary(t, newStore(t))

	assert.ErrorIs(t, lib.Rate("", 3), ErrMissingBookID)
	assert.ErrorIs(t, lib.Rate("b", 0), ErrInvalidRating)
	assert.ErrorIs(t, lib.Rate("b", 6), ErrInvalidRating)
	assert.Empty(t, lib.Ratings())
}

func TestUpdatePreferencesMerges(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	goal := 30

	prefs, err := lib.UpdatePreferences(models.PreferencesPatch{Genres: []string{"Mystery", "Mystery", " History "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mystery", "History"}, prefs.Genres)

	prefs, err = lib.UpdatePreferences(models.PreferencesPatch{Authors: []string{"Agatha Christie"}, ReadingGoal: &goal})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mystery", "History"}, prefs.Genres)
	assert.Equal(t, []string{"Agatha Christie"}, prefs.Authors)
	assert.Equal(t, 30, prefs.ReadingGoal)

	zero := 0
	_, err = lib.UpdatePreferences(models.PreferencesPatch{ReadingGoal: &zero})
	assert.ErrorIs(t, err, ErrInvalidReadingGoal)
	assert.Equal(t, 30, lib.Preferences().ReadingGoal)
}

func TestPreferenceGenresAreCapped(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	many := append(append([]string{}, models.GenreOptions...), "Horror", "Westerns")

	prefs, err := lib.UpdatePreferences(models.PreferencesPatch{Genres: many})

	require.NoError(t, err)
	assert.Len(t, prefs.Genres, models.MaxPreferenceGenres)
}

func TestPreferencesRoundTrip(t *testing.T) {
	// Arrange
	store := newStore(t)
	lib := newLibrary(t, store)

	// Act
	_, err := lib.UpdatePreferences(models.PreferencesPatch{Genres: []string{"Art"}})
	require.NoError(t, err)
	reloaded := newLibrary(t, store)

	// Assert
	assert.Equal(t, []string{"Art"}, reloaded.Preferences().Genres)
}

func TestAllStructuresSurviveRestart(t *testing.T) {
	store := newStore(t)
	lib := newLibrary(t, store)
	_, _ = lib.Add(book("a", "Fantasy"))
	require.NoError(t, lib.UpdateStatus("a", models.StatusCurrentlyReading))
	require.NoError(t, lib.Rate("a", 4))
	require.NoError(t, lib.Upgrade())
	require.NoError(t, lib.SetHomeGenres([]string{"Romance"}))
	require.NoError(t, lib.SetCustomCover("a", "data:image/png;base64,AAAA"))
	_, err := lib.SignIn("Ada", "ada@example.com")
	require.NoError(t, err)

	reloaded := newLibrary(t, store)

	require.Len(t, reloaded.ReadingList(), 1)
	assert.Equal(t, models.StatusCurrentlyReading, reloaded.ReadingList()[0].ReadingStatus)
	assert.Equal(t, map[string]int{"a": 4}, reloaded.Ratings())
	assert.True(t, reloaded.IsPremium())
	assert.Equal(t, []string{"Romance"}, reloaded.HomeGenres())
	assert.True(t, reloaded.HasCustomCover("a"))
	id, ok := reloaded.Identity()
	require.True(t, ok)
	assert.Equal(t, "Ada", id.Name)
	assert.NotEmpty(t, id.SessionID)
}

func TestCorruptKeyDoesNotAffectOthers(t *testing.T) {
	// Arrange
	store := newStore(t)
	require.NoError(t, store.Set(KeyReadingList, []byte(`[{"id":"a","title":"A","readingStatus":"finished"}]`)))
	require.NoError(t, store.Set(KeyRatings, []byte(`{not json`)))
	require.NoError(t, store.Set(KeyPreferences, []byte(`{"genres":["Art"],"readingGoal":5}`)))
	require.NoError(t, store.Set(KeyHomeGenres, []byte(`42`)))
	require.NoError(t, store.Set(KeyPremium, []byte(`true`)))

	// Act
	lib := newLibrary(t, store)

	// Assert
	assert.Len(t, lib.ReadingList(), 1)
	assert.Empty(t, lib.Ratings())
	assert.Equal(t, []string{"Art"}, lib.Preferences().Genres)
	assert.Equal(t, 5, lib.Preferences().ReadingGoal)
	assert.Empty(t, lib.HomeGenres())
	assert.True(t, lib.IsPremium())

	errs := lib.LoadErrors()
	require.Len(t, errs, 2)
	var perr *StorageParseError
	require.ErrorAs(t, errs[0], &perr)
	assert.Equal(t, KeyRatings, perr.Key)
}

func TestLoadSanitizesStoredValues(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(KeyReadingList, []byte(`[{"id":"a"},{"id":"a"},{"id":""},{"id":"b","readingStatus":"bogus"}]`)))
	require.NoError(t, store.Set(KeyRatings, []byte(`{"a":4,"b":9,"c":0}`)))
	require.NoError(t, store.Set(KeyHomeGenres, []byte(`["A","B","C","D","E","F"]`)))
	require.NoError(t, store.Set(KeyPreferences, []byte(`null`)))

	lib := newLibrary(t, store)

	list := lib.ReadingList()
	require.Len(t, list, 2)
	assert.Equal(t, models.StatusWantToRead, list[1].ReadingStatus)
	assert.Equal(t, map[string]int{"a": 4}, lib.Ratings())
	assert.Len(t, lib.HomeGenres(), models.MaxHomeGenres)
	assert.Equal(t, models.DefaultReadingGoal, lib.Preferences().ReadingGoal)
}

func TestSetHomeGenres(t *testing.T) {
	lib := newLibrary(t, newStore(t))

	require.NoError(t, lib.SetHomeGenres([]string{"Romance", "Mystery"}))
	assert.Equal(t, []string{"Romance", "Mystery"}, lib.HomeGenres())

	err := lib.SetHomeGenres([]string{"A", "B", "C", "D", "E", "F"})
	assert.ErrorIs(t, err, ErrTooManyGenres)
	assert.Equal(t, []string{"Romance", "Mystery"}, lib.HomeGenres())

	require.NoError(t, lib.SetHomeGenres(nil))
	assert.Empty(t, lib.HomeGenres())
}

func TestCustomCoverPrecedence(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	b := book("a")
	b.Thumbnail = "http://catalog/a.jpg"

	assert.Equal(t, "http://catalog/a.jpg", lib.Thumbnail(b))
	assert.Empty(t, lib.Thumbnail(book("none")))

	require.NoError(t, lib.SetCustomCover("a", "data:image/png;base64,AAAA"))
	assert.Equal(t, "data:image/png;base64,AAAA", lib.Thumbnail(b))

	require.NoError(t, lib.RemoveCustomCover("a"))
	assert.False(t, lib.HasCustomCover("a"))
	assert.Equal(t, "http://catalog/a.jpg", lib.Thumbnail(b))
	assert.ErrorIs(t, lib.SetCustomCover("", "x"), ErrMissingBookID)
}

func TestSignInAndSignOutClearsEverything(t *testing.T) {
	// Arrange
	store := newStore(t)
	hub := realtime.NewEventHub()
	events := hub.Subscribe("test", realtime.EventSignedOut)
	lib := newLibrary(t, store, WithEventHub(hub))

	_, err := lib.SignIn("", "")
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = lib.SignIn("Ada", "")
	require.NoError(t, err)
	_, _ = lib.Add(book("a"))
	_ = lib.Rate("a", 5)
	_ = lib.Upgrade()
	_ = lib.SetHomeGenres([]string{"Romance"})
	require.NoError(t, store.Set("unrelated", []byte(`1`)))

	// Act
	require.NoError(t, lib.SignOut())

	// Assert
	assert.False(t, lib.IsAuthenticated())
	assert.Empty(t, lib.ReadingList())
	assert.Empty(t, lib.Ratings())
	assert.False(t, lib.IsPremium())
	assert.Empty(t, lib.HomeGenres())
	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	require.Len(t, events.Channel, 1)
}

func TestMutationsPublishEvents(t *testing.T) {
	hub := realtime.NewEventHub()
	events := hub.Subscribe("test")
	lib := newLibrary(t, newStore(t), WithEventHub(hub))

	_, _ = lib.Add(book("a"))
	_, _ = lib.Add(book("a"))
	_ = lib.Rate("a", 4)
	_, _ = lib.UpdatePreferences(models.PreferencesPatch{Genres: []string{"Art"}})
	_, _ = lib.UpdatePreferences(models.PreferencesPatch{Authors: []string{"Le Guin"}})
	goal := 20
	_, _ = lib.UpdatePreferences(models.PreferencesPatch{ReadingGoal: &goal})

	var got []realtime.EventType
	for len(events.Channel) > 0 {
		got = append(got, (<-events.Channel).Type)
	}
	assert.Equal(t, []realtime.EventType{
		realtime.EventReadingListResized,
		realtime.EventRatingsChanged,
		realtime.EventGenresChanged,
		realtime.EventAuthorsChanged,
		realtime.EventPreferencesChanged,
	}, got)
}

type failingStore struct {
	database.Store
}

func (failingStore) Set(string, []byte) error { return errors.New("disk full") }

func TestPersistFailureIsReturned(t *testing.T) {
	lib := newLibrary(t, failingStore{Store: newStore(t)})

	err := lib.Rate("a", 3)

	assert.ErrorContains(t, err, "persist ratings")
	assert.ErrorContains(t, err, "disk full")
	r, _ := lib.Rating("a")
	assert.Equal(t, 3, r)
}

func TestStats(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	_, _ = lib.Add(book("a", "Fantasy"))
	_, _ = lib.Add(book("b", "Fantasy", "Adventure"))
	_, _ = lib.Add(book("c", "History"))
	_ = lib.UpdateStatus("a", models.StatusFinished)
	_ = lib.UpdateStatus("b", models.StatusCurrentlyReading)
	_ = lib.Rate("a", 5)
	_ = lib.Rate("z", 2)

	s := lib.Stats()
	assert.Equal(t, models.Stats{TotalBooks: 3, TotalRated: 2, FinishedBooks: 1, CurrentlyReading: 1, AverageRating: 3.5}, s)

	d := lib.DetailedStats()
	assert.Equal(t, 900, d.TotalPages)
	assert.Equal(t, "Fantasy", d.FavoriteGenre)
	assert.Equal(t, "18h 45m", d.EstimatedReadingTime)
	assert.Equal(t, models.DefaultReadingGoal, d.ReadingGoal)
	assert.InDelta(t, 100.0/12, d.GoalProgressPercent, 0.001)
}

func TestDetailedStatsEmpty(t *testing.T) {
	d := newLibrary(t, newStore(t)).DetailedStats()

	assert.Equal(t, "None yet", d.FavoriteGenre)
	assert.Equal(t, "Unknown", d.EstimatedReadingTime)
	assert.Zero(t, d.AverageRating)
}

func TestFilter(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	_, _ = lib.Add(book("a", "Fiction / Science Fiction"))
	_, _ = lib.Add(book("b", "History"))
	_, _ = lib.Add(book("c", "Juvenile Fiction"))
	_ = lib.UpdateStatus("c", models.StatusFinished)
	_ = lib.Rate("a", 5)
	_ = lib.Rate("c", 3)

	ids := func(entries []models.ReadingListEntry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(lib.Filter(ReadingListFilter{})))
	assert.Equal(t, []string{"a", "c"}, ids(lib.Filter(ReadingListFilter{Genre: "fiction"})))
	assert.Equal(t, []string{"c"}, ids(lib.Filter(ReadingListFilter{Status: models.StatusFinished})))
	assert.Equal(t, []string{"a"}, ids(lib.Filter(ReadingListFilter{MinRating: 4})))
	assert.Equal(t, []string{"a", "c"}, ids(lib.Filter(ReadingListFilter{MinRating: 3, Genre: "Fiction"})))
}

func TestPickRandom(t *testing.T) {
	lib := newLibrary(t, newStore(t), WithRand(rand.New(rand.NewPCG(1, 2))))

	_, ok := lib.PickRandom(false)
	assert.False(t, ok)

	_, _ = lib.Add(book("read"))
	_, _ = lib.Add(book("unread"))
	_ = lib.UpdateStatus("read", models.StatusFinished)

	for i := 0; i < 10; i++ {
		e, ok := lib.PickRandom(true)
		require.True(t, ok)
		assert.Equal(t, "unread", e.ID)
	}
	e, ok := lib.PickRandom(false)
	assert.True(t, ok)
	assert.Contains(t, []string{"read", "unread"}, e.ID)
}

func TestSnapshotIsACopy(t *testing.T) {
	lib := newLibrary(t, newStore(t))
	_, _ = lib.Add(book("a", "Fantasy"))
	_ = lib.Rate("a", 4)

	snap := lib.Snapshot()
	snap.Ratings["a"] = 1
	snap.ReadingList[0].Categories[0] = "Changed"

	r, _ := lib.Rating("a")
	assert.Equal(t, 4, r)
	assert.Equal(t, []string{"Fantasy"}, lib.ReadingList()[0].Categories)
}
