// file: internal/library/state.go
// version: 1.0.0
// guid: 173109f3-ed07-4b6c-8a88-cbfed6b5461a

package library

import (
	"maps"
	"slices"
	"strings"

	ulid "github.com/oklog/ulid/v2"

	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/realtime"
)

// Rate records rating for id, replacing any earlier rating. The book does not
// have to be in the reading list.
func (l *Library) Rate(id string, rating int) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingBookID
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	l.mu.Lock()
	l.ratings[id] = rating
	err := l.persist(KeyRatings, l.ratings)
	l.mu.Unlock()

	l.publish(realtime.EventRatingsChanged, KeyRatings, map[string]any{"id": id, "rating": rating})
	return err
}

// Rating returns the user's rating for id.
func (l *Library) Rating(id string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.ratings[id]
	return r, ok
}

// Ratings returns a copy of every rating.
func (l *Library) Ratings() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.ratings)
}

// Preferences returns a copy of the current preferences.
func (l *Library) Preferences() models.Preferences {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return clonePreferences(l.prefs)
}

// UpdatePreferences shallow-merges patch into the preferences. Genres and
// authors are deduplicated; genres are capped at MaxPreferenceGenres.
func (l *Library) UpdatePreferences(patch models.PreferencesPatch) (models.Preferences, error) {
	if patch.ReadingGoal != nil && *patch.ReadingGoal <= 0 {
		return l.Preferences(), ErrInvalidReadingGoal
	}

	l.mu.Lock()
	next := clonePreferences(l.prefs)
	if patch.Genres != nil {
		next.Genres = models.UniqueStrings(patch.Genres, models.MaxPreferenceGenres)
	}
	if patch.Authors != nil {
		next.Authors = models.UniqueStrings(patch.Authors, 0)
	}
	if patch.ReadingGoal != nil {
		next.ReadingGoal = *patch.ReadingGoal
	}
	if patch.FavoriteBooks != nil {
		next.FavoriteBooks = models.UniqueStrings(patch.FavoriteBooks, 0)
	}
	genresChanged := !slices.Equal(next.Genres, l.prefs.Genres)
	authorsChanged := !slices.Equal(next.Authors, l.prefs.Authors)
	l.prefs = next
	err := l.persist(KeyPreferences, l.prefs)
	out := clonePreferences(l.prefs)
	l.mu.Unlock()

	if genresChanged {
		l.publish(realtime.EventGenresChanged, KeyPreferences, map[string]any{"genres": out.Genres})
	}
	if authorsChanged {
		l.publish(realtime.EventAuthorsChanged, KeyPreferences, map[string]any{"authors": out.Authors})
	}
	if !genresChanged && !authorsChanged {
		l.publish(realtime.EventPreferencesChanged, KeyPreferences, nil)
	}
	return out, err
}

// Upgrade turns the premium flag on. There is no payment step.
func (l *Library) Upgrade() error { return l.setPremium(true) }

// Downgrade turns the premium flag off.
func (l *Library) Downgrade() error { return l.setPremium(false) }

func (l *Library) setPremium(on bool) error {
	l.mu.Lock()
	l.premium = on
	err := l.persist(KeyPremium, on)
	l.mu.Unlock()

	l.publish(realtime.EventPremiumChanged, KeyPremium, map[string]any{"premium": on})
	return err
}

// IsPremium reports the premium flag.
func (l *Library) IsPremium() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.premium
}

// SetHomeGenres replaces the home genre selection. An empty list clears it.
func (l *Library) SetHomeGenres(genres []string) error {
	next := models.UniqueStrings(genres, 0)
	if len(next) > models.MaxHomeGenres {
		return ErrTooManyGenres
	}

	l.mu.Lock()
	l.homeGenres = next
	err := l.persist(KeyHomeGenres, l.homeGenres)
	l.mu.Unlock()

	l.publish(realtime.EventHomeGenresChanged, KeyHomeGenres, map[string]any{"genres": slices.Clone(next)})
	return err
}

// HomeGenres returns a copy of the home genre selection.
func (l *Library) HomeGenres() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.homeGenres)
}

// SetCustomCover stores user-supplied image data (a URL or data URI) for id.
func (l *Library) SetCustomCover(id, data string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingBookID
	}
	l.mu.Lock()
	l.covers[id] = data
	err := l.persist(KeyCovers, l.covers)
	l.mu.Unlock()

	l.publish(realtime.EventCoversChanged, KeyCovers, map[string]any{"id": id})
	return err
}

// RemoveCustomCover drops the custom cover for id, if any.
func (l *Library) RemoveCustomCover(id string) error {
	l.mu.Lock()
	if _, ok := l.covers[id]; !ok {
		l.mu.Unlock()
		return nil
	}
	delete(l.covers, id)
	err := l.persist(KeyCovers, l.covers)
	l.mu.Unlock()

	l.publish(realtime.EventCoversChanged, KeyCovers, map[string]any{"id": id})
	return err
}

// HasCustomCover reports whether id has a user-supplied cover.
func (l *Library) HasCustomCover(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.covers[id]
	return ok
}

// Thumbnail resolves the image for book: custom cover, then the catalog
// thumbnail, then "".
func (l *Library) Thumbnail(book models.Book) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if data, ok := l.covers[book.ID]; ok {
		return data
	}
	return book.Thumbnail
}

// SignIn records a new session for the named user.
func (l *Library) SignIn(name, email string) (models.Identity, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" && email == "" {
		return models.Identity{}, ErrMissingIdentity
	}

	l.mu.Lock()
	now := l.now()
	id := models.Identity{
		SessionID:  ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Name:       name,
		Email:      email,
		SignedInAt: now,
	}
	l.identity = &id
	err := l.persist(KeyIdentity, id)
	l.mu.Unlock()

	l.publish(realtime.EventIdentityChanged, KeyIdentity, map[string]any{"name": name})
	return id, err
}

// Identity returns the signed-in identity.
func (l *Library) Identity() (models.Identity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.identity == nil {
		return models.Identity{}, false
	}
	return *l.identity, true
}

// IsAuthenticated reports whether a session exists.
func (l *Library) IsAuthenticated() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.identity != nil
}

// SignOut clears every storage key, not just the identity, and resets all
// structures to their defaults.
func (l *Library) SignOut() error {
	l.mu.Lock()
	err := l.store.Clear()
	l.resetDefaults()
	l.mu.Unlock()

	if err != nil {
		l.logger.Error().Err(err).Msg("failed to clear stored state")
	}
	l.publish(realtime.EventSignedOut, "", nil)
	return err
}

// Snapshot is a consistent copy of the state the recommendation engine reads.
type Snapshot struct {
	ReadingList []models.ReadingListEntry
	Ratings     map[string]int
	Preferences models.Preferences
	HomeGenres  []string
}

// Snapshot copies the current state under a single lock.
func (l *Library) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		ReadingList: cloneList(l.readingList),
		Ratings:     maps.Clone(l.ratings),
		Preferences: clonePreferences(l.prefs),
		HomeGenres:  slices.Clone(l.homeGenres),
	}
}

func clonePreferences(p models.Preferences) models.Preferences {
	p.Genres = slices.Clone(p.Genres)
	p.Authors = slices.Clone(p.Authors)
	p.FavoriteBooks = slices.Clone(p.FavoriteBooks)
	return p
}
