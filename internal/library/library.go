// file: internal/library/library.go
// version: 1.0.0
// guid: ae3fc77b-083a-49d6-8d00-d449c1aa4c6a

// Package library owns the user's persisted state: reading list, ratings,
// preferences, premium flag, home genre selection, custom covers and the
// signed-in identity. Every structure lives under its own storage key, is
// loaded independently at startup, and is rewritten after each mutation.
package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jdfalk/book-explorer/internal/database"
	"github.com/jdfalk/book-explorer/internal/logging"
	"github.com/jdfalk/book-explorer/internal/metrics"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/realtime"
)

// Storage keys, one per structure.
const (
	KeyReadingList = "reading-list"
	KeyRatings     = "ratings"
	KeyPreferences = "preferences"
	KeyPremium     = "premium-flag"
	KeyHomeGenres  = "home-genre-selection"
	KeyCovers      = "custom-covers"
	KeyIdentity    = "user-identity"
)

var (
	ErrMissingBookID      = errors.New("book id is required")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidStatus      = errors.New("invalid reading status")
	ErrInvalidReadingGoal = errors.New("reading goal must be positive")
	ErrNotInReadingList   = errors.New("book is not in the reading list")
	ErrTooManyGenres      = fmt.Errorf("home genre selection is limited to %d genres", models.MaxHomeGenres)
	ErrMissingIdentity    = errors.New("sign-in requires a name or email")
)

// StorageParseError describes a persisted structure that could not be
// decoded. It is logged at load time and the structure falls back to its
// default value.
type StorageParseError struct {
	Key string
	Err error
}

func (e *StorageParseError) Error() string {
	return fmt.Sprintf("stored %s is malformed: %v", e.Key, e.Err)
}

func (e *StorageParseError) Unwrap() error { return e.Err }

// Library is the persistent state store. It is safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	store  database.Store
	hub    *realtime.EventHub
	now    func() time.Time
	rng    *rand.Rand
	logger zerolog.Logger

	readingList []models.ReadingListEntry
	ratings     map[string]int
	prefs       models.Preferences
	premium     bool
	homeGenres  []string
	covers      map[string]string
	identity    *models.Identity

	// loadErrors records structures that fell back to defaults on Open.
	loadErrors []error
}

// Option configures a Library.
type Option func(*Library)

// WithEventHub publishes a state-change event after every mutation.
func WithEventHub(hub *realtime.EventHub) Option {
	return func(l *Library) { l.hub = hub }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithRand sets the random source used by PickRandom.
func WithRand(r *rand.Rand) Option {
	return func(l *Library) { l.rng = r }
}

// Open loads every structure from store. A missing or malformed structure
// falls back to its default without affecting the others, so Open never
// fails.
func Open(store database.Store, opts ...Option) *Library {
	l := &Library{
		store:  store,
		now:    time.Now,
		logger: logging.Component("library"),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.mu.Lock()
	l.loadAll()
	l.mu.Unlock()
	metrics.SetReadingListBooks(len(l.readingList))
	return l
}

// LoadErrors returns the parse failures absorbed while opening.
func (l *Library) LoadErrors() []error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]error(nil), l.loadErrors...)
}

func (l *Library) resetDefaults() {
	l.readingList = []models.ReadingListEntry{}
	l.ratings = map[string]int{}
	l.prefs = models.DefaultPreferences()
	l.premium = false
	l.homeGenres = []string{}
	l.covers = map[string]string{}
	l.identity = nil
}

func (l *Library) loadAll() {
	l.resetDefaults()
	l.loadErrors = nil

	var list []models.ReadingListEntry
	if l.load(KeyReadingList, &list) {
		l.readingList = sanitizeReadingList(list)
	}

	var ratings map[string]int
	if l.load(KeyRatings, &ratings) {
		for id, r := range ratings {
			if id != "" && r >= 1 && r <= 5 {
				l.ratings[id] = r
			}
		}
	}

	var prefs models.Preferences
	if l.load(KeyPreferences, &prefs) {
		l.prefs = sanitizePreferences(prefs)
	}

	var premium bool
	if l.load(KeyPremium, &premium) {
		l.premium = premium
	}

	var genres []string
	if l.load(KeyHomeGenres, &genres) {
		l.homeGenres = models.UniqueStrings(genres, models.MaxHomeGenres)
	}

	var covers map[string]string
	if l.load(KeyCovers, &covers) {
		for id, data := range covers {
			if id != "" && data != "" {
				l.covers[id] = data
			}
		}
	}

	var identity models.Identity
	if l.load(KeyIdentity, &identity) && identity.SessionID != "" {
		l.identity = &identity
	}
}

// load decodes key into dst and reports whether dst holds a usable value.
func (l *Library) load(key string, dst any) bool {
	raw, err := l.store.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return false
	}
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		perr := &StorageParseError{Key: key, Err: err}
		l.loadErrors = append(l.loadErrors, perr)
		metrics.IncStoreLoadFailure(key)
		l.logger.Warn().Err(err).Str("key", key).Msg("stored state unreadable, using default")
		return false
	}
	return true
}

// persist writes value under key. The in-memory state has already changed;
// a write failure is logged and returned.
func (l *Library) persist(key string, value any) error {
	raw, err := json.Marshal(value)
	if err == nil {
		err = l.store.Set(key, raw)
	}
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("failed to persist state")
		return fmt.Errorf("persist %s: %w", key, err)
	}
	metrics.IncStoreMutation(key)
	return nil
}

func (l *Library) publish(t realtime.EventType, key string, data map[string]any) {
	l.hub.Publish(t, key, data)
}

func sanitizeReadingList(in []models.ReadingListEntry) []models.ReadingListEntry {
	out := make([]models.ReadingListEntry, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		if e.ID == "" || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		if !e.ReadingStatus.Valid() {
			e.ReadingStatus = models.StatusWantToRead
		}
		if e.Authors == nil {
			e.Authors = []string{models.UnknownAuthor}
		}
		if e.Categories == nil {
			e.Categories = []string{}
		}
		out = append(out, e)
	}
	return out
}

func sanitizePreferences(p models.Preferences) models.Preferences {
	out := models.DefaultPreferences()
	out.Genres = models.UniqueStrings(p.Genres, models.MaxPreferenceGenres)
	out.Authors = models.UniqueStrings(p.Authors, 0)
	out.FavoriteBooks = models.UniqueStrings(p.FavoriteBooks, 0)
	if p.ReadingGoal > 0 {
		out.ReadingGoal = p.ReadingGoal
	}
	return out
}
