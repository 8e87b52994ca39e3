// file: internal/models/preferences.go
// version: 1.0.0
// guid: 4bf2e8cf-a7ab-4c65-a533-8854c2ed5cdd

package models

import (
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultReadingGoal = 12
	MaxHomeGenres      = 5
)

// GenreOptions is the fixed list of genres offered for preferences and
// genre exploration.
var GenreOptions = []string{
	"Fiction", "Non-fiction", "Mystery", "Romance", "Science Fiction",
	"Fantasy", "Biography", "History", "Self-help", "Business",
	"Psychology", "Philosophy", "Science", "Technology", "Health",
	"Cooking", "Travel", "Art", "Poetry", "Drama",
}

// MaxPreferenceGenres caps Preferences.Genres at the size of GenreOptions.
var MaxPreferenceGenres = len(GenreOptions)

// Preferences are the user's long-term reading preferences.
type Preferences struct {
	Genres        []string `json:"genres"`
	Authors       []string `json:"authors"`
	ReadingGoal   int      `json:"readingGoal"`
	FavoriteBooks []string `json:"favoriteBooks"`
}

// DefaultPreferences returns the first-run preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		Genres:        []string{},
		Authors:       []string{},
		ReadingGoal:   DefaultReadingGoal,
		FavoriteBooks: []string{},
	}
}

// PreferencesPatch is a shallow partial update; nil fields are left alone.
type PreferencesPatch struct {
	Genres        []string
	Authors       []string
	ReadingGoal   *int
	FavoriteBooks []string
}

// Identity is the signed-in session record.
type Identity struct {
	SessionID  string    `json:"sessionId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Picture    string    `json:"picture,omitempty"`
	SignedInAt time.Time `json:"signedInAt"`
}

var titleCaser = cases.Title(language.English)

// NormalizeGenre trims a genre label and maps it onto a GenreOptions entry
// when one matches case-insensitively; otherwise it title-cases the input.
func NormalizeGenre(genre string) string {
	g := strings.Join(strings.Fields(genre), " ")
	if g == "" {
		return ""
	}
	if opt, ok := MatchGenreOption(g); ok {
		return opt
	}
	return titleCaser.String(g)
}

// MatchGenreOption finds the GenreOptions entry equal to genre ignoring
// case, falling back to the closest fuzzy match ranked by edit distance.
func MatchGenreOption(genre string) (string, bool) {
	for _, opt := range GenreOptions {
		if strings.EqualFold(opt, genre) {
			return opt, true
		}
	}
	ranks := fuzzy.RankFindNormalizedFold(genre, GenreOptions)
	if len(ranks) == 0 {
		return "", false
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best.Target, true
}

// UniqueStrings drops empty and duplicate entries, keeping first occurrence
// order, and truncates to limit when limit > 0.
func UniqueStrings(in []string, limit int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
