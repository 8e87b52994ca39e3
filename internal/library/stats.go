// file: internal/library/stats.go
// version: 1.0.0
// guid: 51187732-a098-4fd0-aff7-fd9286083f2d

package library

import (
	"math/rand/v2"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jdfalk/book-explorer/internal/models"
)

const noFavoriteGenre = "None yet"

// Stats computes the reading-list summary from current state.
func (l *Library) Stats() models.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats()
}

func (l *Library) stats() models.Stats {
	s := models.Stats{
		TotalBooks: len(l.readingList),
		TotalRated: len(l.ratings),
	}
	for _, e := range l.readingList {
		switch e.ReadingStatus {
		case models.StatusFinished:
			s.FinishedBooks++
		case models.StatusCurrentlyReading:
			s.CurrentlyReading++
		}
	}
	if len(l.ratings) > 0 {
		sum := 0
		for _, r := range l.ratings {
			sum += r
		}
		s.AverageRating = float64(sum) / float64(len(l.ratings))
	}
	return s
}

// DetailedStats extends Stats with page totals, favorite genre and progress
// towards the yearly reading goal.
func (l *Library) DetailedStats() models.DetailedStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	d := models.DetailedStats{
		Stats:         l.stats(),
		FavoriteGenre: noFavoriteGenre,
		ReadingGoal:   l.prefs.ReadingGoal,
	}

	counts := map[string]int{}
	var order []string
	for _, e := range l.readingList {
		if e.PageCount > 0 {
			d.TotalPages += e.PageCount
		}
		for _, c := range e.Categories {
			if counts[c] == 0 {
				order = append(order, c)
			}
			counts[c]++
		}
	}
	best := 0
	for _, c := range order {
		if counts[c] > best {
			best = counts[c]
			d.FavoriteGenre = c
		}
	}
	d.EstimatedReadingTime = models.ReadingTime(d.TotalPages)
	if d.ReadingGoal > 0 {
		d.GoalProgressPercent = min(100, float64(d.FinishedBooks)/float64(d.ReadingGoal)*100)
	}
	return d
}

// ReadingListFilter narrows the reading list. Zero fields match everything.
type ReadingListFilter struct {
	Status models.ReadingStatus
	// Genre is matched case-insensitively as a fuzzy substring of any
	// category.
	Genre string
	// MinRating keeps entries the user rated at least this high.
	MinRating int
}

// Filter returns the entries matching f in reading-list order.
func (l *Library) Filter(f ReadingListFilter) []models.ReadingListEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	genre := strings.TrimSpace(f.Genre)
	var out []models.ReadingListEntry
	for _, e := range l.readingList {
		if f.Status != "" && e.ReadingStatus != f.Status {
			continue
		}
		if genre != "" && !matchesGenre(genre, e.Categories) {
			continue
		}
		if f.MinRating > 0 && l.ratings[e.ID] < f.MinRating {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out
}

func matchesGenre(genre string, categories []string) bool {
	for _, c := range categories {
		if fuzzy.MatchNormalizedFold(genre, c) {
			return true
		}
	}
	return false
}

// PickRandom chooses a random entry; with unreadOnly it only considers
// entries that are not finished.
func (l *Library) PickRandom(unreadOnly bool) (models.ReadingListEntry, bool) {
	// Write lock: the injected *rand.Rand is not safe for concurrent use.
	l.mu.Lock()
	defer l.mu.Unlock()

	var pool []int
	for i, e := range l.readingList {
		if unreadOnly && e.ReadingStatus == models.StatusFinished {
			continue
		}
		pool = append(pool, i)
	}
	if len(pool) == 0 {
		return models.ReadingListEntry{}, false
	}
	var n int
	if l.rng != nil {
		n = l.rng.IntN(len(pool))
	} else {
		n = rand.IntN(len(pool))
	}
	return cloneEntry(l.readingList[pool[n]]), true
}
