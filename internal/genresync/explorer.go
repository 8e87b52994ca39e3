// file: internal/genresync/explorer.go
// version: 1.0.0
// guid: a6fbf616-4843-417e-907c-b03f34de44db

// Package genresync keeps the genre-explore selection and the home page
// genre filter in step.
package genresync

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jdfalk/book-explorer/internal/logging"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/recommend"
)

// MaxSelection is the most genres that can be selected at once.
const MaxSelection = models.MaxHomeGenres

// ErrSelectionFull is returned when adding a genre to a full selection.
var ErrSelectionFull = errors.New("genre selection is limited to 5 genres")

// HomeGenreReader reads the stored home genre selection.
type HomeGenreReader interface {
	HomeGenres() []string
}

// HomeGenreStore reads and replaces the stored home genre selection.
type HomeGenreStore interface {
	HomeGenreReader
	SetHomeGenres(genres []string) error
}

// ExploreRunner computes books for a genre selection.
type ExploreRunner interface {
	Explore(ctx context.Context, genres []string) (recommend.Result, error)
}

// Explorer owns the genre-explore selection. Every change is written through
// to the home genre selection; an empty selection clears it.
type Explorer struct {
	mu        sync.Mutex
	store     HomeGenreStore
	runner    ExploreRunner
	selection []string
	logger    zerolog.Logger
}

// NewExplorer seeds the selection from the stored home genres so that the
// filter survives leaving and returning to the explore view. runner may be
// nil when results are not needed.
func NewExplorer(store HomeGenreStore, runner ExploreRunner) *Explorer {
	seed := models.UniqueStrings(store.HomeGenres(), MaxSelection)
	return &Explorer{
		store:     store,
		runner:    runner,
		selection: seed,
		logger:    logging.Component("genresync"),
	}
}

// Selection returns a copy of the current selection in selection order.
func (x *Explorer) Selection() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.selection)
}

// Selected reports whether genre is in the selection.
func (x *Explorer) Selected(genre string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Contains(x.selection, strings.TrimSpace(genre))
}

// Toggle removes genre if selected and appends it otherwise.
func (x *Explorer) Toggle(genre string) ([]string, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return x.Selection(), nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	next := slices.Clone(x.selection)
	if i := slices.Index(next, genre); i >= 0 {
		next = slices.Delete(next, i, i+1)
	} else {
		if len(next) >= MaxSelection {
			return slices.Clone(x.selection), ErrSelectionFull
		}
		next = append(next, genre)
	}
	return slices.Clone(next), x.apply(next)
}

// SetSelection replaces the whole selection.
func (x *Explorer) SetSelection(genres []string) error {
	next := models.UniqueStrings(genres, 0)
	if len(next) > MaxSelection {
		return ErrSelectionFull
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.apply(next)
}

// Clear empties the selection and the home genre filter.
func (x *Explorer) Clear() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.apply(nil)
}

// apply must be called with mu held.
func (x *Explorer) apply(next []string) error {
	x.selection = next
	if err := x.store.SetHomeGenres(next); err != nil {
		x.logger.Warn().Err(err).Strs("genres", next).Msg("failed to store home genres")
		return err
	}
	x.logger.Debug().Strs("genres", next).Msg("home genres updated")
	return nil
}

// Results runs genre-explore for the current selection. An empty selection
// yields an empty result.
func (x *Explorer) Results(ctx context.Context) (recommend.Result, error) {
	if x.runner == nil {
		return recommend.Result{Strategy: recommend.StrategyGenreExplore, Books: []models.Book{}}, nil
	}
	return x.runner.Explore(ctx, x.Selection())
}
