// file: cmd/app.go
// version: 1.0.0
// guid: d5f1b1ca-a0f9-4b88-b665-660265663559

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jdfalk/book-explorer/internal/catalog"
	"github.com/jdfalk/book-explorer/internal/config"
	"github.com/jdfalk/book-explorer/internal/database"
	"github.com/jdfalk/book-explorer/internal/genresync"
	"github.com/jdfalk/book-explorer/internal/library"
	"github.com/jdfalk/book-explorer/internal/logging"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/realtime"
	"github.com/jdfalk/book-explorer/internal/recommend"
)

var errNotSignedIn = errors.New("not signed in: run `book-explorer signin --name <name>` first")

// App wires the core components for one command invocation (or for the
// lifetime of a shell session).
type App struct {
	Store    database.Store
	Hub      *realtime.EventHub
	Library  *library.Library
	Catalog  *catalog.Client
	Engine   *recommend.Engine
	Explorer *genresync.Explorer
	Home     *genresync.HomeFeed
}

// activeApp is set while the shell runs so that its commands share one store.
var activeApp *App

// NewApp opens the configured store and builds the components around it.
func NewApp(cfg config.Config) (*App, error) {
	store, err := database.Open(cfg.DatabaseType, cfg.DatabasePath, cfg.EnableSQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	hub := realtime.NewEventHub()
	lib := library.Open(store, library.WithEventHub(hub))
	for _, err := range lib.LoadErrors() {
		logging.Warn().Err(err).Msg("stored state could not be read and was reset to defaults")
	}

	client := catalog.NewClient(catalog.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		APIKey:            cfg.Catalog.APIKey,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		CacheTTL:          cfg.Catalog.CacheTTL,
		BreakerFailures:   cfg.Catalog.BreakerFailures,
		BreakerTimeout:    cfg.Catalog.BreakerTimeout,
	})
	engine := recommend.New(client, lib)

	return &App{
		Store:    store,
		Hub:      hub,
		Library:  lib,
		Catalog:  client,
		Engine:   engine,
		Explorer: genresync.NewExplorer(lib, engine),
		Home:     genresync.NewHomeFeed(client, lib, nil),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// withApp runs fn against the shell's app when one is active, otherwise
// against a freshly opened app that is closed afterwards.
func withApp(fn func(app *App) error) error {
	if activeApp != nil {
		return fn(activeApp)
	}
	app, err := NewApp(config.AppConfig)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// withSignedInApp is withApp for commands that change user state.
func withSignedInApp(fn func(app *App) error) error {
	return withApp(func(app *App) error {
		if !app.Library.IsAuthenticated() {
			return errNotSignedIn
		}
		return fn(app)
	})
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printBooks(cmd *cobra.Command, books []models.Book) error {
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, books)
	}
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return nil
	}
	for i, b := range books {
		fmt.Fprintf(w, "%2d. %s by %s [%s]\n", i+1, b.Title, strings.Join(b.Authors, ", "), b.ID)
		if b.RecommendationReason != "" {
			fmt.Fprintf(w, "    %s\n", b.RecommendationReason)
		}
	}
	return nil
}

func printEntries(cmd *cobra.Command, lib *library.Library, entries []models.ReadingListEntry) error {
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "Your reading list is empty.")
		return nil
	}
	for _, e := range entries {
		rating := "-"
		if r, ok := lib.Rating(e.ID); ok {
			rating = fmt.Sprintf("%d/5", r)
		}
		fmt.Fprintf(w, "%-18s %-17s %-5s %s by %s\n", e.ID, e.ReadingStatus, rating, e.Title, strings.Join(e.Authors, ", "))
	}
	return nil
}

// splitList splits a comma separated flag value.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return models.UniqueStrings(strings.Split(s, ","), 0)
}

func normalizeGenres(in []string) []string {
	out := make([]string, 0, len(in))
	for _, g := range in {
		if n := models.NormalizeGenre(g); n != "" {
			out = append(out, n)
		}
	}
	return models.UniqueStrings(out, 0)
}
