// file: cmd/discover.go
// version: 1.0.0
// guid: b01db5dc-6b0c-45c2-a2f2-3c9d2b47e0b4

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdfalk/book-explorer/internal/config"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend books from your ratings, preferences and reading list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			res, err := app.Engine.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		})
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore [genre...]",
	Short: "Explore books by genre",
	Long: fmt.Sprintf(`Explore books from up to %d genres. Passing genres replaces the current
selection, which is also used for the home feed. Without arguments the
stored selection is used.`, models.MaxHomeGenres),
	RunE: func(cmd *cobra.Command, args []string) error {
		clearSelection, _ := cmd.Flags().GetBool("clear")
		list, _ := cmd.Flags().GetBool("genres")

		if list {
			for _, g := range models.GenreOptions {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		}

		run := func(app *App) error {
			if clearSelection {
				if err := app.Explorer.Clear(); err != nil {
					return err
				}
			} else if len(args) > 0 {
				genres := normalizeGenres(splitList(strings.Join(args, ",")))
				if err := app.Explorer.SetSelection(genres); err != nil {
					return err
				}
			}

			selection := app.Explorer.Selection()
			if len(selection) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No genres selected.")
				return nil
			}
			if !jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "Exploring: %s\n", strings.Join(selection, ", "))
			}
			res, err := app.Explorer.Results(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to explore genres: %w", err)
			}
			return printBooks(cmd, res.Books)
		}

		if clearSelection || len(args) > 0 {
			return withSignedInApp(run)
		}
		return withApp(run)
	},
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show the home feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			books, err := app.Home.Books(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load home feed: %w", err)
			}
			if !jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), app.Home.Title())
			}
			return printBooks(cmd, books)
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration next to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.SaveConfigToFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func printResult(cmd *cobra.Command, res recommend.Result) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}
	note := ""
	if res.Fallback {
		note = " (fallback)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Strategy: %s%s\n", res.Strategy, note)
	return printBooks(cmd, res.Books)
}

// isSuperseded reports whether err only means a newer run replaced this one.
func isSuperseded(err error) bool {
	return errors.Is(err, recommend.ErrSuperseded)
}

func init() {
	exploreCmd.Flags().Bool("clear", false, "clear the genre selection")
	exploreCmd.Flags().Bool("genres", false, "list the known genres")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(configCmd)
}
