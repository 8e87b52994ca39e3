// file: cmd/catalog.go
// version: 1.0.0
// guid: 29cc2900-8198-468c-b5ec-5cfdf083eb60

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/recommend"
)

var errPremiumRequired = errors.New("purchase links are a premium feature: run `book-explorer premium upgrade`")

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the book catalog",
	Long: `Search the catalog with free text or a field-scoped query such as
subject:Fantasy or inauthor:"Ursula K. Le Guin".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		return withApp(func(app *App) error {
			books, err := app.Catalog.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printBooks(cmd, books)
		})
	},
}

var bookCmd = &cobra.Command{
	Use:   "book <id>",
	Short: "Show details for one book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			book, err := lookupBook(cmd, app, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), book)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", book.Title)
			fmt.Fprintf(w, "  Authors:      %s\n", strings.Join(book.Authors, ", "))
			if book.PublishedDate != "" {
				fmt.Fprintf(w, "  Published:    %s\n", book.PublishedDate)
			}
			fmt.Fprintf(w, "  Pages:        %d (%s, %s)\n", book.PageCount, models.Difficulty(book.PageCount), models.ReadingTime(book.PageCount))
			if len(book.Categories) > 0 {
				fmt.Fprintf(w, "  Categories:   %s\n", strings.Join(book.Categories, ", "))
			}
			if book.RatingsCount > 0 {
				fmt.Fprintf(w, "  Rating:       %.1f (%d ratings)\n", book.AverageRating, book.RatingsCount)
			}
			if book.ISBN != "" {
				fmt.Fprintf(w, "  ISBN:         %s\n", book.ISBN)
			}
			if cover := app.Library.Thumbnail(book); cover != "" {
				fmt.Fprintf(w, "  Cover:        %s\n", cover)
			}
			if entry, ok := app.Library.Entry(book.ID); ok {
				fmt.Fprintf(w, "  Your list:    %s\n", entry.ReadingStatus)
				if entry.PageCount > 0 && entry.CurrentPage > 0 {
					fmt.Fprintf(w, "  Progress:     page %d of %d (%.0f%%), %d days to finish\n",
						entry.CurrentPage, entry.PageCount, entry.ProgressPercent, entry.DaysToFinish())
				}
				if entry.Review != "" {
					fmt.Fprintf(w, "  Your review:  %s\n", entry.Review)
				}
			}
			if r, ok := app.Library.Rating(book.ID); ok {
				fmt.Fprintf(w, "  Your rating:  %d/5\n", r)
			}
			if book.Description != "" {
				fmt.Fprintf(w, "\n%s\n", book.Description)
			}
			return nil
		})
	},
}

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "List popular books",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		return withApp(func(app *App) error {
			books, err := app.Catalog.PopularBooks(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to load popular books: %w", err)
			}
			return printBooks(cmd, books)
		})
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "List trending books",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			books, err := app.Engine.RefreshTrending(cmd.Context())
			if err != nil && !errors.Is(err, recommend.ErrNoTrending) {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Trending books are unavailable right now.")
			}
			return printBooks(cmd, books)
		})
	},
}

var linksCmd = &cobra.Command{
	Use:   "links <id>",
	Short: "Show store and library links for a book (premium)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			if !app.Library.IsPremium() {
				return errPremiumRequired
			}
			book, err := lookupBook(cmd, app, args[0])
			if err != nil {
				return err
			}
			links := models.PurchaseLinks(book)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), links)
			}
			for _, l := range links {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", l.Store, l.URL)
			}
			return nil
		})
	},
}

// lookupBook prefers the reading-list copy of a book over a catalog fetch.
func lookupBook(cmd *cobra.Command, app *App, id string) (models.Book, error) {
	if entry, ok := app.Library.Entry(id); ok {
		return entry.Book, nil
	}
	book, err := app.Catalog.GetBook(cmd.Context(), id)
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to load book %s: %w", id, err)
	}
	return book, nil
}

func init() {
	searchCmd.Flags().Int("max", 20, "maximum number of results (up to 40)")
	popularCmd.Flags().Int("max", 20, "maximum number of results")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(popularCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(linksCmd)
}
