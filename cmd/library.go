// file: cmd/library.go
// version: 1.0.0
// guid: 7f31b4e6-e408-4667-a6ba-e257198370ca

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdfalk/book-explorer/internal/library"
	"github.com/jdfalk/book-explorer/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show your reading list",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFlag, _ := cmd.Flags().GetString("status")
		genre, _ := cmd.Flags().GetString("genre")
		minRating, _ := cmd.Flags().GetInt("min-rating")

		var status models.ReadingStatus
		if statusFlag != "" {
			s, err := models.ParseReadingStatus(statusFlag)
			if err != nil {
				return err
			}
			status = s
		}
		return withApp(func(app *App) error {
			entries := app.Library.Filter(library.ReadingListFilter{Status: status, Genre: genre, MinRating: minRating})
			return printEntries(cmd, app.Library, entries)
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a catalog book to your reading list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			if app.Library.Contains(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already in your reading list\n", args[0])
				return nil
			}
			book, err := app.Catalog.GetBook(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load book %s: %w", args[0], err)
			}
			if _, err := app.Library.Add(book); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q to your reading list\n", book.Title)
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a book from your reading list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			removed, err := app.Library.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not in your reading list\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id> <want-to-read|currently-reading|finished>",
	Short: "Change the reading status of a book",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := models.ParseReadingStatus(args[1])
		if err != nil {
			return err
		}
		return withSignedInApp(func(app *App) error {
			if !app.Library.Contains(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not in your reading list\n", args[0])
				return nil
			}
			if err := app.Library.UpdateStatus(args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], status)
			return nil
		})
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <id>",
	Short: "Record reading progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var update models.ProgressUpdate
		if cmd.Flags().Changed("page") {
			page, _ := cmd.Flags().GetInt("page")
			update.Page = &page
		}
		if cmd.Flags().Changed("percent") {
			pct, _ := cmd.Flags().GetFloat64("percent")
			update.Percent = &pct
		}
		if cmd.Flags().Changed("daily-goal") {
			goal, _ := cmd.Flags().GetInt("daily-goal")
			update.DailyGoal = &goal
		}
		if update.Page == nil && update.Percent == nil && update.DailyGoal == nil {
			return fmt.Errorf("one of --page, --percent or --daily-goal is required")
		}

		return withSignedInApp(func(app *App) error {
			entry, err := app.Library.UpdateProgress(args[0], update)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%.0f%%), about %d days to finish\n",
				entry.CurrentPage, entry.PageCount, entry.ProgressPercent, entry.DaysToFinish())
			return nil
		})
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <id> <text>",
	Short: "Write a review for a book in your reading list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			if err := app.Library.SetReview(args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved review for %s\n", args[0])
			return nil
		})
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate <id> <1-5>",
	Short: "Rate a book",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return library.ErrInvalidRating
		}
		return withSignedInApp(func(app *App) error {
			if err := app.Library.Rate(args[0], rating); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rated %s %d/5\n", args[0], rating)
			return nil
		})
	},
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or update reading preferences",
	Long: `Show reading preferences, or update them with --genres, --authors and
--goal. Genres and authors are comma separated and replace the stored list;
genre names are matched against the known genre list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch models.PreferencesPatch
		changed := false
		if cmd.Flags().Changed("genres") {
			genres, _ := cmd.Flags().GetString("genres")
			patch.Genres = normalizeGenres(splitList(genres))
			changed = true
		}
		if cmd.Flags().Changed("authors") {
			authors, _ := cmd.Flags().GetString("authors")
			patch.Authors = splitList(authors)
			changed = true
		}
		if cmd.Flags().Changed("goal") {
			goal, _ := cmd.Flags().GetInt("goal")
			patch.ReadingGoal = &goal
			changed = true
		}

		show := func(p models.Preferences) error {
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), p)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Genres:       %s\n", joinOrNone(p.Genres))
			fmt.Fprintf(w, "Authors:      %s\n", joinOrNone(p.Authors))
			fmt.Fprintf(w, "Reading goal: %d books this year\n", p.ReadingGoal)
			return nil
		}

		if !changed {
			return withApp(func(app *App) error { return show(app.Library.Preferences()) })
		}
		return withSignedInApp(func(app *App) error {
			prefs, err := app.Library.UpdatePreferences(patch)
			if err != nil {
				return err
			}
			return show(prefs)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reading statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			s := app.Library.DetailedStats()
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), s)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Books:             %d\n", s.TotalBooks)
			fmt.Fprintf(w, "Finished:          %d\n", s.FinishedBooks)
			fmt.Fprintf(w, "Currently reading: %d\n", s.CurrentlyReading)
			fmt.Fprintf(w, "Rated:             %d (average %.1f)\n", s.TotalRated, s.AverageRating)
			fmt.Fprintf(w, "Total pages:       %d (%s)\n", s.TotalPages, s.EstimatedReadingTime)
			fmt.Fprintf(w, "Favorite genre:    %s\n", s.FavoriteGenre)
			fmt.Fprintf(w, "Reading goal:      %d of %d (%.0f%%)\n", s.FinishedBooks, s.ReadingGoal, s.GoalProgressPercent)
			return nil
		})
	},
}

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a random book from your reading list",
	RunE: func(cmd *cobra.Command, args []string) error {
		unread, _ := cmd.Flags().GetBool("unread")
		return withApp(func(app *App) error {
			entry, ok := app.Library.PickRandom(unread)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to pick from.")
				return nil
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "How about %q by %s? [%s]\n", entry.Title, strings.Join(entry.Authors, ", "), entry.ID)
			return nil
		})
	},
}

var premiumCmd = &cobra.Command{
	Use:   "premium",
	Short: "Manage the premium flag",
}

var premiumUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Turn premium features on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			if err := app.Library.Upgrade(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Premium enabled")
			return nil
		})
	},
}

var premiumDowngradeCmd = &cobra.Command{
	Use:   "downgrade",
	Short: "Turn premium features off",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			if err := app.Library.Downgrade(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Premium disabled")
			return nil
		})
	},
}

var premiumStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether premium is enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			state := "disabled"
			if app.Library.IsPremium() {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Premium %s\n", state)
			return nil
		})
	},
}

var coverCmd = &cobra.Command{
	Use:   "cover",
	Short: "Manage custom book covers",
}

var coverSetCmd = &cobra.Command{
	Use:   "set <id> <url-or-data-uri>",
	Short: "Use a custom cover image for a book",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			if err := app.Library.SetCustomCover(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Custom cover set for %s\n", args[0])
			return nil
		})
	},
}

var coverRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Go back to the catalog cover",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			if err := app.Library.RemoveCustomCover(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Custom cover removed for %s\n", args[0])
			return nil
		})
	},
}

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Start a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		return withApp(func(app *App) error {
			id, err := app.Library.SignIn(name, email)
			if err != nil {
				return err
			}
			who := id.Name
			if who == "" {
				who = id.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (session %s)\n", who, id.SessionID)
			return nil
		})
	},
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "End the session and clear all stored data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSignedInApp(func(app *App) error {
			if err := app.Library.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out; all local data cleared")
			return nil
		})
	},
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "(none)"
	}
	return strings.Join(s, ", ")
}

func init() {
	listCmd.Flags().String("status", "", "only show books with this status")
	listCmd.Flags().String("genre", "", "only show books in a matching category")
	listCmd.Flags().Int("min-rating", 0, "only show books you rated at least this high")

	progressCmd.Flags().Int("page", 0, "current page")
	progressCmd.Flags().Float64("percent", 0, "percent complete (0-100)")
	progressCmd.Flags().Int("daily-goal", 0, "pages per day")

	prefsCmd.Flags().String("genres", "", "comma separated favorite genres")
	prefsCmd.Flags().String("authors", "", "comma separated favorite authors")
	prefsCmd.Flags().Int("goal", 0, "books to read this year")

	pickCmd.Flags().Bool("unread", false, "only pick books you have not finished")

	signinCmd.Flags().String("name", "", "display name")
	signinCmd.Flags().String("email", "", "email address")

	premiumCmd.AddCommand(premiumUpgradeCmd)
	premiumCmd.AddCommand(premiumDowngradeCmd)
	premiumCmd.AddCommand(premiumStatusCmd)

	coverCmd.AddCommand(coverSetCmd)
	coverCmd.AddCommand(coverRemoveCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(premiumCmd)
	rootCmd.AddCommand(coverCmd)
	rootCmd.AddCommand(signinCmd)
	rootCmd.AddCommand(signoutCmd)
}
