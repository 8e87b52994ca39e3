// file: cmd/diagnostics.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/spf13/cobra"

	"github.com/jdfalk/book-explorer/internal/config"
	"github.com/jdfalk/book-explorer/internal/database"
	"github.com/jdfalk/book-explorer/internal/library"
	"github.com/jdfalk/book-explorer/internal/metrics"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting and repairing the stored state.",
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup-invalid",
		Short: "Delete stored structures that can no longer be read",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runCleanupInvalid(cmd, force, dryRun)
		},
	}

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Check that every stored structure can be read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDiagnosticsStore(func(store database.Store) error {
				problems := invalidKeys(store)
				w := cmd.OutOrStdout()
				if len(problems) == 0 {
					fmt.Fprintln(w, "All stored state is readable.")
					return nil
				}
				for _, p := range problems {
					fmt.Fprintf(w, "%s: %v\n", p.Key, p.Err)
				}
				return fmt.Errorf("%d stored structures are unreadable", len(problems))
			})
		},
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Inspect stored state records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			raw, _ := cmd.Flags().GetBool("raw")
			return runDiagnosticsQuery(cmd.OutOrStdout(), limit, prefix, raw)
		},
	}

	metricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "Print this process's metrics in Prometheus text format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return metrics.WriteText(cmd.OutOrStdout())
		},
	}
)

func init() {
	cleanupCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	cleanupCmd.Flags().Bool("dry-run", false, "List unreadable records without deleting")

	queryCmd.Flags().Int("limit", 10, "Number of records to display")
	queryCmd.Flags().String("prefix", "", "Only show keys starting with this prefix")
	queryCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data (Pebble only)")

	diagnosticsCmd.AddCommand(cleanupCmd)
	diagnosticsCmd.AddCommand(verifyCmd)
	diagnosticsCmd.AddCommand(queryCmd)
	diagnosticsCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

// withDiagnosticsStore reuses the shell's store or opens the configured one.
func withDiagnosticsStore(fn func(store database.Store) error) error {
	if activeApp != nil {
		return fn(activeApp.Store)
	}
	store, err := database.Open(
		config.AppConfig.DatabaseType,
		config.AppConfig.DatabasePath,
		config.AppConfig.EnableSQLite,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// invalidKeys loads the state the way the application does and reports the
// structures that fell back to defaults.
func invalidKeys(store database.Store) []*library.StorageParseError {
	var out []*library.StorageParseError
	for _, err := range library.Open(store).LoadErrors() {
		var perr *library.StorageParseError
		if errors.As(err, &perr) {
			out = append(out, perr)
		}
	}
	return out
}

func runCleanupInvalid(cmd *cobra.Command, force, dryRun bool) error {
	w := cmd.OutOrStdout()
	return withDiagnosticsStore(func(store database.Store) error {
		fmt.Fprintf(w, "Inspecting %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)

		invalid := invalidKeys(store)
		if len(invalid) == 0 {
			fmt.Fprintln(w, "No unreadable records detected.")
			return nil
		}

		fmt.Fprintf(w, "Found %d unreadable records:\n", len(invalid))
		for i, p := range invalid {
			fmt.Fprintf(w, "%2d. Key: %s\n", i+1, p.Key)
			fmt.Fprintf(w, "    Error: %v\n", p.Err)
		}

		if dryRun {
			fmt.Fprintln(w, "Dry run enabled; no deletions were performed.")
			return nil
		}

		if !force {
			confirmed, err := promptYesNo(cmd.InOrStdin(), w, fmt.Sprintf("Delete %d records", len(invalid)))
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Fprintln(w, "Aborted. No records deleted.")
				return nil
			}
		}

		deleted := 0
		for _, p := range invalid {
			if err := store.Delete(p.Key); err != nil {
				fmt.Fprintf(w, "Failed to delete %s: %v\n", p.Key, err)
				continue
			}
			deleted++
		}

		fmt.Fprintf(w, "Deleted %d unreadable records. Defaults will be used from now on.\n", deleted)
		return nil
	})
}

func runDiagnosticsQuery(w io.Writer, limit int, prefix string, raw bool) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	if raw {
		if config.AppConfig.DatabaseType != "pebble" {
			return fmt.Errorf("raw inspection is only available for Pebble databases")
		}
		if activeApp != nil {
			return errors.New("raw inspection needs exclusive access; leave the shell first")
		}
		return runRawPebbleQuery(w, limit, prefix)
	}

	return withDiagnosticsStore(func(store database.Store) error {
		keys, err := store.Keys()
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		count := 0
		for _, key := range keys {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			val, err := store.Get(key)
			if err != nil {
				fmt.Fprintf(w, "Key: %s (unreadable: %v)\n", key, err)
				continue
			}
			fmt.Fprintf(w, "Key: %s\n", key)
			fmt.Fprintf(w, "Value length: %d bytes\n", len(val))
			fmt.Fprintf(w, "Value preview: %s\n", truncateString(string(val), 500))
			fmt.Fprintln(w, "---")

			count++
			if count >= limit {
				break
			}
		}
		if count == 0 {
			fmt.Fprintln(w, "No keys matched the requested prefix.")
		}
		return nil
	})
}

func runRawPebbleQuery(w io.Writer, limit int, prefix string) error {
	db, err := pebble.Open(config.AppConfig.DatabasePath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Fprintf(w, "Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Fprintf(w, "Value length: %d bytes\n", len(val))
		fmt.Fprintf(w, "Value preview: %s\n", truncateString(string(val), 500))
		fmt.Fprintln(w, "---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(w, "No keys matched the requested prefix.")
	}

	return nil
}

func promptYesNo(in io.Reader, out io.Writer, action string) (bool, error) {
	fmt.Fprintf(out, "%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
