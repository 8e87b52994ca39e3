// file: cmd/root_test.go
// version: 2.0.0
// guid: 7eae8d0c-7fda-4f45-8f73-5d1e0c7c9f1a

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/book-explorer/internal/config"
	"github.com/jdfalk/book-explorer/internal/testutil"
)

// testEnv points the CLI at a temp database and a mock catalog through
// environment variables, so nothing leaks between tests.
type testEnv struct {
	dir     string
	dbPath  string
	catalog *testutil.MockCatalog
}

func newTestEnv(t *testing.T, routes map[string]string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		dbPath:  filepath.Join(dir, "data", "bookshelf.pebble"),
		catalog: testutil.MockCatalogServer(t, routes),
	}
	t.Setenv("HOME", dir)
	t.Setenv("BOOK_EXPLORER_DATABASE_PATH", env.dbPath)
	t.Setenv("BOOK_EXPLORER_CATALOG_BASE_URL", env.catalog.URL)
	t.Setenv("BOOK_EXPLORER_CATALOG_REQUESTS_PER_SECOND", "0")
	t.Setenv("BOOK_EXPLORER_CATALOG_BREAKER_FAILURES", "0")
	t.Setenv("BOOK_EXPLORER_LOG_LEVEL", "error")

	origConfig := config.AppConfig
	t.Cleanup(func() {
		config.AppConfig = origConfig
		activeApp = nil
	})
	return env
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetCommandFlags(rootCmd)
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestInitConfigCreatesDatabaseDirectory(t *testing.T) {
	// Arrange
	env := newTestEnv(t, nil)

	// Act
	_, _, err := execute(t, "", "stats")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, env.dbPath, config.AppConfig.DatabasePath)
	_, err = os.Stat(filepath.Dir(env.dbPath))
	assert.NoError(t, err)
}

func TestDatabaseFlagOverridesEnvironment(t *testing.T) {
	env := newTestEnv(t, nil)
	flagPath := filepath.Join(env.dir, "other", "flag.pebble")

	_, _, err := execute(t, "", "--db", flagPath, "stats")

	require.NoError(t, err)
	assert.Equal(t, flagPath, config.AppConfig.DatabasePath)
}

func TestSQLiteRequiresOptIn(t *testing.T) {
	newTestEnv(t, nil)

	_, _, err := execute(t, "", "--db-type", "sqlite", "stats")

	assert.ErrorContains(t, err, "SQLite3 is not enabled")
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{name: "empty", line: "   ", want: nil},
		{name: "words", line: "rate  abc 5", want: []string{"rate", "abc", "5"}},
		{name: "double quotes", line: `review abc "loved it, truly"`, want: []string{"review", "abc", "loved it, truly"}},
		{name: "single quotes", line: "search 'the hobbit'", want: []string{"search", "the hobbit"}},
		{name: "quotes inside a word", line: `inauthor:"Le Guin"`, want: []string{"inauthor:Le Guin"}},
		{name: "empty quoted argument", line: `review abc ""`, want: []string{"review", "abc", ""}},
		{name: "unterminated", line: `review abc "oops`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUnterminatedQuote)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResetCommandFlags(t *testing.T) {
	require.NoError(t, listCmd.Flags().Set("status", "finished"))
	require.NoError(t, rootCmd.PersistentFlags().Set("json", "true"))

	resetCommandFlags(rootCmd)

	status, _ := listCmd.Flags().GetString("status")
	assert.Empty(t, status)
	assert.False(t, listCmd.Flags().Changed("status"))
	assert.False(t, jsonOutput)
}
