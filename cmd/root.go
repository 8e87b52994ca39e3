// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/book-explorer/internal/config"
	"github.com/jdfalk/book-explorer/internal/logging"
	"github.com/jdfalk/book-explorer/internal/metrics"
)

var cfgFile string
var databasePath string
var databaseType string
var enableSQLite bool
var logLevel string
var logFormat string
var jsonOutput bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "book-explorer",
	Short: "Discover books, track your reading list and get recommendations",
	Long: `Book Explorer searches the Google Books catalog, keeps a personal reading
list with ratings and reading progress, and recommends books based on what
you rate highly, your favorite genres and authors, and what you already own.

All state is stored locally in PebbleDB (or SQLite when explicitly enabled).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.book-explorer.yaml)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "bookshelf.pebble", "path to database (default: bookshelf.pebble for PebbleDB)")
	rootCmd.PersistentFlags().StringVar(&databaseType, "db-type", "pebble", "database type: pebble (default) or sqlite")
	rootCmd.PersistentFlags().BoolVar(&enableSQLite, "enable-sqlite3-i-know-the-risks", false, "enable SQLite3 database (WARNING: cross-compilation issues, PebbleDB recommended)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("database_type", rootCmd.PersistentFlags().Lookup("db-type"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", rootCmd.PersistentFlags().Lookup("enable-sqlite3-i-know-the-risks"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".book-explorer")
	}

	if err := viper.ReadInConfig(); err == nil {
		logging.Debug().Str("path", viper.ConfigFileUsed()).Msg("using config file")
	}

	config.InitConfig()
	if err := config.LoadConfigFromFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// Ensure database directory exists
	if dbPath := config.AppConfig.DatabasePath; dbPath != "" {
		dbDir := filepath.Dir(dbPath)
		if dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating database directory: %v\n", err)
			}
		}
	}

	logging.Init(logging.Config{
		Level:  config.AppConfig.LogLevel,
		Format: config.AppConfig.LogFormat,
	})
	metrics.Register()
}
