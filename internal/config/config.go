// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// BOOK_EXPLORER_CATALOG_API_KEY.
const EnvPrefix = "BOOK_EXPLORER"

// Config holds application configuration
type Config struct {
	DatabasePath string
	DatabaseType string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)

	Catalog   CatalogConfig
	Recommend RecommendConfig

	LogLevel  string
	LogFormat string
}

// CatalogConfig configures the book catalog client.
type CatalogConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables rate limiting
	CacheTTL          time.Duration
	BreakerFailures   int // consecutive failures that open the breaker; 0 disables it
	BreakerTimeout    time.Duration
}

// RecommendConfig configures recommendation recomputation.
type RecommendConfig struct {
	Debounce time.Duration
}

var AppConfig Config

// SetDefaults registers the default value of every key with viper.
func SetDefaults() {
	viper.SetDefault("database_path", "bookshelf.pebble")
	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)

	viper.SetDefault("catalog.base_url", "https://www.googleapis.com/books/v1")
	viper.SetDefault("catalog.api_key", "")
	viper.SetDefault("catalog.timeout", 15*time.Second)
	viper.SetDefault("catalog.requests_per_second", 5.0)
	viper.SetDefault("catalog.cache_ttl", 5*time.Minute)
	viper.SetDefault("catalog.breaker_failures", 5)
	viper.SetDefault("catalog.breaker_timeout", 30*time.Second)

	viper.SetDefault("recommend.debounce", 250*time.Millisecond)

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")
}

// InitConfig initializes the application configuration
func InitConfig() {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	load()
}

// load rebuilds AppConfig from viper.
func load() {
	AppConfig = Config{
		DatabasePath: viper.GetString("database_path"),
		DatabaseType: viper.GetString("database_type"),
		EnableSQLite: viper.GetBool("enable_sqlite3_i_know_the_risks"),
		Catalog: CatalogConfig{
			BaseURL:           viper.GetString("catalog.base_url"),
			APIKey:            viper.GetString("catalog.api_key"),
			Timeout:           viper.GetDuration("catalog.timeout"),
			RequestsPerSecond: viper.GetFloat64("catalog.requests_per_second"),
			CacheTTL:          viper.GetDuration("catalog.cache_ttl"),
			BreakerFailures:   viper.GetInt("catalog.breaker_failures"),
			BreakerTimeout:    viper.GetDuration("catalog.breaker_timeout"),
		},
		Recommend: RecommendConfig{
			Debounce: viper.GetDuration("recommend.debounce"),
		},
		LogLevel:  strings.ToLower(viper.GetString("log_level")),
		LogFormat: strings.ToLower(viper.GetString("log_format")),
	}

	// Normalize database type
	AppConfig.DatabaseType = strings.ToLower(strings.TrimSpace(AppConfig.DatabaseType))
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}
	if AppConfig.Catalog.RequestsPerSecond < 0 {
		AppConfig.Catalog.RequestsPerSecond = 0
	}
}
