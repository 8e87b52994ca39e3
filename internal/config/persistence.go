// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jdfalk/book-explorer/internal/logging"
)

// ConfigFileName is the settings file written next to the database.
const ConfigFileName = "config.yaml"

// ConfigFilePath returns the path to the YAML config file next to the database.
func ConfigFilePath() string {
	if AppConfig.DatabasePath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(AppConfig.DatabasePath), ConfigFileName)
}

// LoadConfigFromFile applies the YAML config file next to the database as a
// fallback layer. File values only fill keys that no flag, environment
// variable or --config file set. A missing file is not an error.
func LoadConfigFromFile() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig map[string]any
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("failed to parse config file")
		return nil
	}

	flat := map[string]any{}
	flatten("", fileConfig, flat)

	// Defaults sit below every other viper source, so the file only fills gaps.
	applied := 0
	for key, val := range flat {
		viper.SetDefault(key, val)
		applied++
	}
	load()

	if applied > 0 {
		logging.Debug().Int("settings", applied).Str("path", path).Msg("applied settings from config file")
	}
	return nil
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// SaveConfigToFile writes the effective settings to a YAML config file next
// to the database. The API key is stored in plaintext; the file is 0600.
func SaveConfigToFile() (string, error) {
	path := ConfigFilePath()
	if path == "" {
		return "", fmt.Errorf("cannot determine config file path")
	}

	catalog := map[string]any{
		"base_url":            AppConfig.Catalog.BaseURL,
		"timeout":             AppConfig.Catalog.Timeout.String(),
		"requests_per_second": AppConfig.Catalog.RequestsPerSecond,
		"cache_ttl":           AppConfig.Catalog.CacheTTL.String(),
		"breaker_failures":    AppConfig.Catalog.BreakerFailures,
		"breaker_timeout":     AppConfig.Catalog.BreakerTimeout.String(),
	}
	if AppConfig.Catalog.APIKey != "" {
		catalog["api_key"] = AppConfig.Catalog.APIKey
	}

	fileConfig := map[string]any{
		"database_path":                   AppConfig.DatabasePath,
		"database_type":                   AppConfig.DatabaseType,
		"enable_sqlite3_i_know_the_risks": AppConfig.EnableSQLite,
		"catalog":                         catalog,
		"recommend": map[string]any{
			"debounce": AppConfig.Recommend.Debounce.String(),
		},
		"log_level":  AppConfig.LogLevel,
		"log_format": AppConfig.LogFormat,
	}

	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	// Write with restrictive permissions since it may contain the API key
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	logging.Info().Str("path", path).Msg("configuration saved")
	return path, nil
}
