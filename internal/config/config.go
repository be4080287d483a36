// Package config loads Bookwise configuration from command-line overrides,
// environment variables and a .env file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bookwise/bookwise/internal/validation"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Search  SearchConfig
	Catalog CatalogConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" validate:"required,oneof=debug info warn warning error"`
	Format string `env:"LOG_FORMAT" validate:"omitempty,oneof=json pretty"`
}

// StorageConfig selects where library and progress documents live.
type StorageConfig struct {
	DataPath string `env:"DATA_PATH" validate:"required"`
	Backend  string `env:"STORAGE_BACKEND" validate:"required,oneof=badger sqlite memory"`
}

// SearchConfig controls the full-text index.
type SearchConfig struct {
	Enabled bool `env:"SEARCH_ENABLED"`
}

// CatalogConfig configures catalog lookups.
type CatalogConfig struct {
	Dir               string  `env:"CATALOG_DIR"` // Directory of <volumeID>.json records; empty disables lookups
	RequestsPerSecond float64 `env:"CATALOG_RPS" validate:"gt=0"`
	Burst             int     `env:"CATALOG_BURST" validate:"gte=1"`
}

// Overrides carries values given on the command line. Empty fields fall
// through to the environment.
type Overrides struct {
	EnvFile        string
	Environment    string
	LogLevel       string
	LogFormat      string
	DataPath       string
	StorageBackend string
	SearchEnabled  string
	CatalogDir     string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line overrides (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadEnvFile(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(o.Environment, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getConfigValue(o.LogLevel, "LOG_LEVEL", "info")),
			Format: getConfigValue(o.LogFormat, "LOG_FORMAT", ""),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(o.DataPath, "DATA_PATH", ""),
			Backend:  strings.ToLower(getConfigValue(o.StorageBackend, "STORAGE_BACKEND", BackendBadger)),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue(o.SearchEnabled, "SEARCH_ENABLED", true),
		},
		Catalog: CatalogConfig{
			Dir:               getConfigValue(o.CatalogDir, "CATALOG_DIR", ""),
			RequestsPerSecond: getFloatConfigValue("", "CATALOG_RPS", 1),
			Burst:             getIntConfigValue("", "CATALOG_BURST", 3),
		},
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// BadgerPath is the badger database directory.
func (c *Config) BadgerPath() string {
	return filepath.Join(c.Storage.DataPath, "badger")
}

// SQLitePath is the sqlite database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Storage.DataPath, "bookwise.db")
}

// SearchPath is the search index directory. The memory backend keeps the
// index in memory too.
func (c *Config) SearchPath() string {
	if c.Storage.Backend == BackendMemory {
		return ""
	}
	return filepath.Join(c.Storage.DataPath, "search")
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dataPath, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, "Bookwise", "data"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	c.Storage.DataPath = dataPath

	if c.Catalog.Dir != "" {
		catalogDir, err := expandPath(c.Catalog.Dir, "")
		if err != nil {
			return fmt.Errorf("invalid catalog dir: %w", err)
		}
		c.Catalog.Dir = catalogDir
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from override, env var, or default.
func getConfigValue(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(override, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(override, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	switch strings.ToLower(strValue) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func getIntConfigValue(override, envKey string, defaultValue int) int {
	strValue := getConfigValue(override, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatConfigValue(override, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(override, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments). Variables already set
// in the environment win.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- user supplied config path
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
