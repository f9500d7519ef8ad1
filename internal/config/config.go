// Package config loads and persists the semnotes configuration from a
// JSON file and SEMNOTES_* environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/localrivet/configurator"
)

// Global configuration instance
var (
	// Global is the global configuration instance
	Global *Config
	// initOnce ensures initialization happens only once
	initOnce sync.Once
)

// InitGlobal initializes the global configuration
func InitGlobal(configPath string) (*Config, error) {
	var err error
	initOnce.Do(func() {
		Global, err = LoadConfigWithPath(configPath)
	})
	return Global, err
}

// Config represents the semnotes configuration
type Config struct {
	// Source contains note-collection configuration.
	Source struct {
		// Root is the directory that holds the note files.
		Root string `json:"root" env:"SOURCE_ROOT" validate:"required"`

		// ExcludedFolders lists folder paths, relative to Root, whose
		// notes are never embedded or searched.
		ExcludedFolders []string `json:"excluded_folders" env:"EXCLUDED_FOLDERS"`
	} `json:"source"`

	// Store contains storage-related configuration.
	Store struct {
		// Backend selects the persistence layer: "file" or "sqlite".
		Backend string `json:"backend" env:"STORE_BACKEND" validate:"required"`

		// Path is the store location: a directory for the file backend,
		// a database file for the sqlite backend.
		Path string `json:"path" env:"STORE_PATH" validate:"required"`
	} `json:"store"`

	// Provider contains embedding-provider configuration.
	Provider struct {
		// Name selects the backend: "openai", "google", "voyage", "mock".
		Name string `json:"name" env:"PROVIDER_NAME"`

		// Model overrides the provider's default model identifier.
		Model string `json:"model" env:"PROVIDER_MODEL"`

		// ApiKey is the API key for the embedding provider.
		ApiKey string `json:"api_key" env:"PROVIDER_API_KEY"`

		// Dimensions is the expected vector dimensionality.
		Dimensions int `json:"dimensions" env:"PROVIDER_DIMENSIONS" validate:"min:1"`
	} `json:"provider"`

	// Sync contains synchronization configuration.
	Sync struct {
		// DebounceMs is the quiet period for the edit queue, in
		// milliseconds.
		DebounceMs int `json:"debounce_ms" env:"SYNC_DEBOUNCE_MS"`
	} `json:"sync"`

	// Search contains similarity-search defaults.
	Search struct {
		// Threshold is the minimum similarity for a result.
		Threshold float64 `json:"threshold" env:"SEARCH_THRESHOLD"`

		// Limit caps the number of results per query.
		Limit int `json:"limit" env:"SEARCH_LIMIT"`
	} `json:"search"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".semnotesconfig"
	DefaultStoreBackend   = "file"
	DefaultStorePath      = ".semnotes"
	DefaultProvider       = "mock"
	DefaultDimensions     = 768
	DefaultDebounceMs     = 2000
	DefaultThreshold      = 0.3
	DefaultLimit          = 10
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Source.Root = "."
	config.Store.Backend = DefaultStoreBackend
	config.Store.Path = DefaultStorePath
	config.Provider.Name = DefaultProvider
	config.Provider.Dimensions = DefaultDimensions
	config.Sync.DebounceMs = DefaultDebounceMs
	config.Search.Threshold = DefaultThreshold
	config.Search.Limit = DefaultLimit
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path
func LoadConfigWithPath(configPath string) (*Config, error) {
	// Logs go to stderr; stdout belongs to the MCP transport.
	stdLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create default configuration
	cfg := NewConfig()

	// Try to find config file if path is default
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// File doesn't exist, return default config
		stdLogger.Info("Config file not found, using default configuration", "path", configPath)
		cfg.configPath = configPath
		cfg.lastModifiedAt = time.Now()
		return cfg, nil
	}

	stdLogger.Info("Loading configuration", "path", configPath)

	// Create configurator instance
	config := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider()).
		WithProvider(configurator.NewFileProvider(configPath)).
		WithProvider(configurator.NewEnvProvider("SEMNOTES")).
		WithValidator(configurator.NewDefaultValidator())

	// Load configuration
	ctx := context.Background()
	if err := config.Load(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Store the config path for future operations
	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Save using configurator's SaveToFile function
	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Update internal state
	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Debounce returns the configured debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	if c.Sync.DebounceMs <= 0 {
		return time.Duration(DefaultDebounceMs) * time.Millisecond
	}
	return time.Duration(c.Sync.DebounceMs) * time.Millisecond
}
