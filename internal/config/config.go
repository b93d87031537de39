// Package config provides configuration for the trie search server. Settings
// load from defaults, environment variables and an optional config file, in
// ascending precedence, with validation collecting every problem at once.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable configuration.
const envPrefix = "TRIE_SEARCH_"

// Config holds all settings for the trie search server.
type Config struct {
	// Server settings
	LogLevel string // Log level: debug, info, warn, error (default: info)

	// Index settings
	MaxWordLength int     // Upper bound on indexed term length (default: 50)
	MaxResults    int     // Default result list bound (default: 10)
	MinScore      float64 // Default score cutoff for search results (default: 0.1)
	MaxDistance   int     // Default fuzzy edit-distance bound (default: 2)
	MaxAgeDays    float64 // Horizon of the document freshness adjustment (default: 365)

	// Storage settings
	StorageBackend string // Snapshot backend: memory or file (default: file)
	StorageDir     string // Directory for file-backed snapshots (default: ~/.cache/trie-search)
	SnapshotKey    string // Key snapshots are stored under (default: index)

	// Transport settings
	TransportType string // Transport type: stdio, sse, streamablehttp (default: stdio)
	Host          string // Host to bind for network transports (default: localhost)
	Port          int    // Port to bind for network transports (default: 0)

	// Fetch settings
	FetchTimeout  int // Timeout for fetching remote documents in seconds (default: 30)
	MaxRetries    int // Retry attempts beyond the first fetch (default: 5)
	MaxConcurrent int // Fetches allowed to start per second, also the burst size (default: 5)
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",

		MaxWordLength: 50,
		MaxResults:    10,
		MinScore:      0.1,
		MaxDistance:   2,
		MaxAgeDays:    365,

		StorageBackend: "file",
		StorageDir:     "",
		SnapshotKey:    "index",

		TransportType: "stdio",
		Host:          "localhost",
		Port:          0,

		FetchTimeout:  30,
		MaxRetries:    5,
		MaxConcurrent: 5,
	}
}

// Load builds configuration from environment variables over defaults.
func Load() (*Config, error) {
	cfg := NewConfig()
	loadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile builds configuration with precedence: config file >
// environment variables > defaults.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := NewConfig()
	loadFromEnv(cfg)

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("max_word_length") {
		cfg.MaxWordLength = v.GetInt("max_word_length")
	}
	if v.IsSet("max_results") {
		cfg.MaxResults = v.GetInt("max_results")
	}
	if v.IsSet("min_score") {
		cfg.MinScore = v.GetFloat64("min_score")
	}
	if v.IsSet("max_distance") {
		cfg.MaxDistance = v.GetInt("max_distance")
	}
	if v.IsSet("max_age_days") {
		cfg.MaxAgeDays = v.GetFloat64("max_age_days")
	}
	if v.IsSet("storage.backend") {
		cfg.StorageBackend = v.GetString("storage.backend")
	}
	if v.IsSet("storage.dir") {
		cfg.StorageDir = v.GetString("storage.dir")
	}
	if v.IsSet("storage.snapshot_key") {
		cfg.SnapshotKey = v.GetString("storage.snapshot_key")
	}
	if v.IsSet("transport_type") {
		cfg.TransportType = v.GetString("transport_type")
	}
	if v.IsSet("host") {
		cfg.Host = v.GetString("host")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("fetch_timeout") {
		cfg.FetchTimeout = v.GetInt("fetch_timeout")
	}
	if v.IsSet("max_retries") {
		cfg.MaxRetries = v.GetInt("max_retries")
	}
	if v.IsSet("max_concurrent") {
		cfg.MaxConcurrent = v.GetInt("max_concurrent")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv applies TRIE_SEARCH_-prefixed environment variables.
func loadFromEnv(cfg *Config) {
	getEnv := func(name string) string {
		return os.Getenv(envPrefix + name)
	}

	if val := getEnv("LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := getEnv("MAX_WORD_LENGTH"); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			cfg.MaxWordLength = intVal
		}
	}
	if val := getEnv("MAX_RESULTS"); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			cfg.MaxResults = intVal
		}
	}
	if val := getEnv("MIN_SCORE"); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.MinScore = floatVal
		}
	}
	if val := getEnv("MAX_DISTANCE"); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			cfg.MaxDistance = intVal
		}
	}
	if val := getEnv("MAX_AGE_DAYS"); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.MaxAgeDays = floatVal
		}
	}
	if val := getEnv("STORAGE_BACKEND"); val != "" {
		cfg.StorageBackend = val
	}
	if val := getEnv("STORAGE_DIR"); val != "" {
		cfg.StorageDir = val
	}
	if val := getEnv("SNAPSHOT_KEY"); val != "" {
		cfg.SnapshotKey = val
	}
	if val := getEnv("TRANSPORT_TYPE"); val != "" {
		cfg.TransportType = val
	}
	if val := getEnv("HOST"); val != "" {
		cfg.Host = val
	}
	if val := getEnv("PORT"); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			cfg.Port = intVal
		}
	}
	if val := getEnv("FETCH_TIMEOUT"); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			cfg.FetchTimeout = intVal
		}
	}
	if val := getEnv("MAX_RETRIES"); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			cfg.MaxRetries = intVal
		}
	}
	if val := getEnv("MAX_CONCURRENT"); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			cfg.MaxConcurrent = intVal
		}
	}
}

// GetTransportAddress returns the network address for network transports and
// an empty string for stdio.
func (c *Config) GetTransportAddress() string {
	if c.TransportType == "stdio" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTransportType returns the configured transport type.
func (c *Config) GetTransportType() string {
	return c.TransportType
}

// GetPort returns the configured port for network transports.
func (c *Config) GetPort() int {
	return c.Port
}

// GetStorageDir returns the snapshot directory, using a default under the
// user's cache directory when not configured.
func (c *Config) GetStorageDir() string {
	if c.StorageDir != "" {
		return c.StorageDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/trie-search"
	}
	return homeDir + "/.cache/trie-search"
}

// ValidateTransport validates transport-specific settings.
func (c *Config) ValidateTransport() error {
	var errors []string

	validTransportTypes := map[string]bool{
		"stdio":          true,
		"sse":            true,
		"streamablehttp": true,
	}
	if !validTransportTypes[c.TransportType] {
		errors = append(errors, fmt.Sprintf("invalid transport type: %s (must be one of: stdio, sse, streamablehttp)", c.TransportType))
	}

	if c.TransportType == "sse" || c.TransportType == "streamablehttp" {
		if c.Port < 1 || c.Port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535 for network transports, got: %d", c.Port))
		}
		if c.Host == "" {
			errors = append(errors, "host cannot be empty for network transports")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("transport validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// Validate checks every configuration value and returns all problems joined
// into one error.
func (c *Config) Validate() error {
	var errors []string

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel))
	}

	if c.MaxWordLength <= 0 {
		errors = append(errors, fmt.Sprintf("max_word_length must be positive, got: %d", c.MaxWordLength))
	}
	if c.MaxResults <= 0 {
		errors = append(errors, fmt.Sprintf("max_results must be positive, got: %d", c.MaxResults))
	}
	if c.MinScore < 0 {
		errors = append(errors, fmt.Sprintf("min_score cannot be negative, got: %v", c.MinScore))
	}
	if c.MaxDistance < 0 {
		errors = append(errors, fmt.Sprintf("max_distance cannot be negative, got: %d", c.MaxDistance))
	}
	if c.MaxAgeDays <= 0 {
		errors = append(errors, fmt.Sprintf("max_age_days must be positive, got: %v", c.MaxAgeDays))
	}

	validBackends := map[string]bool{
		"memory": true,
		"file":   true,
	}
	if !validBackends[c.StorageBackend] {
		errors = append(errors, fmt.Sprintf("invalid storage backend: %s (must be one of: memory, file)", c.StorageBackend))
	}
	if c.SnapshotKey == "" {
		errors = append(errors, "storage.snapshot_key cannot be empty")
	}

	if c.FetchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("fetch_timeout must be positive, got: %d", c.FetchTimeout))
	}
	if c.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("max_retries cannot be negative, got: %d", c.MaxRetries))
	}
	if c.MaxConcurrent <= 0 {
		errors = append(errors, fmt.Sprintf("max_concurrent must be positive, got: %d", c.MaxConcurrent))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
