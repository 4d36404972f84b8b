// Package config provides configuration loading and structs for the w2vapi server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Download DownloadConfig `yaml:"download"`
	Similar  SimilarConfig  `yaml:"similar"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ModelConfig describes the embedding model and how to load it.
type ModelConfig struct {
	// Name is reported by the API root and status endpoints.
	Name string `yaml:"name"`
	// Source selects the loader: "files" (vocab + npy pair) or "sqlite".
	Source string `yaml:"source"`
	// VocabPath and VectorsPath locate the two-file model layout.
	VocabPath   string `yaml:"vocab_path"`
	VectorsPath string `yaml:"vectors_path"`
	// SQLitePath locates the sqlite model database when Source is "sqlite".
	SQLitePath string `yaml:"sqlite_path"`
	// BackgroundLoad starts the HTTP server immediately and loads the model
	// in the background; queries answer 503 until loading completes.
	BackgroundLoad bool `yaml:"background_load"`
	// WatchDir, when true, watches the model directory and starts loading as
	// soon as the model files appear (for deploys where a separate job
	// downloads them).
	WatchDir bool `yaml:"watch_dir"`
}

// DownloadConfig holds model download settings.
type DownloadConfig struct {
	Enabled    bool   `yaml:"enabled"`
	VocabURL   string `yaml:"vocab_url"`
	VectorsURL string `yaml:"vectors_url"`
	// MaxRetries is the number of attempts per file.
	MaxRetries int `yaml:"max_retries"`
	// RetryBackoffSeconds is the fixed delay between attempts.
	RetryBackoffSeconds int `yaml:"retry_backoff_seconds"`
}

// SimilarConfig holds similarity query settings.
type SimilarConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// CacheSize is the LRU capacity for cached similarity results; 0 disables.
	CacheSize int `yaml:"cache_size"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Model.VocabPath = expandPath(cfg.Model.VocabPath, configDir)
	cfg.Model.VectorsPath = expandPath(cfg.Model.VectorsPath, configDir)
	cfg.Model.SQLitePath = expandPath(cfg.Model.SQLitePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	switch c.Model.Source {
	case "files", "sqlite":
	default:
		return fmt.Errorf("invalid model source %q (want files or sqlite)", c.Model.Source)
	}
	if c.Similar.DefaultLimit > c.Similar.MaxLimit {
		return fmt.Errorf("similar.default_limit %d exceeds max_limit %d",
			c.Similar.DefaultLimit, c.Similar.MaxLimit)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
