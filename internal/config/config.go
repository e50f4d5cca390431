package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the talevox converter
type Config struct {
	// Text segmentation configuration
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"2500"` // Maximum characters per synthesis chunk

	// Synthesis configuration
	Voice         string `envconfig:"VOICE" default:"en-US-AriaNeural"` // Default voice short name
	MaxConcurrent int    `envconfig:"MAX_CONCURRENT" default:"10"`      // Max TTS requests in flight simultaneously

	// Merge configuration
	FFmpegPath   string `envconfig:"FFMPEG_PATH" default:""`      // Explicit ffmpeg binary path (empty = search PATH)
	MergeTimeout int    `envconfig:"MERGE_TIMEOUT" default:"120"` // Merge process timeout in seconds

	// Temp file configuration
	TempDir string `envconfig:"TEMP_DIR" default:""` // Directory for chunk artifacts (empty = OS default)

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`        // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`       // Pretty console logs (JSON when false)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"` // Serve Prometheus metrics during a run
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:":9090"`    // Listen address for the metrics endpoint
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for tests and scripted runs)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("talevox", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that numeric settings are usable
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("TALEVOX_CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("TALEVOX_MAX_CONCURRENT must be positive, got %d", c.MaxConcurrent)
	}
	if c.MergeTimeout <= 0 {
		return fmt.Errorf("TALEVOX_MERGE_TIMEOUT must be positive, got %d", c.MergeTimeout)
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
