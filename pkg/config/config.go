// Package config provides configuration management for facegate.
// Values come from YAML files with sensible defaults; environment
// variables prefixed FACEGATE override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all facegate configuration.
type Config struct {
	Capture    CaptureConfig    `yaml:"capture"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
	Session    SessionConfig    `yaml:"session"`
	Models     ModelsConfig     `yaml:"models"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CaptureConfig holds frame admission and auto-capture settings.
type CaptureConfig struct {
	ThrottleMillis  int     `yaml:"throttle_millis" envconfig:"CAPTURE_THROTTLE_MILLIS"`
	BufferSize      int     `yaml:"buffer_size" envconfig:"CAPTURE_BUFFER_SIZE"`
	RequiredStreak  int     `yaml:"required_streak" envconfig:"CAPTURE_REQUIRED_STREAK"`
	MinQualityScore float64 `yaml:"min_quality_score" envconfig:"CAPTURE_MIN_QUALITY"`
	MinConfidence   float64 `yaml:"min_confidence" envconfig:"CAPTURE_MIN_CONFIDENCE"`
	RequireCentered bool    `yaml:"require_centered" envconfig:"CAPTURE_REQUIRE_CENTERED"`
}

// EnrollmentConfig holds enrollment and matching settings.
type EnrollmentConfig struct {
	MinSamples          int     `yaml:"min_samples" envconfig:"ENROLLMENT_MIN_SAMPLES"`
	MaxTrainingSamples  int     `yaml:"max_training_samples" envconfig:"ENROLLMENT_MAX_SAMPLES"`
	PacingMode          string  `yaml:"pacing_mode" envconfig:"ENROLLMENT_PACING_MODE"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" envconfig:"SIMILARITY_THRESHOLD"`
}

// SessionConfig holds orchestrator settings.
type SessionConfig struct {
	TimeoutSeconds    int `yaml:"timeout_seconds" envconfig:"SESSION_TIMEOUT_SECONDS"`
	RevertDelayMillis int `yaml:"revert_delay_millis" envconfig:"SESSION_REVERT_DELAY_MILLIS"`
	CancelDelayMillis int `yaml:"cancel_delay_millis" envconfig:"SESSION_CANCEL_DELAY_MILLIS"`
}

// ModelsConfig holds inference model settings.
type ModelsConfig struct {
	Path string `yaml:"path" envconfig:"MODELS_PATH"`
}

// StorageConfig holds secure storage settings.
type StorageConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"STORAGE_DATA_DIR"`
	Namespace string `yaml:"namespace" envconfig:"STORAGE_NAMESPACE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
	File  string `yaml:"file" envconfig:"LOG_FILE"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Capture: CaptureConfig{
			ThrottleMillis:  100,
			BufferSize:      3,
			RequiredStreak:  5,
			MinQualityScore: 0.8,
			MinConfidence:   0.7,
			RequireCentered: true,
		},
		Enrollment: EnrollmentConfig{
			MinSamples:          3,
			MaxTrainingSamples:  50,
			PacingMode:          "standard",
			SimilarityThreshold: 0.85,
		},
		Session: SessionConfig{
			TimeoutSeconds:    60,
			RevertDelayMillis: 2000,
			CancelDelayMillis: 500,
		},
		Models: ModelsConfig{
			Path: filepath.Join(homeDir, ".local/share/facegate/models"),
		},
		Storage: StorageConfig{
			DataDir:   filepath.Join(homeDir, ".local/share/facegate"),
			Namespace: "facegate.profiles",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".local/share/facegate/facegate.log"),
		},
	}
}

// Load loads configuration from the specified file, then applies
// FACEGATE_* environment overrides.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	if err := applyEnv(config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("/etc/facegate/facegate.yaml"); err == nil {
		return Load("/etc/facegate/facegate.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfig := filepath.Join(homeDir, ".config/facegate/facegate.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return Load(userConfig)
		}
	}

	config := DefaultConfig()
	if err := applyEnv(config); err != nil {
		return config, err
	}
	return config, nil
}

// applyEnv overrides config values from FACEGATE_* environment variables.
func applyEnv(c *Config) error {
	if err := envconfig.Process("FACEGATE", c); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Models.Path = ExpandPath(c.Models.Path)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Capture.ThrottleMillis <= 0 {
		return fmt.Errorf("throttle_millis must be positive, got %d", c.Capture.ThrottleMillis)
	}
	if c.Capture.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.Capture.BufferSize)
	}
	if c.Capture.RequiredStreak <= 0 {
		return fmt.Errorf("required_streak must be positive, got %d", c.Capture.RequiredStreak)
	}
	if c.Capture.MinQualityScore < 0 || c.Capture.MinQualityScore > 1 {
		return fmt.Errorf("min_quality_score must be between 0 and 1, got %f", c.Capture.MinQualityScore)
	}
	if c.Capture.MinConfidence < 0 || c.Capture.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Capture.MinConfidence)
	}

	if c.Enrollment.MinSamples < 3 {
		return fmt.Errorf("min_samples must be at least 3, got %d", c.Enrollment.MinSamples)
	}
	if c.Enrollment.MaxTrainingSamples < c.Enrollment.MinSamples {
		return fmt.Errorf("max_training_samples must be at least min_samples, got %d", c.Enrollment.MaxTrainingSamples)
	}
	validModes := map[string]bool{"fast": true, "standard": true, "deep": true}
	if !validModes[c.Enrollment.PacingMode] {
		return fmt.Errorf("invalid pacing_mode: %s (must be fast, standard, or deep)", c.Enrollment.PacingMode)
	}
	if c.Enrollment.SimilarityThreshold < -1 || c.Enrollment.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be between -1 and 1, got %f", c.Enrollment.SimilarityThreshold)
	}

	if c.Session.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.Session.TimeoutSeconds)
	}

	if c.Storage.Namespace == "" {
		return fmt.Errorf("storage namespace must not be empty")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// EnsureDirectories creates necessary directories for storage and logging.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.MkdirAll(c.Models.Path, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	return nil
}
