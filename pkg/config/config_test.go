package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.Capture.ThrottleMillis != 100 {
		t.Errorf("throttle = %d, want 100", c.Capture.ThrottleMillis)
	}
	if c.Capture.RequiredStreak != 5 {
		t.Errorf("required streak = %d, want 5", c.Capture.RequiredStreak)
	}
	if c.Enrollment.MaxTrainingSamples != 50 {
		t.Errorf("max training samples = %d, want 50", c.Enrollment.MaxTrainingSamples)
	}
	if c.Enrollment.SimilarityThreshold != 0.85 {
		t.Errorf("similarity threshold = %f, want 0.85", c.Enrollment.SimilarityThreshold)
	}
	if c.Storage.Namespace != "facegate.profiles" {
		t.Errorf("namespace = %q, want facegate.profiles", c.Storage.Namespace)
	}

	if err := c.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facegate.yaml")
	content := `
capture:
  throttle_millis: 50
  required_streak: 3
enrollment:
  pacing_mode: deep
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Capture.ThrottleMillis != 50 {
		t.Errorf("throttle = %d, want 50", c.Capture.ThrottleMillis)
	}
	if c.Capture.RequiredStreak != 3 {
		t.Errorf("required streak = %d, want 3", c.Capture.RequiredStreak)
	}
	if c.Enrollment.PacingMode != "deep" {
		t.Errorf("pacing mode = %q, want deep", c.Enrollment.PacingMode)
	}
	if c.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", c.Logging.Level)
	}

	// Unspecified values keep their defaults.
	if c.Capture.BufferSize != 3 {
		t.Errorf("buffer size = %d, want default 3", c.Capture.BufferSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if c == nil {
		t.Error("expected defaults to be returned alongside the error")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facegate.yaml")
	content := `
logging:
  level: info
enrollment:
  similarity_threshold: 0.8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("FACEGATE_LOG_LEVEL", "debug")
	t.Setenv("FACEGATE_SIMILARITY_THRESHOLD", "0.9")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Logging.Level != "debug" {
		t.Errorf("log level = %q, environment should override the file", c.Logging.Level)
	}
	if c.Enrollment.SimilarityThreshold != 0.9 {
		t.Errorf("similarity threshold = %f, environment should override the file", c.Enrollment.SimilarityThreshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero throttle", func(c *Config) { c.Capture.ThrottleMillis = 0 }, "throttle_millis"},
		{"zero buffer", func(c *Config) { c.Capture.BufferSize = 0 }, "buffer_size"},
		{"zero streak", func(c *Config) { c.Capture.RequiredStreak = 0 }, "required_streak"},
		{"quality above one", func(c *Config) { c.Capture.MinQualityScore = 1.5 }, "min_quality_score"},
		{"negative confidence", func(c *Config) { c.Capture.MinConfidence = -0.1 }, "min_confidence"},
		{"min samples too low", func(c *Config) { c.Enrollment.MinSamples = 2 }, "min_samples"},
		{"max below min", func(c *Config) { c.Enrollment.MaxTrainingSamples = 2 }, "max_training_samples"},
		{"bad pacing mode", func(c *Config) { c.Enrollment.PacingMode = "turbo" }, "pacing_mode"},
		{"threshold out of range", func(c *Config) { c.Enrollment.SimilarityThreshold = 1.5 }, "similarity_threshold"},
		{"zero timeout", func(c *Config) { c.Session.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"empty namespace", func(c *Config) { c.Storage.Namespace = "" }, "namespace"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	if got := ExpandPath("~/data"); got != filepath.Join(homeDir, "data") {
		t.Errorf("got %q, want %q", got, filepath.Join(homeDir, "data"))
	}

	t.Setenv("FACEGATE_TEST_DIR", "/opt/facegate")
	if got := ExpandPath("$FACEGATE_TEST_DIR/models"); got != "/opt/facegate/models" {
		t.Errorf("got %q, want /opt/facegate/models", got)
	}

	if got := ExpandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("got %q, want unchanged", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	c := DefaultConfig()
	c.Storage.DataDir = filepath.Join(dir, "data")
	c.Models.Path = filepath.Join(dir, "models")
	c.Logging.File = filepath.Join(dir, "logs", "facegate.log")

	if err := c.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	for _, p := range []string{c.Storage.DataDir, c.Models.Path, filepath.Join(dir, "logs")} {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("missing directory %s: %v", p, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", p)
		}
	}

	if info, err := os.Stat(c.Storage.DataDir); err == nil {
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("data dir perm = %o, want 0700", perm)
		}
	}
}
