package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLevel(t *testing.T) {
	defer Logger.SetLevel(logrus.InfoLevel)

	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			SetLevel(tt.level)
			if got := Logger.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInit_CreatesLogFile(t *testing.T) {
	defer Logger.SetOutput(os.Stderr)

	logFile := filepath.Join(t.TempDir(), "logs", "facegate.log")
	if err := Init("debug", logFile); err != nil {
		t.Fatalf("init: %v", err)
	}

	Info("test entry")

	info, err := os.Stat(logFile)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if info.Size() == 0 {
		t.Error("log file is empty after writing an entry")
	}
}

func TestComponent(t *testing.T) {
	entry := Component("capture")
	if entry.Data["component"] != "capture" {
		t.Errorf("component field = %v, want capture", entry.Data["component"])
	}
}
