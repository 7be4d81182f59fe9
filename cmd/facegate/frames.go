package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/facegate/facegate/pkg/capture"
	"github.com/facegate/facegate/pkg/session"
)

// loadFrames reads every JPEG/PNG in dir, sorted by name, as frames.
// Raw camera acquisition is outside this tool; a frame directory
// stands in for the camera stream.
func loadFrames(dir string) ([]capture.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}

	frames := make([]capture.Frame, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %s: %w", name, err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("undecodable frame %s: %w", name, err)
		}
		frames = append(frames, capture.Frame{
			Data:   data,
			Width:  cfg.Width,
			Height: cfg.Height,
		})
	}
	return frames, nil
}

// pumpFrames cycles the frame set into the session at the capture
// rate until stop is closed.
func pumpFrames(orch *session.Orchestrator, frames []capture.Frame, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			frame := frames[i%len(frames)]
			frame.Timestamp = now
			_ = orch.SubmitFrame(frame)
			i++
		}
	}
}
