// Package capture implements frame admission and the auto-capture
// state machine: it throttles incoming frames, keeps a small ring of
// recent frames, and fires a capture event after a run of consecutive
// good-quality detections.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/facegate/facegate/pkg/face"
)

// Frame is a single camera frame. Upstream frame buffers may be reused
// immediately after delivery, so frames are always cloned before they
// cross into the capture pipeline.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{
		Data:      data,
		Width:     f.Width,
		Height:    f.Height,
		Timestamp: f.Timestamp,
	}
}

// Detector is the external face-detection capability.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]face.DetectedFace, error)
}

// ErrNotProcessing is returned when frames are submitted while idle.
var ErrNotProcessing = errors.New("capture controller not processing")

// ErrNoFrame is returned when no buffered frame is available.
var ErrNoFrame = errors.New("no frame available")
