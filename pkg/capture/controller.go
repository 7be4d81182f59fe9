package capture

import (
	"context"
	"sync"
	"time"

	"github.com/facegate/facegate/pkg/face"
	"github.com/facegate/facegate/pkg/logging"
)

// Defaults for the admission state machine.
const (
	// DefaultThrottle caps frame admission at 10Hz.
	DefaultThrottle = 100 * time.Millisecond
	// DefaultBufferSize is the capacity of the recent-frame ring.
	DefaultBufferSize = 3
	// DefaultRequiredStreak is the consecutive-good-frame count that
	// triggers auto-capture.
	DefaultRequiredStreak = 5
)

// Status describes the outcome of processing one detection result.
type Status string

const (
	StatusNoFace        Status = "noFaceDetected"
	StatusValidating    Status = "validating"
	StatusPoorQuality   Status = "poorQuality"
	StatusLowConfidence Status = "lowConfidence"
	StatusNotCentered   Status = "notCentered"
	StatusCaptured      Status = "captured"
	StatusFailure       Status = "failure"
)

// Event is one capture pipeline event. Frame is set only for
// StatusCaptured; Err only for StatusFailure.
type Event struct {
	Status     Status
	Progress   float64
	Validation face.Validation
	Frame      *Frame
	Err        error
}

// Metrics counts admission activity since the last Start.
type Metrics struct {
	FramesSeen     uint64
	FramesAccepted uint64
	FramesDropped  uint64
	Detections     uint64
	Captures       uint64
}

// Options configures a Controller. Zero values take defaults.
type Options struct {
	Throttle       time.Duration
	BufferSize     int
	RequiredStreak int
}

// Controller is the frame admission and auto-capture state machine.
// Admission is non-blocking and lossy: frames arriving while a
// detection is in flight contribute nothing, they are never queued.
type Controller struct {
	detector Detector
	opts     Options
	events   chan Event

	mu           sync.Mutex
	processing   bool
	requirements face.Requirements
	lastAccepted time.Time
	ring         []Frame
	ringNext     int
	ringCount    int
	streak       int
	detecting    bool
	metrics      Metrics
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewController creates a Controller over the given detector capability.
func NewController(detector Detector, opts Options) *Controller {
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.RequiredStreak <= 0 {
		opts.RequiredStreak = DefaultRequiredStreak
	}
	return &Controller{
		detector: detector,
		opts:     opts,
		events:   make(chan Event, 32),
	}
}

// Events returns the capture event stream. Events are delivered
// best-effort: a full channel drops the event rather than blocking
// frame admission.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Start transitions Idle -> Processing with the given requirements,
// which are fixed until Stop. Metrics and the good-frame streak reset.
func (c *Controller) Start(req face.Requirements) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.processing {
		return
	}
	c.processing = true
	c.requirements = req
	c.streak = 0
	c.ringNext = 0
	c.ringCount = 0
	c.ring = make([]Frame, c.opts.BufferSize)
	c.lastAccepted = time.Time{}
	c.metrics = Metrics{}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	logging.Debugf("capture started (streak=%d, throttle=%s)", c.opts.RequiredStreak, c.opts.Throttle)
}

// Stop transitions Processing -> Idle and discards buffered frames.
// An in-flight detection is not aborted; its result is ignored.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.processing {
		return
	}
	c.processing = false
	c.cancel()
	c.ring = nil
	c.ringCount = 0
	c.streak = 0
	logging.Debugf("capture stopped (seen=%d dropped=%d)", c.metrics.FramesSeen, c.metrics.FramesDropped)
}

// IsProcessing reports whether the controller is admitting frames.
func (c *Controller) IsProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// Metrics returns a copy of the admission counters.
func (c *Controller) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Submit offers one frame for admission. It never blocks: frames
// inside the throttle window are dropped, and a detection already in
// flight means the frame is buffered but produces no detection.
func (c *Controller) Submit(frame Frame) error {
	c.mu.Lock()

	if !c.processing {
		c.mu.Unlock()
		return ErrNotProcessing
	}

	c.metrics.FramesSeen++

	now := time.Now()
	if !c.lastAccepted.IsZero() && now.Sub(c.lastAccepted) < c.opts.Throttle {
		c.metrics.FramesDropped++
		c.mu.Unlock()
		return nil
	}
	c.lastAccepted = now
	c.metrics.FramesAccepted++

	clone := frame.Clone()
	c.ring[c.ringNext] = clone
	c.ringNext = (c.ringNext + 1) % c.opts.BufferSize
	if c.ringCount < c.opts.BufferSize {
		c.ringCount++
	}

	if c.detecting {
		c.mu.Unlock()
		return nil
	}
	c.detecting = true
	ctx := c.ctx
	c.mu.Unlock()

	go c.runDetection(ctx, clone)
	return nil
}

// ManualCapture bypasses the auto-capture hysteresis and returns the
// most recently buffered frame.
func (c *Controller) ManualCapture() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ringCount == 0 {
		return Frame{}, ErrNoFrame
	}
	idx := (c.ringNext - 1 + c.opts.BufferSize) % c.opts.BufferSize
	return c.ring[idx].Clone(), nil
}

// runDetection invokes the detector for one admitted frame and feeds
// the result back into the state machine.
func (c *Controller) runDetection(ctx context.Context, frame Frame) {
	faces, err := c.detector.Detect(ctx, frame)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.detecting = false
	if !c.processing || ctx.Err() != nil {
		return
	}
	c.metrics.Detections++

	if err != nil {
		// Per-frame detector failures never halt the loop.
		logging.WithError(err).Warn("face detection failed")
		c.emit(Event{Status: StatusFailure, Err: err})
		return
	}

	c.evaluate(faces)
}

// evaluate runs one detection result through the auto-capture
// hysteresis. Caller holds c.mu.
func (c *Controller) evaluate(faces []face.DetectedFace) {
	best, val, found := face.BestFace(faces)
	if !found {
		c.streak = 0
		c.emit(Event{Status: StatusNoFace})
		return
	}

	if c.meetsRequirements(best, val) {
		c.streak++
		if c.streak >= c.opts.RequiredStreak {
			c.streak = 0
			c.metrics.Captures++
			captured, err := c.latestLocked()
			if err != nil {
				c.emit(Event{Status: StatusFailure, Err: err})
				return
			}
			logging.Debugf("auto-capture fired (score=%.2f)", val.QualityScore)
			c.emit(Event{Status: StatusCaptured, Validation: val, Frame: &captured, Progress: 1})
			return
		}
		c.emit(Event{
			Status:     StatusValidating,
			Validation: val,
			Progress:   float64(c.streak) / float64(c.opts.RequiredStreak),
		})
		return
	}

	if c.streak > 0 {
		c.streak--
	}
	c.emit(Event{Status: c.failureStatus(best, val), Validation: val})
}

// meetsRequirements applies the session's capture requirements to one
// validated face.
func (c *Controller) meetsRequirements(f face.DetectedFace, val face.Validation) bool {
	if val.QualityScore < c.requirements.MinQualityScore {
		return false
	}
	if f.Confidence < c.requirements.MinConfidence {
		return false
	}
	if val.IsValid {
		return true
	}
	// A face whose only defect is centering passes when the session
	// does not require centering.
	return !c.requirements.RequireCentered && onlyCenteringIssue(val)
}

// failureStatus reports which threshold was violated, checking quality
// first, then confidence, then centering.
func (c *Controller) failureStatus(f face.DetectedFace, val face.Validation) Status {
	if val.QualityScore < c.requirements.MinQualityScore {
		return StatusPoorQuality
	}
	if f.Confidence < c.requirements.MinConfidence {
		return StatusLowConfidence
	}
	return StatusNotCentered
}

func onlyCenteringIssue(val face.Validation) bool {
	return len(val.Issues) == 1 && val.Issues[0] == "face not centered"
}

// latestLocked returns the newest buffered frame. Caller holds c.mu.
func (c *Controller) latestLocked() (Frame, error) {
	if c.ringCount == 0 {
		return Frame{}, ErrNoFrame
	}
	idx := (c.ringNext - 1 + c.opts.BufferSize) % c.opts.BufferSize
	return c.ring[idx].Clone(), nil
}

// emit delivers an event without ever blocking admission.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
