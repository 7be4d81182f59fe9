package session

import (
	"github.com/facegate/facegate/pkg/capture"
	"github.com/facegate/facegate/pkg/storage"
)

// EventKind tags the variants of the session event stream.
type EventKind string

const (
	// EventStateChanged reports a state machine transition.
	EventStateChanged EventKind = "stateChanged"
	// EventProgress reports overall operation progress in [0,1].
	EventProgress EventKind = "progress"
	// EventEpoch reports per-round enrollment telemetry. Loss and
	// accuracy pace the UX only; they do not measure model quality.
	EventEpoch EventKind = "epoch"
	// EventCaptureStatus forwards auto-capture status updates.
	EventCaptureStatus EventKind = "captureStatus"
	// EventCompleted reports the terminal outcome of an operation.
	EventCompleted EventKind = "completed"
)

// Event is one entry in the session event stream. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind EventKind

	State    State
	Progress float64

	Epoch    int
	Epochs   int
	Loss     float64
	Accuracy float64

	CaptureStatus capture.Status

	Success    bool
	Profile    *storage.Profile
	Similarity float64
	Err        *OpError
}
