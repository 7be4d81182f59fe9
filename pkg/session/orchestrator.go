// Package session coordinates enrollment and verification: it owns the
// top-level state machine, sequences capture, extraction, aggregation,
// comparison and storage, and publishes its transitions on an event
// stream.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facegate/facegate/pkg/capture"
	"github.com/facegate/facegate/pkg/embedding"
	"github.com/facegate/facegate/pkg/face"
	"github.com/facegate/facegate/pkg/logging"
	"github.com/facegate/facegate/pkg/storage"
)

// State is a session state machine state.
type State string

const (
	StateIdle           State = "idle"
	StateInitializing   State = "initializing"
	StateCameraReady    State = "cameraReady"
	StateRegistering    State = "registering"
	StateAuthenticating State = "authenticating"
	StateProcessing     State = "processing"
	StateSuccess        State = "success"
	StateFailed         State = "failed"
	StateCancelled      State = "cancelled"
)

// OperationKind distinguishes the two operation variants.
type OperationKind string

const (
	OpRegistration   OperationKind = "registration"
	OpAuthentication OperationKind = "authentication"
)

// Operation is the currently running enrollment or verification. It
// exists only for the duration of one capture+processing cycle.
type Operation struct {
	ID          string
	Kind        OperationKind
	UserID      string
	DisplayName string
	StartedAt   time.Time
}

// Metrics is the per-operation counter set, reset when an operation
// starts and read via the Metrics accessor.
type Metrics struct {
	FramesSubmitted  int
	SamplesCollected int
	StartedAt        time.Time
}

// Options configures the orchestrator.
type Options struct {
	Requirements        face.Requirements
	MaxTrainingSamples  int
	PacingMode          embedding.PacingMode
	SimilarityThreshold float64
	SessionTimeout      time.Duration
	RevertDelay         time.Duration
	CancelDelay         time.Duration
}

// DefaultOptions returns the standard orchestrator settings.
func DefaultOptions() Options {
	return Options{
		Requirements:        face.DefaultRequirements(),
		MaxTrainingSamples:  50,
		PacingMode:          embedding.PacingStandard,
		SimilarityThreshold: embedding.DefaultSimilarityThreshold,
		SessionTimeout:      60 * time.Second,
		RevertDelay:         2 * time.Second,
		CancelDelay:         500 * time.Millisecond,
	}
}

// Orchestrator owns the capture controller, extractor, aggregator and
// store outright; subsystems emit events rather than holding a
// back-reference to it.
type Orchestrator struct {
	controller *capture.Controller
	extractor  *embedding.Extractor
	aggregator *embedding.Aggregator
	store      *storage.EmbeddingStore
	opts       Options
	events     chan Event

	mu       sync.Mutex
	state    State
	op       *Operation
	samples  [][]byte
	metrics  Metrics
	opCtx    context.Context
	opCancel context.CancelFunc
}

// New creates an Orchestrator over the given subsystems.
func New(controller *capture.Controller, extractor *embedding.Extractor, store *storage.EmbeddingStore, opts Options) *Orchestrator {
	if opts.MaxTrainingSamples <= 0 {
		opts.MaxTrainingSamples = 50
	}
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = embedding.DefaultSimilarityThreshold
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 60 * time.Second
	}
	if opts.RevertDelay <= 0 {
		opts.RevertDelay = 2 * time.Second
	}
	if opts.CancelDelay <= 0 {
		opts.CancelDelay = 500 * time.Millisecond
	}
	if opts.PacingMode == "" {
		opts.PacingMode = embedding.PacingStandard
	}
	return &Orchestrator{
		controller: controller,
		extractor:  extractor,
		aggregator: embedding.NewAggregator(extractor),
		store:      store,
		opts:       opts,
		events:     make(chan Event, 64),
		state:      StateIdle,
	}
}

// Events returns the session event stream. Delivery is best-effort: a
// slow subscriber loses events rather than stalling the session.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Metrics returns a copy of the per-operation counters.
func (o *Orchestrator) Metrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.metrics
}

// Initialize brings the session to cameraReady and starts consuming
// capture events. It must be called once before any operation.
func (o *Orchestrator) Initialize() error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return NewOpError(ErrCodeBusy, false)
	}
	if o.controller == nil || o.extractor == nil || o.store == nil {
		o.mu.Unlock()
		return NewOpError(ErrCodeConfig, false)
	}
	o.setStateLocked(StateInitializing)
	o.setStateLocked(StateCameraReady)
	o.mu.Unlock()

	go o.pumpCaptureEvents()
	return nil
}

// RegisterUser starts an enrollment operation for userID. Captured
// frames accumulate until MaxTrainingSamples, then are aggregated into
// the master embedding and persisted.
func (o *Orchestrator) RegisterUser(userID, displayName string) error {
	return o.startOperation(&Operation{
		ID:          uuid.NewString(),
		Kind:        OpRegistration,
		UserID:      userID,
		DisplayName: displayName,
		StartedAt:   time.Now(),
	})
}

// AuthenticateUser starts a verification operation for userID. A user
// that is not registered fails immediately, before any capture or
// comparison work.
func (o *Orchestrator) AuthenticateUser(userID string) error {
	if !o.store.Exists(userID) {
		o.mu.Lock()
		if o.op != nil {
			o.mu.Unlock()
			return NewOpError(ErrCodeBusy, false)
		}
		o.setStateLocked(StateFailed)
		opErr := NewOpError(ErrCodeNotRegistered, false)
		o.emitLocked(Event{Kind: EventCompleted, Success: false, Err: opErr})
		o.scheduleRevertLocked(o.opts.RevertDelay)
		o.mu.Unlock()
		return opErr
	}

	return o.startOperation(&Operation{
		ID:        uuid.NewString(),
		Kind:      OpAuthentication,
		UserID:    userID,
		StartedAt: time.Now(),
	})
}

// startOperation admits a new operation if none is active.
func (o *Orchestrator) startOperation(op *Operation) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.op != nil {
		return NewOpError(ErrCodeBusy, false)
	}
	switch o.state {
	case StateCameraReady, StateSuccess, StateFailed, StateCancelled:
	default:
		return NewOpError(ErrCodeBusy, false)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.opts.SessionTimeout)
	o.op = op
	o.opCtx = ctx
	o.opCancel = cancel
	o.samples = nil
	o.metrics = Metrics{StartedAt: op.StartedAt}

	if op.Kind == OpRegistration {
		o.setStateLocked(StateRegistering)
	} else {
		o.setStateLocked(StateAuthenticating)
	}

	o.controller.Start(o.opts.Requirements)
	go o.watchTimeout(ctx, op.ID)

	logging.Infof("Started %s for user %s (op=%s)", op.Kind, op.UserID, op.ID)
	return nil
}

// Cancel cooperatively stops the current operation: frame admission
// stops, buffered frames and the operation are discarded, and the
// session returns to cameraReady after a short grace delay. An
// in-flight extraction is left to finish and its result is ignored.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.op == nil {
		return
	}
	logging.Infof("Cancelling %s (op=%s)", o.op.Kind, o.op.ID)

	o.controller.Stop()
	o.op = nil
	o.samples = nil
	if o.opCancel != nil {
		o.opCancel()
		o.opCancel = nil
	}

	o.setStateLocked(StateCancelled)
	o.emitLocked(Event{Kind: EventCompleted, Success: false, Err: NewOpError(ErrCodeCancelled, false)})
	o.scheduleRevertLocked(o.opts.CancelDelay)
}

// SubmitFrame offers a camera frame to the capture pipeline.
func (o *Orchestrator) SubmitFrame(frame capture.Frame) error {
	o.mu.Lock()
	o.metrics.FramesSubmitted++
	o.mu.Unlock()
	return o.controller.Submit(frame)
}

// IsUserRegistered reports whether a profile exists for userID.
func (o *Orchestrator) IsUserRegistered(userID string) bool {
	return o.store.Exists(userID)
}

// ListUsers returns all enrolled user IDs.
func (o *Orchestrator) ListUsers() ([]string, error) {
	return o.store.ListUsers()
}

// GetProfile returns the stored record for userID without decrypting.
func (o *Orchestrator) GetProfile(userID string) (*storage.Profile, error) {
	return o.store.GetProfile(userID)
}

// VerifyIntegrity reports whether the stored embedding decrypts cleanly.
func (o *Orchestrator) VerifyIntegrity(userID string) (bool, error) {
	return o.store.VerifyIntegrity(userID)
}

// DeleteUser removes the stored profile for userID.
func (o *Orchestrator) DeleteUser(userID string) error {
	return o.store.Delete(userID)
}

// pumpCaptureEvents forwards capture events and drives sample
// collection. It is the single consumer of the controller stream.
func (o *Orchestrator) pumpCaptureEvents() {
	for ev := range o.controller.Events() {
		o.handleCaptureEvent(ev)
	}
}

func (o *Orchestrator) handleCaptureEvent(ev capture.Event) {
	o.mu.Lock()

	if ev.Status != capture.StatusCaptured {
		o.emitLocked(Event{Kind: EventCaptureStatus, CaptureStatus: ev.Status, Progress: ev.Progress})
		o.mu.Unlock()
		return
	}

	op := o.op
	if op == nil || ev.Frame == nil {
		o.mu.Unlock()
		return
	}

	switch op.Kind {
	case OpRegistration:
		o.samples = append(o.samples, ev.Frame.Data)
		o.metrics.SamplesCollected++
		collected := len(o.samples)
		o.emitLocked(Event{
			Kind:     EventProgress,
			Progress: float64(collected) / float64(o.opts.MaxTrainingSamples) * 0.5,
		})
		if collected < o.opts.MaxTrainingSamples {
			o.mu.Unlock()
			return
		}
		samples := o.samples
		o.samples = nil
		o.controller.Stop()
		o.setStateLocked(StateProcessing)
		o.mu.Unlock()
		go o.finishRegistration(op, samples)

	case OpAuthentication:
		frame := ev.Frame.Clone()
		o.controller.Stop()
		o.setStateLocked(StateProcessing)
		o.mu.Unlock()
		go o.finishAuthentication(op, frame)

	default:
		o.mu.Unlock()
	}
}

// finishRegistration aggregates collected samples and persists the
// master embedding.
func (o *Orchestrator) finishRegistration(op *Operation, samples [][]byte) {
	ctx := o.operationContext(op.ID)

	master, err := o.aggregator.Aggregate(ctx, samples, o.opts.PacingMode, func(p embedding.Progress) {
		ev := Event{Kind: EventProgress, Progress: 0.5 + p.Fraction*0.5}
		o.emit(ev)
		if p.Epoch > 0 {
			o.emit(Event{
				Kind:     EventEpoch,
				Epoch:    p.Epoch,
				Epochs:   p.Epochs,
				Loss:     p.Loss,
				Accuracy: p.Accuracy,
			})
		}
	})
	if err != nil {
		o.completeOperation(op, false, nil, 0, classify(err))
		return
	}

	profile, err := o.store.Save(op.UserID, op.DisplayName, master)
	if err != nil {
		o.completeOperation(op, false, nil, 0, classify(err))
		return
	}

	o.completeOperation(op, true, profile, 0, nil)
}

// finishAuthentication compares one captured frame against the stored
// master embedding. The stored plaintext vector exists only inside
// this call path.
func (o *Orchestrator) finishAuthentication(op *Operation, frame capture.Frame) {
	ctx := o.operationContext(op.ID)

	probe, err := o.extractor.Extract(ctx, frame.Data)
	if err != nil {
		o.completeOperation(op, false, nil, 0, classify(err))
		return
	}

	stored, err := o.store.Load(op.UserID)
	if err != nil {
		o.completeOperation(op, false, nil, 0, classify(err))
		return
	}

	result, err := embedding.Compare(probe, stored)
	if err != nil {
		o.completeOperation(op, false, nil, 0, classify(err))
		return
	}

	profile, _ := o.store.GetProfile(op.UserID)
	if result.CosineSimilarity >= o.opts.SimilarityThreshold {
		logging.Infof("Authentication succeeded for %s (similarity=%.4f)", op.UserID, result.CosineSimilarity)
		o.completeOperation(op, true, profile, result.CosineSimilarity, nil)
		return
	}

	// Below threshold is a normal outcome, not a system fault.
	logging.Infof("Authentication did not match for %s (similarity=%.4f, threshold=%.4f)",
		op.UserID, result.CosineSimilarity, o.opts.SimilarityThreshold)
	o.completeOperation(op, false, profile, result.CosineSimilarity, NewOpError(ErrCodeNotMatched, true))
}

// completeOperation moves the session to its terminal state, emits the
// completion event, and schedules the revert to cameraReady.
func (o *Orchestrator) completeOperation(op *Operation, success bool, profile *storage.Profile, similarity float64, opErr *OpError) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.op == nil || o.op.ID != op.ID {
		// Operation was cancelled or superseded while processing.
		return
	}

	o.controller.Stop()
	o.op = nil
	o.samples = nil
	if o.opCancel != nil {
		o.opCancel()
		o.opCancel = nil
	}

	if success {
		o.setStateLocked(StateSuccess)
	} else {
		o.setStateLocked(StateFailed)
	}
	o.emitLocked(Event{
		Kind:       EventCompleted,
		Success:    success,
		Profile:    profile,
		Similarity: similarity,
		Err:        opErr,
	})
	o.scheduleRevertLocked(o.opts.RevertDelay)
}

// watchTimeout fails the operation when its session budget expires.
func (o *Orchestrator) watchTimeout(ctx context.Context, opID string) {
	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		return
	}

	o.mu.Lock()
	active := o.op != nil && o.op.ID == opID
	var op *Operation
	if active {
		op = o.op
	}
	o.mu.Unlock()

	if active {
		logging.Warnf("Operation %s timed out after %s", opID, o.opts.SessionTimeout)
		o.completeOperation(op, false, nil, 0, NewOpError(ErrCodeTimeout, true))
	}
}

// operationContext returns the active operation's budget context, or
// an already-cancelled context if the operation is gone.
func (o *Orchestrator) operationContext(opID string) context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.op != nil && o.op.ID == opID {
		return o.opCtx
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// scheduleRevertLocked arms the delayed return to cameraReady. The
// revert is skipped if a new operation starts first.
func (o *Orchestrator) scheduleRevertLocked(delay time.Duration) {
	state := o.state
	time.AfterFunc(delay, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.op == nil && o.state == state {
			o.setStateLocked(StateCameraReady)
		}
	})
}

// setStateLocked transitions the state machine and emits the change.
// Caller holds o.mu.
func (o *Orchestrator) setStateLocked(s State) {
	if o.state == s {
		return
	}
	logging.Debugf("session state %s -> %s", o.state, s)
	o.state = s
	o.emitLocked(Event{Kind: EventStateChanged, State: s})
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}

func (o *Orchestrator) emitLocked(ev Event) {
	o.emit(ev)
}
