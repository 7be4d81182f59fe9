package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/facegate/facegate/pkg/logging"
)

// MinSamples is the minimum number of validated sample images an
// enrollment needs before a master embedding can be built.
const MinSamples = 3

// ErrInsufficientData is returned when fewer than MinSamples valid
// sample images are provided.
var ErrInsufficientData = errors.New("insufficient valid samples for enrollment")

// PacingMode selects how many progress rounds enrollment reports.
// The math performed is identical regardless of mode; rounds exist
// purely for progress-reporting cadence.
type PacingMode string

const (
	PacingFast     PacingMode = "fast"
	PacingStandard PacingMode = "standard"
	PacingDeep     PacingMode = "deep"
)

// Rounds returns the number of reporting rounds for the mode.
func (m PacingMode) Rounds() int {
	switch m {
	case PacingFast:
		return 3
	case PacingDeep:
		return 15
	default:
		return 8
	}
}

// Progress is one aggregation progress report. Loss and Accuracy are
// illustrative pacing telemetry: the stored vector comes solely from
// the closed-form average, and these numbers say nothing about real
// discriminative power.
type Progress struct {
	Sample   int
	Samples  int
	Epoch    int
	Epochs   int
	Loss     float64
	Accuracy float64
	Fraction float64
}

// ProgressFunc receives aggregation progress reports.
type ProgressFunc func(Progress)

// Aggregator folds validated sample images into one master embedding.
type Aggregator struct {
	extractor *Extractor
}

// NewAggregator creates an Aggregator over the given extractor.
func NewAggregator(extractor *Extractor) *Aggregator {
	return &Aggregator{extractor: extractor}
}

// Aggregate extracts one embedding per image, averages them
// elementwise, and L2-normalizes the mean into the master embedding.
// All samples must come from the same extractor model; a dimension
// mismatch is fatal. progress may be nil.
func (a *Aggregator) Aggregate(ctx context.Context, images [][]byte, mode PacingMode, progress ProgressFunc) (Vector, error) {
	if len(images) < MinSamples {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientData, len(images), MinSamples)
	}

	epochs := mode.Rounds()
	vectors := make([]Vector, 0, len(images))

	for i, img := range images {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vec, err := a.extractor.Extract(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if len(vectors) > 0 && len(vec) != len(vectors[0]) {
			return nil, fmt.Errorf("sample %d: %w: got %d, want %d",
				i, ErrDimensionMismatch, len(vec), len(vectors[0]))
		}
		vectors = append(vectors, vec)

		if progress != nil {
			progress(Progress{
				Sample:   i + 1,
				Samples:  len(images),
				Epochs:   epochs,
				Fraction: float64(i+1) / float64(len(images)) * 0.5,
			})
		}
	}

	master, err := Average(vectors)
	if err != nil {
		return nil, err
	}

	// Pacing rounds: the average above is already final, these reports
	// only spread completion over the configured cadence.
	for epoch := 1; epoch <= epochs; epoch++ {
		if progress != nil {
			progress(Progress{
				Sample:   len(images),
				Samples:  len(images),
				Epoch:    epoch,
				Epochs:   epochs,
				Loss:     syntheticLoss(epoch),
				Accuracy: syntheticAccuracy(epoch, epochs),
				Fraction: 0.5 + float64(epoch)/float64(epochs)*0.5,
			})
		}
	}

	logging.Infof("Aggregated %d samples into %d-dimensional master embedding",
		len(vectors), len(master))
	return master, nil
}

// syntheticLoss produces a decaying loss curve for progress pacing.
func syntheticLoss(epoch int) float64 {
	return 0.65*math.Pow(0.72, float64(epoch)) + 0.03
}

// syntheticAccuracy produces a rising accuracy curve for progress pacing.
func syntheticAccuracy(epoch, epochs int) float64 {
	return 0.97 - 0.45*math.Pow(0.7, float64(epoch))*float64(epochs-epoch+1)/float64(epochs)
}
