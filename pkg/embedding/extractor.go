package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/facegate/facegate/pkg/logging"
)

// MinImageDimension is the minimum width and height, in pixels, an
// image must have before it is handed to the inference capability.
const MinImageDimension = 224

// ErrInvalidImage is returned for undecodable or undersized images.
var ErrInvalidImage = errors.New("invalid image")

// Inferencer is the external embedding-inference capability: one image
// in, one fixed-length vector out. Implementations may block.
type Inferencer interface {
	Infer(ctx context.Context, img []byte) (Vector, error)
}

// Extractor wraps the inference capability with image pre-checks and
// batch extraction. Calls are single-flight: no two inference calls
// run concurrently against the same Extractor.
type Extractor struct {
	inferencer Inferencer
	mu         sync.Mutex
}

// NewExtractor creates an Extractor over the given capability.
func NewExtractor(inf Inferencer) *Extractor {
	return &Extractor{inferencer: inf}
}

// Extract validates the image and returns its embedding. Images that
// fail to decode or fall below 224x224 are rejected with ErrInvalidImage.
func (e *Extractor) Extract(ctx context.Context, img []byte) (Vector, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width < MinImageDimension || cfg.Height < MinImageDimension {
		return nil, fmt.Errorf("%w: %dx%d below minimum %dx%d",
			ErrInvalidImage, cfg.Width, cfg.Height, MinImageDimension, MinImageDimension)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vec, err := e.inferencer.Infer(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	logging.Debugf("Extracted %d-dimensional embedding from %dx%d image",
		len(vec), cfg.Width, cfg.Height)
	return vec, nil
}

// ExtractBatch processes images sequentially, failing fast on the
// first error and reporting which index failed.
func (e *Extractor) ExtractBatch(ctx context.Context, images [][]byte) ([]Vector, error) {
	vectors := make([]Vector, 0, len(images))
	for i, img := range images {
		vec, err := e.Extract(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
