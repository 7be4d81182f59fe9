package face

import (
	"math"
	"testing"
)

func TestBoundingBox_Area(t *testing.T) {
	tests := []struct {
		name string
		box  BoundingBox
		want float64
	}{
		{"quarter frame", BoundingBox{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}, 0.25},
		{"full frame", BoundingBox{Width: 1, Height: 1}, 1},
		{"zero", BoundingBox{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Area(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("area = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestBoundingBox_Center(t *testing.T) {
	box := BoundingBox{X: 0.2, Y: 0.4, Width: 0.4, Height: 0.2}
	c := box.Center()
	if math.Abs(c.X-0.4) > 1e-9 || math.Abs(c.Y-0.5) > 1e-9 {
		t.Errorf("center = (%f, %f), want (0.4, 0.5)", c.X, c.Y)
	}
}

func TestDefaultRequirements(t *testing.T) {
	req := DefaultRequirements()
	if req.MinQualityScore != 0.8 {
		t.Errorf("min quality = %f, want 0.8", req.MinQualityScore)
	}
	if req.MinConfidence != 0.7 {
		t.Errorf("min confidence = %f, want 0.7", req.MinConfidence)
	}
	if !req.RequireCentered {
		t.Error("centering should be required by default")
	}
}
