package face

import (
	"math"
	"testing"
)

// goodFace returns a centered, well-sized face with full landmarks.
func goodFace() DetectedFace {
	return DetectedFace{
		BoundingBox: BoundingBox{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5},
		Confidence:  0.9,
		Landmarks:   fullLandmarks(),
	}
}

func fullLandmarks() map[LandmarkKind][]Point {
	eye := make([]Point, 6)
	return map[LandmarkKind][]Point{
		LeftEye:   eye,
		RightEye:  eye,
		Nose:      make([]Point, 4),
		OuterLips: make([]Point, 6),
	}
}

func TestValidate_GoodFace(t *testing.T) {
	v := Validate(goodFace())

	if !v.IsValid {
		t.Errorf("expected valid face, got issues: %v", v.Issues)
	}
	if v.QualityScore != 1.0 {
		t.Errorf("expected quality 1.0, got %f", v.QualityScore)
	}
	if v.FaceSize != 0.25 {
		t.Errorf("expected face size 0.25, got %f", v.FaceSize)
	}
	if v.CenterOffset > 1e-9 {
		t.Errorf("expected zero center offset, got %f", v.CenterOffset)
	}
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*DetectedFace)
		wantScore float64
	}{
		{
			name: "face too small",
			mutate: func(f *DetectedFace) {
				f.BoundingBox = BoundingBox{X: 0.45, Y: 0.45, Width: 0.1, Height: 0.1}
			},
			wantScore: 0.5,
		},
		{
			name: "face too large",
			mutate: func(f *DetectedFace) {
				f.BoundingBox = BoundingBox{X: 0.02, Y: 0.02, Width: 0.95, Height: 0.95}
			},
			wantScore: 0.7,
		},
		{
			name:      "low confidence",
			mutate:    func(f *DetectedFace) { f.Confidence = 0.5 },
			wantScore: 0.6,
		},
		{
			name: "off center",
			mutate: func(f *DetectedFace) {
				f.BoundingBox = BoundingBox{X: 0.0, Y: 0.0, Width: 0.5, Height: 0.5}
			},
			wantScore: 0.8,
		},
		{
			name: "no eye landmarks",
			mutate: func(f *DetectedFace) {
				delete(f.Landmarks, LeftEye)
				delete(f.Landmarks, RightEye)
			},
			wantScore: 0.7 * 0.8,
		},
		{
			name: "sparse eye landmarks",
			mutate: func(f *DetectedFace) {
				f.Landmarks[LeftEye] = make([]Point, 3)
			},
			wantScore: 0.8,
		},
		{
			name:      "missing nose",
			mutate:    func(f *DetectedFace) { delete(f.Landmarks, Nose) },
			wantScore: 0.8,
		},
		{
			name:      "missing outer lips",
			mutate:    func(f *DetectedFace) { delete(f.Landmarks, OuterLips) },
			wantScore: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := goodFace()
			f.Landmarks = fullLandmarks()
			tt.mutate(&f)

			v := Validate(f)
			if math.Abs(v.QualityScore-tt.wantScore) > 1e-9 {
				t.Errorf("quality = %f, want %f", v.QualityScore, tt.wantScore)
			}
			if len(v.Issues) == 0 {
				t.Error("expected at least one issue")
			}
			if v.IsValid {
				t.Error("face with issues must not be valid")
			}
		})
	}
}

func TestValidate_ScoreMonotonicNonIncreasing(t *testing.T) {
	base := Validate(goodFace()).QualityScore

	mutations := []func(*DetectedFace){
		func(f *DetectedFace) { f.BoundingBox.Width = 0.1; f.BoundingBox.Height = 0.1 },
		func(f *DetectedFace) { f.Confidence = 0.3 },
		func(f *DetectedFace) { f.BoundingBox.X = 0.0; f.BoundingBox.Y = 0.0 },
		func(f *DetectedFace) { delete(f.Landmarks, Nose) },
		func(f *DetectedFace) { delete(f.Landmarks, LeftEye); delete(f.Landmarks, RightEye) },
	}

	for i, mutate := range mutations {
		f := goodFace()
		f.Landmarks = fullLandmarks()
		mutate(&f)
		if got := Validate(f).QualityScore; got > base {
			t.Errorf("mutation %d increased score: %f > %f", i, got, base)
		}
	}
}

func TestValidate_CompoundIssues(t *testing.T) {
	f := goodFace()
	f.BoundingBox = BoundingBox{X: 0.0, Y: 0.0, Width: 0.1, Height: 0.1}
	f.Confidence = 0.2

	v := Validate(f)

	// small, low confidence, and off-center all multiply in.
	want := 0.5 * 0.6 * 0.8
	if math.Abs(v.QualityScore-want) > 1e-9 {
		t.Errorf("quality = %f, want %f", v.QualityScore, want)
	}
	if len(v.Issues) != 3 {
		t.Errorf("expected 3 issues, got %d: %v", len(v.Issues), v.Issues)
	}
}

func TestBestFace(t *testing.T) {
	weak := goodFace()
	weak.Confidence = 0.4

	strong := goodFace()

	best, val, ok := BestFace([]DetectedFace{weak, strong})
	if !ok {
		t.Fatal("expected a best face")
	}
	if best.Confidence != strong.Confidence {
		t.Errorf("picked wrong face (confidence %f)", best.Confidence)
	}
	if !val.IsValid {
		t.Error("best face should be valid")
	}
}

func TestBestFace_Empty(t *testing.T) {
	_, _, ok := BestFace(nil)
	if ok {
		t.Error("expected ok=false for empty input")
	}
}

func TestBestFace_TieKeepsFirst(t *testing.T) {
	a := goodFace()
	b := goodFace()
	b.BoundingBox.X = 0.26 // same score, different face

	best, _, ok := BestFace([]DetectedFace{a, b})
	if !ok {
		t.Fatal("expected a best face")
	}
	if best.BoundingBox.X != a.BoundingBox.X {
		t.Error("tie should resolve to first-seen face")
	}
}

func BenchmarkValidate(b *testing.B) {
	f := goodFace()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Validate(f)
	}
}
