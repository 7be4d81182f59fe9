// Package face defines detected-face types and the quality validator
// that grades a single detection against capture requirements.
package face

// LandmarkKind identifies a named landmark point-set on a face.
type LandmarkKind string

const (
	LeftEye   LandmarkKind = "left_eye"
	RightEye  LandmarkKind = "right_eye"
	Nose      LandmarkKind = "nose"
	OuterLips LandmarkKind = "outer_lips"
	InnerLips LandmarkKind = "inner_lips"
	Eyebrows  LandmarkKind = "eyebrows"
	Contour   LandmarkKind = "contour"
)

// Point is a 2D point in normalized (0-1) frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is a face area in normalized (0-1) frame coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the fraction of the frame covered by the box.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Center returns the center point of the box.
func (b BoundingBox) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// DetectedFace is one face reported by the detector capability.
// It lives for a single frame and is never persisted.
type DetectedFace struct {
	BoundingBox BoundingBox
	Confidence  float64
	Landmarks   map[LandmarkKind][]Point
}

// Requirements are the thresholds a face must meet for auto-capture.
// They are fixed for the duration of a capture session.
type Requirements struct {
	MinQualityScore float64
	MinConfidence   float64
	RequireCentered bool
}

// DefaultRequirements returns the standard capture requirements.
func DefaultRequirements() Requirements {
	return Requirements{
		MinQualityScore: 0.8,
		MinConfidence:   0.7,
		RequireCentered: true,
	}
}
