package face

import "math"

// Validation thresholds. Face area is a fraction of the frame,
// center offset is Euclidean distance in normalized coordinates.
const (
	MinFaceSize     = 0.15
	MaxFaceSize     = 0.8
	MinConfidence   = 0.7
	MaxCenterOffset = 0.3

	// MinQualityScore is the score a face must reach to be valid.
	MinQualityScore = 0.8

	// MinEyePoints is the minimum landmark points per eye for a
	// usable eye contour.
	MinEyePoints = 6
)

// Validation is the graded result of checking one detected face.
type Validation struct {
	IsValid      bool
	QualityScore float64
	Issues       []string
	CenterOffset float64
	FaceSize     float64
}

// Validate grades one detected face against the fixed thresholds.
// It is a pure function: missing landmarks degrade the score and add
// an issue, they never produce an error.
func Validate(f DetectedFace) Validation {
	v := Validation{
		QualityScore: 1.0,
		FaceSize:     f.BoundingBox.Area(),
	}

	if v.FaceSize < MinFaceSize {
		v.QualityScore *= 0.5
		v.Issues = append(v.Issues, "face too small")
	} else if v.FaceSize > MaxFaceSize {
		v.QualityScore *= 0.7
		v.Issues = append(v.Issues, "face too large")
	}

	if f.Confidence < MinConfidence {
		v.QualityScore *= 0.6
		v.Issues = append(v.Issues, "low detection confidence")
	}

	center := f.BoundingBox.Center()
	v.CenterOffset = math.Hypot(center.X-0.5, center.Y-0.5)
	if v.CenterOffset > MaxCenterOffset {
		v.QualityScore *= 0.8
		v.Issues = append(v.Issues, "face not centered")
	}

	v.QualityScore *= landmarkFactor(f, &v.Issues)

	v.IsValid = len(v.Issues) == 0 && v.QualityScore >= MinQualityScore
	return v
}

// landmarkFactor scores the completeness of the landmark point-sets.
func landmarkFactor(f DetectedFace, issues *[]string) float64 {
	factor := 1.0

	leftEye := f.Landmarks[LeftEye]
	rightEye := f.Landmarks[RightEye]

	if len(leftEye) == 0 && len(rightEye) == 0 {
		factor *= 0.7
		*issues = append(*issues, "eye landmarks missing")
	}
	if len(leftEye) < MinEyePoints || len(rightEye) < MinEyePoints {
		factor *= 0.8
		if len(leftEye) > 0 || len(rightEye) > 0 {
			*issues = append(*issues, "incomplete eye landmarks")
		}
	}

	if len(f.Landmarks[Nose]) == 0 {
		factor *= 0.8
		*issues = append(*issues, "nose landmarks missing")
	}

	if len(f.Landmarks[OuterLips]) == 0 {
		factor *= 0.8
		*issues = append(*issues, "lip landmarks missing")
	}

	return factor
}

// BestFace returns the highest-scoring face and its validation.
// Ties resolve to the first seen. ok is false for an empty slice.
func BestFace(faces []DetectedFace) (DetectedFace, Validation, bool) {
	if len(faces) == 0 {
		return DetectedFace{}, Validation{}, false
	}

	best := faces[0]
	bestVal := Validate(faces[0])
	for _, f := range faces[1:] {
		val := Validate(f)
		if val.QualityScore > bestVal.QualityScore {
			best = f
			bestVal = val
		}
	}
	return best, bestVal, true
}
