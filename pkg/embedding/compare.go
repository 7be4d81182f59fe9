package embedding

import "time"

// DefaultSimilarityThreshold is the cosine similarity at or above
// which two embeddings are considered the same person.
const DefaultSimilarityThreshold = 0.85

// Result holds the outcome of comparing two embeddings.
type Result struct {
	CosineSimilarity  float64
	EuclideanDistance float64
	NormA             float64
	NormB             float64
	ProcessingTime    time.Duration
}

// Compare computes cosine similarity and Euclidean distance between
// two embeddings of equal, non-zero dimension and non-zero norm.
func Compare(a, b Vector) (Result, error) {
	start := time.Now()

	if len(a) == 0 || len(b) == 0 {
		return Result{}, ErrEmptyEmbeddings
	}
	if len(a) != len(b) {
		return Result{}, ErrDimensionMismatch
	}

	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return Result{}, ErrZeroNorm
	}

	return Result{
		CosineSimilarity:  Dot(a, b) / (normA * normB),
		EuclideanDistance: EuclideanDistance(a, b),
		NormA:             normA,
		NormB:             normB,
		ProcessingTime:    time.Since(start),
	}, nil
}

// BestMatch scans candidates linearly and returns the index and result
// of the candidate with maximal cosine similarity to target. Ties
// resolve to the first seen. ok is false when candidates is empty.
func BestMatch(target Vector, candidates []Vector) (int, Result, bool, error) {
	if len(candidates) == 0 {
		return -1, Result{}, false, nil
	}

	bestIdx := -1
	var bestResult Result
	for i, c := range candidates {
		res, err := Compare(target, c)
		if err != nil {
			return -1, Result{}, false, err
		}
		if bestIdx == -1 || res.CosineSimilarity > bestResult.CosineSimilarity {
			bestIdx = i
			bestResult = res
		}
	}

	return bestIdx, bestResult, true, nil
}
