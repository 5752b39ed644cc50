package vector

import (
	"fmt"
	"math"
)

// CheckDimensions returns ErrDimensionMismatch when v does not have exactly
// want components.
func CheckDimensions(v []float32, want uint) error {
	if uint(len(v)) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), want)
	}
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero vectors and vectors of different lengths have a similarity of 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
