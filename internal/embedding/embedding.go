package embedding

import (
	"context"
	"math"
)

// Provider is a semantic-similarity backend. Any service able to turn
// text into a vector can plug in; the matching engine treats it as a
// black box and works without one.
type Provider interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Cosine returns the cosine similarity of two vectors, 0 for
// mismatched or zero-length input.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Noop is the default provider: no vectors, so semantic scoring is
// skipped and keyword matching decides alone.
type Noop struct{}

func (Noop) Encode(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

var _ Provider = Noop{}
