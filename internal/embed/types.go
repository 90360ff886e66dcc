// Package embed turns page text into fixed-length vectors. Providers are
// chosen explicitly through NewFromConfig; nothing here holds global state.
package embed

import (
	"context"
	"math"
)

// Provider names.
const (
	ProviderStatic = "static"
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
)

// Dimension defaults.
const (
	// StaticDimensions is the embedding dimension for the static embedder.
	StaticDimensions = 256

	// HashDimensions is the default dimension of the hash embedder.
	HashDimensions = 64
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding of one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector scales v to unit length in place and returns it.
// A zero vector is returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
	return v
}

// embedEach runs embed over texts in order, stopping at the first error.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
