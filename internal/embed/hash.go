package embed

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// HashEmbedder derives a pseudo-random unit vector from each text: the
// first four bytes of the text's MD5 digest seed a normal draw. Equal
// texts always get equal vectors; different texts are close to
// orthogonal. It is meant for development and tests, not for meaning.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder. dims <= 0 selects
// HashDimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = HashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed generates the embedding of one text.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint32(sum[:4]))
	rng := rand.New(rand.NewSource(seed))

	v := make([]float32, e.dims)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return normalizeVector(v), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns "hash" followed by the dimension, e.g. "hash64".
func (e *HashEmbedder) ModelName() string {
	return ProviderHash + strconv.Itoa(e.dims)
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}

// ParseHashModel reads the dimension from a "hashN" name. A bare "hash"
// returns 0, false.
func ParseHashModel(name string) (int, bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, ProviderHash) {
		return 0, false, fmt.Errorf("not a hash model: %q", name)
	}
	suffix := strings.TrimPrefix(name, ProviderHash)
	if suffix == "" {
		return 0, false, nil
	}
	dims, err := strconv.Atoi(suffix)
	if err != nil || dims <= 0 {
		return 0, false, fmt.Errorf("invalid hash model dimension %q", suffix)
	}
	return dims, true, nil
}
