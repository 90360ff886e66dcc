package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder maps words and character trigrams into hashed buckets.
// It needs no network or model download and is deterministic, at the cost
// of semantic quality: pages sharing vocabulary end up close.
type StaticEmbedder struct {
	mu     sync.RWMutex
	dims   int
	closed bool
}

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// webStopWords are boilerplate words common to most pages.
var webStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "are": true, "was": true, "you": true,
	"your": true, "our": true, "can": true, "will": true, "have": true,
	"home": true, "menu": true, "click": true, "read": true, "more": true,
}

// NewStaticEmbedder creates a static embedder. dims <= 0 selects
// StaticDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed generates the embedding of one text. Blank text yields a zero
// vector, which eligibility checks later exclude.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	vector := make([]float32, e.dims)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vector, nil
	}

	for _, word := range wordRegex.FindAllString(trimmed, -1) {
		word = strings.ToLower(word)
		if len(word) < 2 || webStopWords[word] {
			continue
		}
		vector[hashToIndex(word, e.dims)] += tokenWeight
	}
	for _, ngram := range extractNgrams(normalizeForNgrams(trimmed), ngramSize) {
		vector[hashToIndex(ngram, e.dims)] += ngramWeight
	}

	return normalizeVector(vector), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return ProviderStatic
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// normalizeForNgrams keeps only lowercased letters and digits.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-rune sliding windows.
func extractNgrams(text string, n int) []string {
	runes := []rune(text)
	if len(runes) < n {
		return []string{}
	}

	ngrams := make([]string, 0, len(runes)-n+1)
	for i := 0; i <= len(runes)-n; i++ {
		ngrams = append(ngrams, string(runes[i:i+n]))
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to an index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}
