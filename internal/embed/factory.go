package embed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

// Config selects and tunes an embedding provider.
type Config struct {
	// Provider is "static", "hash" (or "hashN") or "ollama".
	Provider string
	// Model is the Ollama model, or a "hashN" name for the hash provider.
	Model string
	// Dimensions overrides the provider's default dimension.
	Dimensions int
	OllamaHost string
	Timeout    time.Duration
	// CacheSize wraps the provider in an LRU cache; 0 disables caching.
	CacheSize int
}

// NewFromConfig builds the embedder cfg describes. Unknown providers are
// an error; nothing falls back silently.
func NewFromConfig(cfg Config) (Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var embedder Embedder
	switch {
	case provider == ProviderStatic:
		embedder = NewStaticEmbedder(cfg.Dimensions)

	case strings.HasPrefix(provider, ProviderHash):
		dims, err := hashDimensions(provider, cfg)
		if err != nil {
			return nil, err
		}
		embedder = NewHashEmbedder(dims)

	case provider == ProviderOllama:
		embedder = NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})

	default:
		return nil, lmerrors.ConfigError(fmt.Sprintf("unknown embeddings provider %q", cfg.Provider), nil).
			WithSuggestion("Use one of: static, hash, hash64, ollama")
	}

	slog.Debug("embedder_created",
		slog.String("provider", provider),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()),
		slog.Int("cache_size", cfg.CacheSize))

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(embedder, cfg.CacheSize), nil
	}
	return embedder, nil
}

// hashDimensions resolves the hash embedder's dimension: an explicit
// Dimensions wins, then a "hashN" provider or model name, then the default.
func hashDimensions(provider string, cfg Config) (int, error) {
	if cfg.Dimensions > 0 {
		return cfg.Dimensions, nil
	}
	for _, name := range []string{provider, cfg.Model} {
		if !strings.HasPrefix(strings.ToLower(name), ProviderHash) {
			continue
		}
		dims, ok, err := ParseHashModel(name)
		if err != nil {
			return 0, lmerrors.ConfigError(err.Error(), err)
		}
		if ok {
			return dims, nil
		}
	}
	return HashDimensions, nil
}
