package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

// Ollama API constants
const (
	// DefaultOllamaHost is the default Ollama API endpoint
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is a general-purpose text embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultBatchSize is the number of texts sent per request.
	DefaultBatchSize = 32

	// DefaultOllamaTimeout bounds one request.
	DefaultOllamaTimeout = 120 * time.Second

	// OllamaPoolSize for connection pool
	OllamaPoolSize = 4
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host  string
	Model string
	// Dimensions overrides detection from the first response (0 = detect).
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	Retry      lmerrors.RetryConfig
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:      DefaultOllamaHost,
		Model:     DefaultOllamaModel,
		BatchSize: DefaultBatchSize,
		Timeout:   DefaultOllamaTimeout,
		Retry:     lmerrors.DefaultRetryConfig(),
	}
}

// ollamaEmbedRequest is the Ollama /api/embed request.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the Ollama /api/embed response.
type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder calls a local Ollama server's /api/embed endpoint.
type OllamaEmbedder struct {
	config OllamaConfig
	client *http.Client

	mu     sync.RWMutex
	dims   int
	closed bool
}

// NewOllamaEmbedder creates an embedder for cfg. No request is made until
// the first Embed call.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	defaults := DefaultOllamaConfig()
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = defaults.Retry
	}

	// No http.Client.Timeout: per-request contexts carry the deadline.
	transport := &http.Transport{
		MaxIdleConns:        OllamaPoolSize,
		MaxIdleConnsPerHost: OllamaPoolSize,
		IdleConnTimeout:     90 * time.Second,
	}
	return &OllamaEmbedder{
		config: cfg,
		client: &http.Client{Transport: transport},
		dims:   cfg.Dimensions,
	}
}

// Embed generates the embedding of one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in requests of at most BatchSize, retrying
// network failures with exponential backoff.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		batch := texts[start:min(start+e.config.BatchSize, len(texts))]

		vecs, err := lmerrors.RetryWithResult(ctx, e.config.Retry, func() ([][]float32, error) {
			return e.doEmbed(ctx, batch)
		})
		if err != nil {
			return nil, err
		}
		results = append(results, vecs...)

		slog.Debug("embedding_batch_done",
			slog.Int("batch_start", start),
			slog.Int("batch_size", len(batch)),
			slog.String("model", e.config.Model))
	}
	return results, nil
}

// doEmbed performs one request. Transport failures and 5xx responses come
// back as retryable network errors.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, lmerrors.New(lmerrors.ErrCodeNetworkUnavailable, "ollama request failed", err).
			WithSuggestion("Check that Ollama is running: ollama serve")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("embedding failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode >= 500 {
			return nil, lmerrors.NetworkError(msg, nil)
		}
		return nil, lmerrors.New(lmerrors.ErrCodeEmbeddingFailed, msg, nil).
			WithSuggestion(fmt.Sprintf("Pull the model first: ollama pull %s", e.config.Model))
	}

	var apiResult ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
		return nil, lmerrors.New(lmerrors.ErrCodeEmbeddingFailed, "failed to decode response", err)
	}
	if len(apiResult.Embeddings) != len(texts) {
		return nil, lmerrors.New(lmerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(apiResult.Embeddings)), nil)
	}

	embeddings := make([][]float32, len(apiResult.Embeddings))
	for i, emb := range apiResult.Embeddings {
		v := make([]float32, len(emb))
		for j, x := range emb {
			v[j] = float32(x)
		}
		embeddings[i] = normalizeVector(v)
	}

	e.mu.Lock()
	if e.dims == 0 && len(embeddings) > 0 {
		e.dims = len(embeddings[0])
	}
	e.mu.Unlock()

	return embeddings, nil
}

// Dimensions returns the configured or detected dimension (0 before the
// first response when not configured).
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		e.client.CloseIdleConnections()
	}
	return nil
}
