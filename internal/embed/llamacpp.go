package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

// LlamaCppConfig configures a llama.cpp server embedder.
type LlamaCppConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	PoolSize   int
}

// LlamaCppEmbedder calls a llama.cpp server's /embedding endpoint.
//
// The endpoint embeds one prompt per call; BatchSize throttles how many
// requests this client issues before moving to the next chunk rather than
// controlling a server-side batch.
type LlamaCppEmbedder struct {
	client *http.Client
	cfg    LlamaCppConfig

	mu          sync.RWMutex
	initialized bool
	disposed    bool
}

var _ Embedder = (*LlamaCppEmbedder)(nil)

// NewLlamaCppEmbedder constructs an uninitialized llama.cpp embedder.
func NewLlamaCppEmbedder(cfg LlamaCppConfig) *LlamaCppEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	return &LlamaCppEmbedder{client: newPooledClient(cfg.PoolSize), cfg: cfg}
}

// Initialize verifies the llama.cpp server is reachable.
func (e *LlamaCppEmbedder) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return zerrors.New(zerrors.Embedding, "embedder already disposed", nil)
	}
	if !e.healthCheckLocked(ctx) {
		return zerrors.New(zerrors.Embedding, fmt.Sprintf("llama.cpp server not reachable at %s", e.cfg.BaseURL), nil)
	}
	e.initialized = true
	return nil
}

type llamaCppEmbedRequest struct {
	Content string `json:"content"`
}

// llamaCppEmbedResponse models the object shape wrapping "embedding";
// parseLlamaCppEmbedding handles the bare-array shapes separately.
type llamaCppEmbedResponse struct {
	Embedding json.RawMessage `json:"embedding"`
}

// Embed embeds a single text.
func (e *LlamaCppEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	return normalizeVector(vectors), nil
}

// EmbedBatch embeds each text with its own request, BatchSize at a time.
func (e *LlamaCppEmbedder) EmbedBatch(ctx context.Context, requests []Request) ([]Result, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(requests))
	for start := 0; start < len(requests); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(requests) {
			end = len(requests)
		}
		batch := requests[start:end]

		for _, r := range batch {
			vector, err := e.embedOne(ctx, r.Text)
			if err != nil {
				return nil, err
			}
			norm := normalizeVector(vector)
			results = append(results, Result{ID: r.ID, Vector: norm, Dimensions: len(norm)})
		}
	}
	return results, nil
}

func (e *LlamaCppEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	initialized, disposed := e.initialized, e.disposed
	e.mu.RUnlock()
	if disposed {
		return nil, zerrors.New(zerrors.Embedding, "embed called after dispose", nil)
	}
	if !initialized {
		return nil, zerrors.New(zerrors.Embedding, "embed called before initialize", nil)
	}

	body, err := json.Marshal(llamaCppEmbedRequest{Content: text})
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "marshal llama.cpp request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/embedding", bytes.NewReader(body))
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "build llama.cpp request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "llama.cpp request failed", err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, zerrors.New(zerrors.Embedding, fmt.Sprintf("llama.cpp status %d: %s", resp.StatusCode, raw), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "read llama.cpp response", err)
	}
	return parseLlamaCppEmbedding(raw)
}

// parseLlamaCppEmbedding accepts either `{"embedding": [...]}` or a bare
// `[...]` top-level array, and also unwraps a doubly-nested `[[...]]` shape
// some llama.cpp builds return for single-prompt requests.
func parseLlamaCppEmbedding(raw []byte) ([]float32, error) {
	var asFlat []float32
	if err := json.Unmarshal(raw, &asFlat); err == nil && len(asFlat) > 0 {
		return asFlat, nil
	}

	var asNested [][]float32
	if err := json.Unmarshal(raw, &asNested); err == nil && len(asNested) > 0 {
		return asNested[0], nil
	}

	var wrapped llamaCppEmbedResponse
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Embedding) > 0 {
		if err := json.Unmarshal(wrapped.Embedding, &asFlat); err == nil && len(asFlat) > 0 {
			return asFlat, nil
		}
		if err := json.Unmarshal(wrapped.Embedding, &asNested); err == nil && len(asNested) > 0 {
			return asNested[0], nil
		}
	}

	return nil, zerrors.New(zerrors.Embedding, "unrecognized llama.cpp embedding response shape", nil)
}

// HealthCheck reports whether the llama.cpp server responds.
func (e *LlamaCppEmbedder) HealthCheck(ctx context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.healthCheckLocked(ctx)
}

func (e *LlamaCppEmbedder) healthCheckLocked(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Dispose releases the HTTP connection pool.
func (e *LlamaCppEmbedder) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.initialized = false
	if t, ok := e.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
