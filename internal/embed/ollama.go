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

// OllamaConfig configures an Ollama-backed embedder.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	PoolSize   int
}

// OllamaEmbedder calls Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	client *http.Client
	cfg    OllamaConfig

	mu          sync.RWMutex
	initialized bool
	disposed    bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder constructs an uninitialized Ollama embedder.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	return &OllamaEmbedder{client: newPooledClient(cfg.PoolSize), cfg: cfg}
}

// Initialize verifies the Ollama server is reachable.
func (e *OllamaEmbedder) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return zerrors.New(zerrors.Embedding, "embedder already disposed", nil)
	}
	if !e.healthCheckLocked(ctx) {
		return zerrors.New(zerrors.Embedding, fmt.Sprintf("ollama not reachable at %s", e.cfg.BaseURL), nil)
	}
	e.initialized = true
	return nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed embeds a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return normalizeVector(results[0]), nil
}

// EmbedBatch embeds a batch of texts honouring the configured batch size.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, requests []Request) ([]Result, error) {
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

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text
		}

		vectors, err := e.embedTexts(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, zerrors.New(zerrors.Embedding, "provider returned fewer embeddings than requested", nil)
		}
		for i, v := range vectors {
			norm := normalizeVector(v)
			results = append(results, Result{ID: batch[i].ID, Vector: norm, Dimensions: len(norm)})
		}
	}
	return results, nil
}

func (e *OllamaEmbedder) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	initialized, disposed := e.initialized, e.disposed
	e.mu.RUnlock()
	if disposed {
		return nil, zerrors.New(zerrors.Embedding, "embed called after dispose", nil)
	}
	if !initialized {
		return nil, zerrors.New(zerrors.Embedding, "embed called before initialize", nil)
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "marshal ollama request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "build ollama request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "ollama request failed", err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, zerrors.New(zerrors.Embedding, fmt.Sprintf("ollama status %d: %s", resp.StatusCode, raw), nil)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, zerrors.New(zerrors.Embedding, "decode ollama response", err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, zerrors.New(zerrors.Embedding, "ollama returned no embeddings", nil)
	}
	return parsed.Embeddings, nil
}

// HealthCheck reports whether the Ollama server responds.
func (e *OllamaEmbedder) HealthCheck(ctx context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.healthCheckLocked(ctx)
}

func (e *OllamaEmbedder) healthCheckLocked(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+"/api/tags", nil)
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
func (e *OllamaEmbedder) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.initialized = false
	if t, ok := e.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
