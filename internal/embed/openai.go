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

// OpenAIConfig configures an OpenAI-compatible embedder. BaseURL defaults
// to the public OpenAI API but may point at any server implementing the
// same /v1/embeddings contract.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	PoolSize   int
}

// OpenAIEmbedder calls an OpenAI-compatible /v1/embeddings endpoint.
type OpenAIEmbedder struct {
	client *http.Client
	cfg    OpenAIConfig

	mu          sync.RWMutex
	initialized bool
	disposed    bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder constructs an uninitialized OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	return &OpenAIEmbedder{client: newPooledClient(cfg.PoolSize), cfg: cfg}
}

type openaiEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Initialize verifies the endpoint is reachable and credentials look sane.
func (e *OpenAIEmbedder) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return zerrors.New(zerrors.Embedding, "embedder already disposed", nil)
	}
	if !e.healthCheckLocked(ctx) {
		return zerrors.New(zerrors.Embedding, fmt.Sprintf("openai-compatible endpoint unreachable at %s", e.cfg.BaseURL), nil)
	}
	e.initialized = true
	return nil
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return normalizeVector(vectors[0]), nil
}

// EmbedBatch embeds a batch of texts honouring the configured batch size.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, requests []Request) ([]Result, error) {
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

func (e *OpenAIEmbedder) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	initialized, disposed := e.initialized, e.disposed
	e.mu.RUnlock()
	if disposed {
		return nil, zerrors.New(zerrors.Embedding, "embed called after dispose", nil)
	}
	if !initialized {
		return nil, zerrors.New(zerrors.Embedding, "embed called before initialize", nil)
	}

	body, err := json.Marshal(openaiEmbedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "marshal openai request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "build openai request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, zerrors.New(zerrors.Embedding, "openai request failed", err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, zerrors.New(zerrors.Embedding, fmt.Sprintf("openai status %d: %s", resp.StatusCode, raw), nil)
	}

	var parsed openaiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, zerrors.New(zerrors.Embedding, "decode openai response", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, zerrors.New(zerrors.Embedding, "openai returned mismatched embedding count", nil)
	}

	vectors := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// HealthCheck reports whether the endpoint responds to a models listing.
func (e *OpenAIEmbedder) HealthCheck(ctx context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.healthCheckLocked(ctx)
}

func (e *OpenAIEmbedder) healthCheckLocked(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Dispose releases the HTTP connection pool.
func (e *OpenAIEmbedder) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.initialized = false
	if t, ok := e.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
