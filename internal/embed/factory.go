package embed

import (
	"github.com/cosmiclasagnadev/zmem/internal/config"
	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

// New builds the Embedder configured by cfg, wrapped in a single-text LRU
// cache. The caller must call Initialize before use and Dispose when done.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var inner Embedder

	switch cfg.Provider {
	case config.ProviderOllama:
		inner = NewOllamaEmbedder(OllamaConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
	case config.ProviderOpenAI:
		inner = NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
	case config.ProviderLlamaCpp:
		inner = NewLlamaCppEmbedder(LlamaCppConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
	default:
		return nil, zerrors.New(zerrors.Validation, "unknown embedding provider: "+string(cfg.Provider), nil)
	}

	return NewCachedEmbedder(inner, DefaultEmbeddingCacheSize), nil
}
