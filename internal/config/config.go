// Package config loads zmem's JSON configuration document, applying
// defaults and environment overrides per the schema in the external
// interfaces section of the specification.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

// RetrievalMode selects which retrieval path recall uses.
type RetrievalMode string

const (
	ModeHybrid  RetrievalMode = "hybrid"
	ModeLexical RetrievalMode = "lexical"
	ModeVector  RetrievalMode = "vector"
)

// Provider identifies an embedding backend.
type Provider string

const (
	ProviderLlamaCpp Provider = "llamacpp"
	ProviderOpenAI   Provider = "openai"
	ProviderOllama   Provider = "ollama"
)

func (p Provider) valid() bool {
	switch p {
	case ProviderLlamaCpp, ProviderOpenAI, ProviderOllama:
		return true
	}
	return false
}

// Config is the root zmem configuration document.
type Config struct {
	Defaults    DefaultsConfig     `json:"defaults"`
	AI          AIConfig           `json:"ai"`
	Workspaces  []WorkspaceConfig  `json:"workspaces"`
	Storage     StorageConfig      `json:"storage"`
}

// DefaultsConfig configures the default retrieval behaviour.
type DefaultsConfig struct {
	RetrievalMode RetrievalMode   `json:"retrievalMode"`
	ScopesDefault []string        `json:"scopesDefault"`
	Retrieval     RetrievalConfig `json:"retrieval"`
}

// RetrievalConfig tunes candidate counts and thresholds shared by lexical
// and vector search.
type RetrievalConfig struct {
	TopKLex           int     `json:"topKLex"`
	TopKVec           int     `json:"topKVec"`
	RerankTopK        int     `json:"rerankTopK"`
	MinScore          float64 `json:"minScore"`
	IncludeSuperseded bool    `json:"includeSuperseded"`
}

// AIConfig groups the embedding and reranking provider settings.
type AIConfig struct {
	Embedding EmbeddingConfig `json:"embedding"`
	Rerank    RerankConfig    `json:"rerank"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider     Provider `json:"provider"`
	Model        string   `json:"model"`
	Dimensions   int      `json:"dimensions"`
	Quantization string   `json:"quantization"`
	BatchSize    int      `json:"batchSize"`
	MaxTokens    int      `json:"maxTokens"`
	BaseURL      string   `json:"baseUrl,omitempty"`
	APIKey       string   `json:"apiKey,omitempty"`
}

// RerankConfig is carried for forward compatibility; zmem's core does not
// implement reranking (spec Non-goals), but the field shape is part of the
// configuration contract.
type RerankConfig struct {
	Enabled  bool     `json:"enabled"`
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
	TopK     int      `json:"topK"`
}

// WorkspaceConfig describes one configured workspace root.
type WorkspaceConfig struct {
	Name             string   `json:"name"`
	Root             string   `json:"root"`
	IncludeByDefault bool     `json:"includeByDefault"`
	Patterns         []string `json:"patterns,omitempty"`
	Context          string   `json:"context,omitempty"`
}

// StorageConfig locates the metadata store and vector collections.
type StorageConfig struct {
	DBPath   string `json:"dbPath"`
	ZvecPath string `json:"zvecPath"`
}

// Default returns the hardcoded configuration defaults.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			RetrievalMode: ModeHybrid,
			ScopesDefault: []string{"workspace", "global"},
			Retrieval: RetrievalConfig{
				TopKLex:           30,
				TopKVec:           30,
				RerankTopK:        20,
				MinScore:          0.25,
				IncludeSuperseded: false,
			},
		},
		AI: AIConfig{
			Embedding: EmbeddingConfig{
				Provider:   ProviderOllama,
				Model:      "nomic-embed-text",
				Dimensions: 1024,
				BatchSize:  8,
				MaxTokens:  8192,
			},
			Rerank: RerankConfig{
				Enabled: false,
				TopK:    20,
			},
		},
		Storage: StorageConfig{
			DBPath:   defaultDBPath(),
			ZvecPath: defaultZvecPath(),
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".zmem", "zmem.db")
	}
	return filepath.Join(home, ".zmem", "zmem.db")
}

func defaultZvecPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".zmem", "vectors")
	}
	return filepath.Join(home, ".zmem", "vectors")
}

// Load reads the JSON document at path, applying defaults for a missing
// file and environment overrides on top of whatever is parsed.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, zerrors.New(zerrors.Validation, fmt.Sprintf("read config %s", path), err)
			}
		} else {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, zerrors.New(zerrors.Validation, fmt.Sprintf("parse config %s", path), err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZMD_EMBED_MODEL"); v != "" {
		cfg.AI.Embedding.Model = v
	}
	if v := os.Getenv("ZMD_EMBED_PROVIDER"); v != "" {
		if p := Provider(v); p.valid() {
			cfg.AI.Embedding.Provider = p
		}
	}
}

// Validate checks the configuration's internal consistency.
func (c *Config) Validate() error {
	if !c.AI.Embedding.Provider.valid() {
		return zerrors.Validationf("invalid embedding provider %q", c.AI.Embedding.Provider)
	}
	switch c.Defaults.RetrievalMode {
	case ModeHybrid, ModeLexical, ModeVector:
	default:
		return zerrors.Validationf("invalid retrieval mode %q", c.Defaults.RetrievalMode)
	}
	if c.AI.Embedding.Dimensions <= 0 {
		return zerrors.Validationf("embedding dimensions must be positive")
	}
	if c.AI.Embedding.BatchSize <= 0 {
		c.AI.Embedding.BatchSize = 8
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = defaultDBPath()
	}
	if c.Storage.ZvecPath == "" {
		c.Storage.ZvecPath = defaultZvecPath()
	}
	return nil
}

// ResolveWorkspace implements the tool-server workspace resolution order:
// explicit argument, then ZMEM_WORKSPACE, then the sole configured
// workspace, then "default".
func (c *Config) ResolveWorkspace(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("ZMEM_WORKSPACE"); v != "" {
		return v
	}
	if len(c.Workspaces) == 1 {
		return c.Workspaces[0].Name
	}
	return "default"
}
