package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, cfg.Defaults.RetrievalMode)
	assert.Equal(t, ProviderOllama, cfg.AI.Embedding.Provider)
	assert.Equal(t, 1024, cfg.AI.Embedding.Dimensions)
}

func TestLoadParsesJSONOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zmem.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"defaults": {"retrievalMode": "lexical"},
		"ai": {"embedding": {"provider": "openai", "model": "text-embedding-3-small", "dimensions": 1536, "batchSize": 8, "maxTokens": 8192}}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModeLexical, cfg.Defaults.RetrievalMode)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Embedding.Provider)
	assert.Equal(t, 1536, cfg.AI.Embedding.Dimensions)
}

func TestEnvOverridesApplyAfterJSON(t *testing.T) {
	t.Setenv("ZMD_EMBED_MODEL", "env-model")
	t.Setenv("ZMD_EMBED_PROVIDER", "llamacpp")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.AI.Embedding.Model)
	assert.Equal(t, ProviderLlamaCpp, cfg.AI.Embedding.Provider)
}

func TestEnvProviderOverrideIgnoredWhenInvalid(t *testing.T) {
	t.Setenv("ZMD_EMBED_PROVIDER", "not-a-real-provider")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.AI.Embedding.Provider)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.AI.Embedding.Provider = "bogus"
	require.Error(t, cfg.Validate())
}

func TestResolveWorkspacePrecedence(t *testing.T) {
	cfg := Default()
	cfg.Workspaces = []WorkspaceConfig{{Name: "solo"}}

	assert.Equal(t, "explicit", cfg.ResolveWorkspace("explicit"))

	t.Setenv("ZMEM_WORKSPACE", "env-ws")
	assert.Equal(t, "env-ws", cfg.ResolveWorkspace(""))

	os.Unsetenv("ZMEM_WORKSPACE")
	assert.Equal(t, "solo", cfg.ResolveWorkspace(""))

	cfg.Workspaces = nil
	assert.Equal(t, "default", cfg.ResolveWorkspace(""))
}
