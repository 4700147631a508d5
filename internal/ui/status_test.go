package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusInfo_Zero(t *testing.T) {
	info := StatusInfo{}

	assert.Empty(t, info.Workspace)
	assert.Equal(t, 0, info.TotalItems)
	assert.Equal(t, 0, info.TotalVectors)
	assert.True(t, info.LastIndexedAt.IsZero())
}

func TestStatusInfo_JSONSerialization(t *testing.T) {
	info := StatusInfo{
		Workspace:         "default",
		TotalItems:        100,
		TotalVectors:      500,
		PendingEmbeddings: 3,
		LastIndexedAt:     time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		DBSize:            1024 * 1024,
		VecSize:           10 * 1024 * 1024,
		EmbedderProvider:  "ollama",
		EmbedderStatus:    "ready",
		EmbedderModel:     "nomic-embed-text",
		WatcherStatus:     "running",
	}

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var parsed map[string]any
	err = json.Unmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "default", parsed["workspace"])
	assert.Equal(t, float64(100), parsed["total_items"])
	assert.Equal(t, float64(500), parsed["total_vectors"])
	assert.Equal(t, "ollama", parsed["embedder_provider"])
	assert.Equal(t, "running", parsed["watcher_status"])
}

func TestStatusRenderer_Render_Basic(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	info := StatusInfo{
		Workspace:        "my-workspace",
		TotalItems:       50,
		TotalVectors:     250,
		LastIndexedAt:    time.Now(),
		DBSize:           512 * 1024,
		VecSize:          5 * 1024 * 1024,
		EmbedderProvider: "ollama",
		EmbedderStatus:   "ready",
		EmbedderModel:    "nomic-embed-text",
		WatcherStatus:    "stopped",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "my-workspace")
	assert.Contains(t, output, "50")
	assert.Contains(t, output, "250")
	assert.Contains(t, output, "ollama")
	assert.Contains(t, output, "ready")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	info := StatusInfo{
		Workspace:    "json-workspace",
		TotalItems:   25,
		TotalVectors: 100,
	}

	err := r.RenderJSON(info)
	require.NoError(t, err)

	var parsed StatusInfo
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "json-workspace", parsed.Workspace)
	assert.Equal(t, 25, parsed.TotalItems)
}

func TestStatusRenderer_NoColor(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	info := StatusInfo{
		Workspace:      "nocolor-workspace",
		EmbedderStatus: "ready",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "\x1b[")
	assert.NotContains(t, output, "\033[")
}

func TestStatusRenderer_EmbedderOffline(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, false)

	info := StatusInfo{
		Workspace:        "offline-workspace",
		EmbedderProvider: "llamacpp",
		EmbedderStatus:   "offline",
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "offline")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatBytes(tt.bytes)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStatusRenderer_StorageSizes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	info := StatusInfo{
		Workspace: "storage-workspace",
		DBSize:    512 * 1024,
		VecSize:   10 * 1024 * 1024,
	}

	err := r.Render(info)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "KB")
	assert.Contains(t, output, "MB")
}
