package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunk.Size)
	assert.Equal(t, 200, cfg.Chunk.Overlap)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, "DeepSeek", cfg.LLM.Name)
	assert.False(t, cfg.WebSearch.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumina.yaml")
	yml := `
top_k: 8
chunk:
  size: 500
  overlap: 50
store:
  backend: sqlite
  collection: from_file
web_search:
  enabled: true
request_timeout: 15s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("COLLECTION_NAME", "from_env")
	t.Setenv("WEB_SEARCH_ENABLED", "false")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.TopK)
	assert.Equal(t, 500, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "from_env", cfg.Store.Collection)
	assert.False(t, cfg.WebSearch.Enabled)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestLoad_SummarizerKeyFallsBackToGoogleKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.Summarizer.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: [nope"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunk.Size = 0 }},
		{"negative overlap", func(c *Config) { c.Chunk.Overlap = -1 }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "chroma" }},
		{"postgres without conn", func(c *Config) { c.Store.Backend = "postgres" }},
		{"empty collection", func(c *Config) { c.Store.Collection = "" }},
		{"unknown extractor", func(c *Config) { c.PDFExtractor = "ocr" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "45")
	assert.Equal(t, 45*time.Second, getenvDuration("REQUEST_TIMEOUT", time.Second))

	t.Setenv("REQUEST_TIMEOUT", "2m")
	assert.Equal(t, 2*time.Minute, getenvDuration("REQUEST_TIMEOUT", time.Second))

	t.Setenv("REQUEST_TIMEOUT", "soon")
	assert.Equal(t, time.Second, getenvDuration("REQUEST_TIMEOUT", time.Second))
}
