package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8800, cfg.Server.Port)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, 0.5, cfg.Pipeline.SimilarityThreshold)
	assert.Equal(t, 3, cfg.Pipeline.TopK)
	assert.Equal(t, 4, cfg.Pipeline.FinalK)
	assert.Equal(t, 128, cfg.Pipeline.MaxNewTokens)
	assert.Equal(t, 0.5, cfg.Pipeline.VerifyThreshold)
	assert.Equal(t, 100, cfg.Pipeline.MaxNotes)
	assert.Equal(t, 384, cfg.Embeddings.Dimension)
	assert.Equal(t, "documents", cfg.Pipeline.DocumentsCollection)
	assert.Equal(t, "notes", cfg.Pipeline.NotesCollection)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9999
pipeline:
  top_k: 5
  max_notes: 10
vectorstore:
  provider: qdrant
  qdrant:
    host: qdrant.internal
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pipeline.TopK)
	assert.Equal(t, 10, cfg.Pipeline.MaxNotes)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	// untouched values still default
	assert.Equal(t, 4, cfg.Pipeline.FinalK)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ANSWERD_SERVER_PORT", "7777")
	t.Setenv("ANSWERD_PIPELINE_TOP_K", "6")
	t.Setenv("ANSWERD_VECTORSTORE_CHROMEM_PATH", "/tmp/vs")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Pipeline.TopK)
	assert.Equal(t, "/tmp/vs", cfg.VectorStore.Chromem.Path)
}

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ANSWERD_SERVER_PORT", "server.port"},
		{"ANSWERD_PIPELINE_TOP_K", "pipeline.top_k"},
		{"ANSWERD_EMBEDDINGS_BASE_URL", "embeddings.base_url"},
		{"ANSWERD_VECTORSTORE_PROVIDER", "vectorstore.provider"},
		{"ANSWERD_VECTORSTORE_QDRANT_HOST", "vectorstore.qdrant.host"},
		{"ANSWERD_VECTORSTORE_CHROMEM_PATH", "vectorstore.chromem.path"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, transformEnv(tt.in), tt.in)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.ApplyDefaults()
		return cfg
	}

	t.Run("valid defaults", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("bad provider", func(t *testing.T) {
		cfg := base()
		cfg.VectorStore.Provider = "milvus"
		assert.Error(t, cfg.Validate())
	})

	t.Run("telemetry without endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Telemetry.Enabled = true
		assert.Error(t, cfg.Validate())
	})

	t.Run("colliding collections", func(t *testing.T) {
		cfg := base()
		cfg.Pipeline.NotesCollection = cfg.Pipeline.DocumentsCollection
		assert.Error(t, cfg.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := base()
		cfg.Pipeline.SimilarityThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})
}
