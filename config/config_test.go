package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("AppliesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("top_k: 10\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.TopK)
		assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
		assert.Equal(t, 1000, cfg.Chunking.MaxLength)
		assert.Equal(t, "zstd", cfg.Store.Compression)
	})

	t.Run("OverridesNestedFields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")

		raw := `
embedding:
  model: custom-model
  base_url: http://localhost:8080/v1
chunking:
  max_length: 500
  overlap: 50
store:
  path: /var/lib/myindex
  compression: lz4
`
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "custom-model", cfg.Embedding.Model)
		assert.Equal(t, "http://localhost:8080/v1", cfg.Embedding.BaseURL)
		assert.Equal(t, 500, cfg.Chunking.MaxLength)
		assert.Equal(t, 50, cfg.Chunking.Overlap)
		assert.Equal(t, "/var/lib/myindex", cfg.Store.Path)
		assert.Equal(t, "lz4", cfg.Store.Compression)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("top_k: [broken"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.TopK = 7
	cfg.Embedding.Model = "roundtrip-model"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
