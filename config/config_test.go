package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	for _, key := range []string{"VECTOR_BACKEND", "TOP_K", "CHUNK_SIZE", "CHUNK_OVERLAP", "UPLOAD_RETENTION", "OPENAI_CHAT_MODEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.VectorBackend)
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, "gpt-4", cfg.OpenAIChatModel)
	assert.Equal(t, time.Hour, cfg.UploadRetention)

	size, overlap := cfg.Chunking()
	assert.Equal(t, LocalChunkSize, size)
	assert.Equal(t, LocalChunkOverlap, overlap)
}

func TestLoadOverlayAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docanalyzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_backend: pgvector\ntop_k: 8\nchunk_size: 800\n"), 0644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TOP_K", "6")
	for _, key := range []string{"VECTOR_BACKEND", "CHUNK_SIZE", "CHUNK_OVERLAP"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pgvector", cfg.VectorBackend)
	assert.Equal(t, 6, cfg.TopK)

	size, overlap := cfg.Chunking()
	assert.Equal(t, 800, size)
	assert.Equal(t, RemoteChunkOverlap, overlap)
}

func TestLoadExplicitZeroOverlap(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("CHUNK_SIZE", "300")
	t.Setenv("CHUNK_OVERLAP", "0")

	cfg, err := Load()
	require.NoError(t, err)

	size, overlap := cfg.Chunking()
	assert.Equal(t, 300, size)
	assert.Equal(t, 0, overlap)
}

func TestLoadOverlayZeroOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docanalyzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_overlap: 0\n"), 0644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("VECTOR_BACKEND", "pinecone")
	for _, key := range []string{"CHUNK_SIZE", "CHUNK_OVERLAP"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	size, overlap := cfg.Chunking()
	assert.Equal(t, RemoteChunkSize, size)
	assert.Equal(t, 0, overlap)
}

func TestLoadOverlayInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: [not an int"), 0644))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestChunking(t *testing.T) {
	tests := []struct {
		name            string
		cfg             Config
		expectedSize    int
		expectedOverlap int
	}{
		{name: "memory profile", cfg: Config{VectorBackend: "memory"}, expectedSize: 500, expectedOverlap: 100},
		{name: "pinecone profile", cfg: Config{VectorBackend: "pinecone"}, expectedSize: 1000, expectedOverlap: 200},
		{name: "explicit values", cfg: Config{VectorBackend: "pinecone", ChunkSize: intPtr(300), ChunkOverlap: intPtr(30)}, expectedSize: 300, expectedOverlap: 30},
		{name: "explicit zero overlap", cfg: Config{VectorBackend: "memory", ChunkSize: intPtr(300), ChunkOverlap: intPtr(0)}, expectedSize: 300, expectedOverlap: 0},
		{name: "zero overlap keeps profile size", cfg: Config{VectorBackend: "pinecone", ChunkOverlap: intPtr(0)}, expectedSize: 1000, expectedOverlap: 0},
		{name: "small size shrinks profile overlap", cfg: Config{VectorBackend: "memory", ChunkSize: intPtr(50)}, expectedSize: 50, expectedOverlap: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, overlap := tt.cfg.Chunking()
			assert.Equal(t, tt.expectedSize, size)
			assert.Equal(t, tt.expectedOverlap, overlap)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{OpenAIAPIKey: "k", VectorBackend: "memory", TopK: 4, MaxUploadMB: 10}

	tests := []struct {
		name     string
		mutate   func(*Config)
		contains []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.OpenAIAPIKey = "" }, contains: []string{"OPENAI_API_KEY"}},
		{
			name:     "pinecone without settings",
			mutate:   func(c *Config) { c.VectorBackend = "pinecone" },
			contains: []string{"PINECONE_API_KEY", "PINECONE_INDEX_NAME"},
		},
		{name: "pgvector without url", mutate: func(c *Config) { c.VectorBackend = "pgvector" }, contains: []string{"DATABASE_URL"}},
		{name: "unknown backend", mutate: func(c *Config) { c.VectorBackend = "faiss" }, contains: []string{"faiss"}},
		{name: "overlap too large", mutate: func(c *Config) { c.ChunkSize, c.ChunkOverlap = intPtr(100), intPtr(100) }, contains: []string{"overlap"}},
		{name: "zero top k", mutate: func(c *Config) { c.TopK = 0 }, contains: []string{"TOP_K"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.contains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
