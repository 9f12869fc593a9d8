package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ChunkSize:          2000,
		ChunkOverlap:       100,
		AnswerStrategy:     StrategyRerank,
		PDFExtractors:      []string{"go-pdf"},
		QAProvider:         "huggingface",
		HuggingFaceAPIKey:  "hf_test",
		EmbeddingsProvider: "huggingface",
		StoreDriver:        StoreMemory,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "hf_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, StrategyRerank, cfg.AnswerStrategy)
	assert.Equal(t, []string{"go-pdf", "poppler"}, cfg.PDFExtractors)
	assert.Equal(t, "deepset/roberta-base-squad2", cfg.QAModel)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 120*time.Second, cfg.ModelTimeout)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "hf_test")
	t.Setenv("PORT", "9090")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("ANSWER_STRATEGY", StrategyConcatenate)
	t.Setenv("PDF_EXTRACTORS", " poppler , gemini,, ")
	t.Setenv("MODEL_TIMEOUT", "45")
	t.Setenv("STORE_DRIVER", StoreSQLite)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, StrategyConcatenate, cfg.AnswerStrategy)
	assert.Equal(t, []string{"poppler", "gemini"}, cfg.PDFExtractors)
	assert.Equal(t, 45*time.Second, cfg.ModelTimeout)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
}

func TestLoadConfig_MissingAPIKey(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "HUGGINGFACE_API_KEY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero chunk size", mutate: func(c *Config) { c.ChunkSize = 0 }, wantErr: "CHUNK_SIZE"},
		{name: "overlap equals size", mutate: func(c *Config) { c.ChunkOverlap = c.ChunkSize }, wantErr: "CHUNK_OVERLAP"},
		{name: "negative overlap", mutate: func(c *Config) { c.ChunkOverlap = -1 }, wantErr: "CHUNK_OVERLAP"},
		{name: "unknown strategy", mutate: func(c *Config) { c.AnswerStrategy = "vote" }, wantErr: "ANSWER_STRATEGY"},
		{name: "gemini without key", mutate: func(c *Config) { c.QAProvider = "gemini" }, wantErr: "GEMINI_API_KEY"},
		{name: "unknown provider", mutate: func(c *Config) { c.QAProvider = "openai" }, wantErr: "QA_PROVIDER"},
		{name: "google embeddings without key", mutate: func(c *Config) { c.EmbeddingsProvider = "google" }, wantErr: "GEMINI_API_KEY"},
		{name: "no embeddings", mutate: func(c *Config) { c.EmbeddingsProvider = "none" }},
		{name: "unknown store", mutate: func(c *Config) { c.StoreDriver = "cassandra" }, wantErr: "STORE_DRIVER"},
		{name: "no extractors", mutate: func(c *Config) { c.PDFExtractors = nil }, wantErr: "PDF_EXTRACTORS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "30")
	assert.Equal(t, 30*time.Second, getEnvDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION", time.Minute))
}

func TestNewRedisClient_Disabled(t *testing.T) {
	rdb, err := NewRedisClient(&Config{})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}
