package services

import (
	"context"
	"testing"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipelineConfig() *config.Config {
	return &config.Config{
		ChunkSize:          2000,
		ChunkOverlap:       100,
		AnswerStrategy:     config.StrategyRerank,
		PDFExtractors:      []string{MethodGoPDF, MethodPoppler},
		QAProvider:         "huggingface",
		QAModel:            "deepset/roberta-base-squad2",
		HuggingFaceAPIKey:  "hf_test",
		HuggingFaceAPIURL:  "http://127.0.0.1:1",
		EmbeddingsProvider: "none",
	}
}

func TestNewPipeline_WithoutEmbeddingsFallsBackToConfidence(t *testing.T) {
	p, err := NewPipeline(context.Background(), pipelineConfig(), store.NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	defer p.Close()

	require.NotNil(t, p.QA)
	assert.Equal(t, config.StrategyConfidence, p.QA.reranker.Strategy())
	assert.Empty(t, p.Status())
}

func TestNewPipeline_Errors(t *testing.T) {
	cfg := pipelineConfig()
	cfg.PDFExtractors = []string{"ocr"}
	_, err := NewPipeline(context.Background(), cfg, store.NewMemoryStore(), nil, nil)
	assert.Error(t, err)

	cfg = pipelineConfig()
	cfg.ChunkOverlap = cfg.ChunkSize
	_, err = NewPipeline(context.Background(), cfg, store.NewMemoryStore(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidChunkConfig)

	cfg = pipelineConfig()
	cfg.QAProvider = "gemini"
	_, err = NewPipeline(context.Background(), cfg, store.NewMemoryStore(), nil, nil)
	assert.Error(t, err, "gemini answerer without an API key")
}

func TestNeedsGemini(t *testing.T) {
	cfg := pipelineConfig()
	assert.False(t, needsGemini(cfg))

	cfg.PDFExtractors = append(cfg.PDFExtractors, MethodGemini)
	assert.False(t, needsGemini(cfg), "no API key")

	cfg.GeminiAPIKey = "key"
	assert.True(t, needsGemini(cfg))

	cfg.PDFExtractors = []string{MethodGoPDF}
	cfg.QAProvider = "gemini"
	assert.True(t, needsGemini(cfg))
}
