package services

import (
	"context"
	"errors"
	"io"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/store"
	"pdf-qa-service/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// Pipeline is a QAService together with the model clients it owns.
type Pipeline struct {
	QA      *QAService
	gemini  *ai.GeminiClient
	closers []io.Closer
}

// NewPipeline wires extractor, answerer and reranker from cfg around docs.
// rdb and metrics may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, docs store.DocumentStore, rdb *redis.Client, metrics *telemetry.Metrics) (*Pipeline, error) {
	p := &Pipeline{}

	var gemini *ai.GeminiClient
	if needsGemini(cfg) {
		client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Tier:   cfg.GeminiTier,
			OnStateChange: func(name string, _, to gobreaker.State) {
				metrics.RecordCircuitBreakerState(name, to.String())
			},
		})
		if err != nil {
			return nil, err
		}
		gemini = client
		p.gemini = client
		p.closers = append(p.closers, client)
	}

	answerer, err := ai.NewAnswerer(cfg, gemini)
	if err != nil {
		p.Close()
		return nil, err
	}

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	if closer, ok := embedder.(io.Closer); ok {
		p.closers = append(p.closers, closer)
	}
	embedder = ai.NewCachedEmbedder(embedder, rdb, cfg.EmbeddingCacheTTL)

	extractor, err := NewPDFExtractor(cfg.PDFExtractors, gemini, metrics)
	if err != nil {
		p.Close()
		return nil, err
	}

	reranker := NewReranker(cfg.AnswerStrategy, embedder)
	if cfg.AnswerStrategy == config.StrategyRerank && reranker.Strategy() != config.StrategyRerank {
		logger.Warn("No embeddings provider configured, selecting answers by confidence")
	}

	qa, err := NewQAService(docs, extractor, answerer, reranker, QAOptions{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, metrics)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.QA = qa

	return p, nil
}

func needsGemini(cfg *config.Config) bool {
	if cfg.GeminiAPIKey == "" {
		return false
	}
	if cfg.QAProvider == "gemini" {
		return true
	}
	for _, m := range cfg.PDFExtractors {
		if m == MethodGemini {
			return true
		}
	}
	return false
}

// Status reports the Gemini circuit breaker state, if a client is in use.
func (p *Pipeline) Status() map[string]string {
	status := map[string]string{}
	if p.gemini != nil {
		status["gemini"] = p.gemini.BreakerState().String()
	}
	return status
}

func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
