package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Candidate is the answer one chunk produced.
type Candidate struct {
	Text  string
	Score float64
	Start int
	End   int
	Chunk int
}

// Selection is the outcome of choosing among candidates. Index is -1 when
// the answer does not come from a single candidate.
type Selection struct {
	Index      int
	Answer     string
	Similarity float64
	Strategy   string
}

// Reranker picks the final answer among per-chunk candidates.
type Reranker struct {
	embedder ai.Embedder
	strategy string
}

// NewReranker returns a reranker for strategy. A nil embedder turns the
// rerank strategy into confidence selection.
func NewReranker(strategy string, embedder ai.Embedder) *Reranker {
	if strategy == "" {
		strategy = config.StrategyRerank
	}
	return &Reranker{embedder: embedder, strategy: strategy}
}

// Strategy reports the strategy Select will actually apply.
func (r *Reranker) Strategy() string {
	if r.strategy == config.StrategyRerank && r.embedder == nil {
		return config.StrategyConfidence
	}
	return r.strategy
}

// Select applies the configured strategy.
func (r *Reranker) Select(ctx context.Context, question string, candidates []Candidate) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}

	switch r.Strategy() {
	case config.StrategyConcatenate:
		return concatenate(candidates), nil
	case config.StrategyConfidence:
		return byConfidence(candidates), nil
	default:
		return r.Rerank(ctx, question, candidates)
	}
}

// Rerank embeds the question and every non-empty candidate and keeps the
// candidate with the highest cosine similarity. Ties go to the earliest.
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []Candidate) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}
	if r.embedder == nil {
		return byConfidence(candidates), nil
	}

	ctx, span := otel.Tracer("pdf-qa-service").Start(ctx, "qa.rerank")
	defer span.End()
	span.SetAttributes(attribute.Int("rerank.candidates", len(candidates)))

	questionVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		span.RecordError(err)
		return Selection{}, &ModelError{Stage: "embedding", Err: err}
	}

	// Overlapping chunks often yield the same span; embed each text once.
	vectors := make(map[string][]float32)
	best := Selection{Index: -1, Similarity: math.Inf(-1), Strategy: config.StrategyRerank}
	for i, c := range candidates {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		vec, ok := vectors[c.Text]
		if !ok {
			vec, err = r.embedder.Embed(ctx, c.Text)
			if err != nil {
				span.RecordError(err)
				return Selection{}, &ModelError{Stage: "embedding", Err: err}
			}
			vectors[c.Text] = vec
		}

		sim, err := CosineSimilarity(questionVec, vec)
		if err != nil {
			return Selection{}, err
		}
		if sim > best.Similarity {
			best.Index = i
			best.Answer = c.Text
			best.Similarity = sim
		}
	}

	if best.Index < 0 {
		// Every chunk came back empty.
		return Selection{Index: 0, Answer: candidates[0].Text, Strategy: config.StrategyRerank}, nil
	}

	span.SetAttributes(
		attribute.Int("rerank.selected", best.Index),
		attribute.Float64("rerank.similarity", best.Similarity),
	)
	return best, nil
}

func byConfidence(candidates []Candidate) Selection {
	best := 0
	for i, c := range candidates {
		if c.Score > candidates[best].Score {
			best = i
		}
	}
	return Selection{
		Index:    best,
		Answer:   candidates[best].Text,
		Strategy: config.StrategyConfidence,
	}
}

func concatenate(candidates []Candidate) Selection {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if text := strings.TrimSpace(c.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return Selection{
		Index:    -1,
		Answer:   strings.Join(parts, " "),
		Strategy: config.StrategyConcatenate,
	}
}

// CosineSimilarity returns the cosine of the angle between a and b. Empty
// or zero-norm vectors score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d and %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
