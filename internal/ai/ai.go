// Package ai wraps the models behind the question-answering pipeline:
// extractive answerers that pull a span out of a context passage, and
// embedders that map text to vectors for reranking.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers with no usable payload.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Answer is the span an extractive model picked from one context passage.
type Answer struct {
	Text  string
	Score float64 // confidence in [0,1]
	Start int     // character offset within the context, -1 when unknown
	End   int
}

// Answerer runs extractive question answering against a single passage.
type Answerer interface {
	Answer(ctx context.Context, question, passage string) (Answer, error)
}

// Embedder maps text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model identifies the embedding space. Vectors from different
	// models are not comparable.
	Model() string
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
