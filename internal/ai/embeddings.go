package ai

import (
	"context"
	"fmt"

	"pdf-qa-service/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleEmbedder uses Google Generative AI embeddings (text-embedding-004).
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

func NewGoogleEmbedder(ctx context.Context, apiKey, model string) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleEmbedder{client: client, model: model}, nil
}

func (e *GoogleEmbedder) Model() string { return "google/" + e.model }

func (e *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	// genai SDK returns []float32 for Embedding.Values
	return resp.Embedding.Values, nil
}

func (e *GoogleEmbedder) Close() error {
	return e.client.Close()
}

// NewEmbedder builds the embedder selected by EMBEDDINGS_PROVIDER. It
// returns nil for "none", which makes rerank fall back to confidence.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "huggingface", "":
		client := NewHuggingFaceClient(cfg.HuggingFaceAPIURL, cfg.HuggingFaceAPIKey, cfg.ModelTimeout)
		return NewHuggingFaceEmbedder(client, cfg.HuggingFaceEmbeddingsModel), nil
	case "google":
		return NewGoogleEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
	case "ollama":
		return NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaEmbeddingsModel, cfg.ModelTimeout), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}
