package ai

import (
	"fmt"

	"pdf-qa-service/internal/config"
)

// NewAnswerer builds the answerer selected by QA_PROVIDER. gemini may be
// nil unless QA_PROVIDER is "gemini".
func NewAnswerer(cfg *config.Config, gemini *GeminiClient) (Answerer, error) {
	switch cfg.QAProvider {
	case "huggingface", "":
		client := NewHuggingFaceClient(cfg.HuggingFaceAPIURL, cfg.HuggingFaceAPIKey, cfg.ModelTimeout)
		return NewHuggingFaceAnswerer(client, cfg.QAModel), nil
	case "gemini":
		if gemini == nil {
			return nil, fmt.Errorf("QA_PROVIDER=gemini requires a gemini client")
		}
		return NewGeminiAnswerer(gemini), nil
	default:
		return nil, fmt.Errorf("unknown QA provider: %s", cfg.QAProvider)
	}
}
