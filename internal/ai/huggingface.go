package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// HuggingFaceClient talks to the HuggingFace Inference API.
type HuggingFaceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHuggingFaceClient(baseURL, apiKey string, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfErrorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// post sends body to path and decodes the JSON response into out.
func (c *HuggingFaceClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("huggingface request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read huggingface response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr hfErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("huggingface returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("huggingface returned status %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode huggingface response: %w", err)
	}
	return nil
}

// HuggingFaceAnswerer uses a hosted question-answering model such as
// deepset/roberta-base-squad2.
type HuggingFaceAnswerer struct {
	client *HuggingFaceClient
	model  string
}

func NewHuggingFaceAnswerer(client *HuggingFaceClient, model string) *HuggingFaceAnswerer {
	return &HuggingFaceAnswerer{client: client, model: model}
}

type hfQARequest struct {
	Inputs  hfQAInputs `json:"inputs"`
	Options hfOptions  `json:"options"`
}

type hfQAInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type hfQAResult struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// hfQAResponse accepts both the object and the one-element array forms
// the inference API returns for this task.
type hfQAResponse []hfQAResult

func (r *hfQAResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []hfQAResult
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*r = list
		return nil
	}
	var single hfQAResult
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*r = []hfQAResult{single}
	return nil
}

func (a *HuggingFaceAnswerer) Answer(ctx context.Context, question, passage string) (Answer, error) {
	ctx, span := otel.Tracer("huggingface-client").Start(ctx, "huggingface.question_answering")
	defer span.End()
	span.SetAttributes(
		attribute.String("hf.model", a.model),
		attribute.Int("hf.context_chars", len(passage)),
	)

	var resp hfQAResponse
	err := a.client.post(ctx, "/models/"+a.model, hfQARequest{
		Inputs:  hfQAInputs{Question: question, Context: passage},
		Options: hfOptions{WaitForModel: true},
	}, &resp)
	if err != nil {
		span.RecordError(err)
		return Answer{}, err
	}
	if len(resp) == 0 {
		return Answer{}, ErrEmptyResponse
	}

	best := resp[0]
	span.SetAttributes(attribute.Float64("hf.score", best.Score))
	return Answer{
		Text:  strings.TrimSpace(best.Answer),
		Score: clampScore(best.Score),
		Start: best.Start,
		End:   best.End,
	}, nil
}

// HuggingFaceEmbedder calls the feature-extraction pipeline of a sentence
// transformer.
type HuggingFaceEmbedder struct {
	client *HuggingFaceClient
	model  string
}

func NewHuggingFaceEmbedder(client *HuggingFaceClient, model string) *HuggingFaceEmbedder {
	return &HuggingFaceEmbedder{client: client, model: model}
}

type hfEmbedRequest struct {
	Inputs  string    `json:"inputs"`
	Options hfOptions `json:"options"`
}

func (e *HuggingFaceEmbedder) Model() string { return "huggingface/" + e.model }

func (e *HuggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("huggingface-client").Start(ctx, "huggingface.feature_extraction")
	defer span.End()
	span.SetAttributes(attribute.String("hf.model", e.model))

	var raw json.RawMessage
	err := e.client.post(ctx, "/pipeline/feature-extraction/"+e.model, hfEmbedRequest{
		Inputs:  text,
		Options: hfOptions{WaitForModel: true},
	}, &raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return decodeFeatures(raw)
}

// decodeFeatures accepts a pooled vector or per-token vectors, which are
// mean pooled.
func decodeFeatures(raw json.RawMessage) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err == nil {
		if len(vector) == 0 {
			return nil, ErrEmptyResponse
		}
		return vector, nil
	}

	var tokens [][]float32
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("unexpected feature-extraction response: %w", err)
	}
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, ErrEmptyResponse
	}

	pooled := make([]float32, len(tokens[0]))
	for _, tok := range tokens {
		if len(tok) != len(pooled) {
			return nil, fmt.Errorf("inconsistent token vector sizes: %d and %d", len(tok), len(pooled))
		}
		for i, v := range tok {
			pooled[i] += v
		}
	}
	for i := range pooled {
		pooled[i] /= float32(len(tokens))
	}
	return pooled, nil
}
