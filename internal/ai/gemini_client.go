package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"pdf-qa-service/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

var (
	// ErrGeminiUnavailable is returned while the circuit breaker is open.
	ErrGeminiUnavailable = errors.New("gemini unavailable: circuit breaker open")
	// ErrGeminiQuota is returned when the local token budget is exhausted.
	ErrGeminiQuota = errors.New("gemini rate limit exceeded: wait before retry")
)

type GeminiClient struct {
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	tokenCounter *TokenCounter
	client       *genai.Client
	model        string
	tier         string
}

// GeminiConfig configures NewGeminiClient. OnStateChange, when set, is
// called for every circuit breaker transition.
type GeminiConfig struct {
	APIKey        string
	Model         string
	Tier          string
	OnStateChange func(name string, from, to gobreaker.State)
}

type TokenCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}

	// Configure rate limits based on tier
	limits := getRateLimits(cfg.Tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})

	// RPM limit with some buffer
	burst := limits.RPM / 10
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), burst)

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiClient{
		breaker:      breaker,
		rateLimiter:  rateLimiter,
		tokenCounter: NewTokenCounter(limits),
		client:       client,
		model:        model,
		tier:         cfg.Tier,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	Temperature       float32
	MaxOutputTokens   int32
	SystemInstruction string
	JSON              bool
}

// Generate runs the model behind the token budget, the rate limiter and the
// circuit breaker and returns the concatenated text of the first candidate.
func (gc *GeminiClient) Generate(ctx context.Context, opts GenerateOptions, parts ...genai.Part) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	// Estimate tokens BEFORE making request
	estimatedTokens := estimateTokens(parts)
	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimatedTokens),
		attribute.String("gemini.model", gc.model),
		attribute.String("gemini.tier", gc.tier),
	)

	if !gc.tokenCounter.CanConsume(estimatedTokens, 1) {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", ErrGeminiQuota
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(opts.Temperature)
		if opts.MaxOutputTokens > 0 {
			model.SetMaxOutputTokens(opts.MaxOutputTokens)
		}
		if opts.SystemInstruction != "" {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(opts.SystemInstruction)},
			}
		}
		if opts.JSON {
			model.ResponseMIMEType = "application/json"
		}

		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			span.SetAttributes(attribute.String("gemini.error_message", err.Error()))
			return nil, err
		}

		actualTokens := extractTokenUsage(resp)
		gc.tokenCounter.RecordUsage(actualTokens, 1)
		span.SetAttributes(attribute.Int("gemini.actual_tokens", actualTokens))

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return "", ErrGeminiUnavailable
		}
		span.RecordError(err)
		return "", err
	}

	text := responseText(result.(*genai.GenerateContentResponse))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ExtractPDFText uploads a PDF and asks the model to transcribe it.
func (gc *GeminiClient) ExtractPDFText(ctx context.Context, content []byte) (string, error) {
	file, err := gc.client.UploadFile(ctx, "", bytes.NewReader(content), &genai.UploadFileOptions{
		MIMEType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to gemini: %w", err)
	}
	defer gc.client.DeleteFile(ctx, file.Name)

	return gc.Generate(ctx, GenerateOptions{
		Temperature:       0.1,
		SystemInstruction: "You are a precise document text extractor. Extract ALL text content from this PDF exactly as it appears. Do not summarize, interpret, or modify the content.",
	},
		genai.FileData{URI: file.URI},
		genai.Text("Extract all text content from this PDF document."),
	)
}

// BreakerState reports the circuit breaker state.
func (gc *GeminiClient) BreakerState() gobreaker.State {
	return gc.breaker.State()
}

func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

func NewTokenCounter(limits RateLimits) *TokenCounter {
	return &TokenCounter{limits: limits}
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()

	// Reset counters if time windows expired
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}

	if tc.minuteRequests+requests > tc.limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > tc.limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > tc.limits.RPD {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}

// Rough estimation: 1 token ≈ 4 characters
func estimateTokens(parts []genai.Part) int {
	chars := 0
	for _, p := range parts {
		if text, ok := p.(genai.Text); ok {
			chars += len(text)
		}
	}
	return chars / 4
}

func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}

	estimated := len(responseText(resp)) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// GeminiAnswerer turns a generative model into an extractive one by asking
// it to copy a span from the passage.
type GeminiAnswerer struct {
	client *GeminiClient
}

func NewGeminiAnswerer(client *GeminiClient) *GeminiAnswerer {
	return &GeminiAnswerer{client: client}
}

const extractiveInstruction = `You answer questions by quoting the context. Reply with JSON {"answer": string, "score": number}.
"answer" must be the shortest span copied verbatim from the context that answers the question, or "" when the context does not contain the answer.
"score" is your confidence between 0 and 1.`

type geminiSpan struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

func (a *GeminiAnswerer) Answer(ctx context.Context, question, passage string) (Answer, error) {
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", passage, question)
	text, err := a.client.Generate(ctx, GenerateOptions{
		Temperature:       0,
		MaxOutputTokens:   512,
		SystemInstruction: extractiveInstruction,
		JSON:              true,
	}, genai.Text(prompt))
	if err != nil {
		return Answer{}, err
	}

	return parseSpan(text, passage)
}

func parseSpan(raw, passage string) (Answer, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var span geminiSpan
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &span); err != nil {
		return Answer{}, fmt.Errorf("failed to decode gemini answer: %w", err)
	}

	answer := Answer{
		Text:  strings.TrimSpace(span.Answer),
		Score: clampScore(span.Score),
		Start: -1,
		End:   -1,
	}
	if answer.Text == "" {
		answer.Score = 0
		return answer, nil
	}
	if idx := strings.Index(passage, answer.Text); idx >= 0 {
		answer.Start = utf8.RuneCountInString(passage[:idx])
		answer.End = answer.Start + utf8.RuneCountInString(answer.Text)
	}
	return answer, nil
}
