package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/telemetry"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Extraction method names accepted in PDF_EXTRACTORS.
const (
	MethodGoPDF   = "go-pdf"
	MethodPoppler = "poppler"
	MethodGemini  = "gemini"
)

// TextExtractor turns raw PDF bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (*ExtractionResult, error)
}

// ExtractionResult contains the result of PDF text extraction
type ExtractionResult struct {
	Text           string
	Pages          int
	Method         string
	ProcessingTime time.Duration
}

type extractionMethod struct {
	name    string
	extract func(context.Context, []byte) (string, int, error)
}

// PDFExtractor tries its methods in order and keeps the first one that
// yields non-blank text.
type PDFExtractor struct {
	methods []extractionMethod
	metrics *telemetry.Metrics
}

// NewPDFExtractor builds the fallback chain from method names. gemini is
// only required when "gemini" is listed.
func NewPDFExtractor(names []string, gemini *ai.GeminiClient, metrics *telemetry.Metrics) (*PDFExtractor, error) {
	e := &PDFExtractor{metrics: metrics}
	for _, name := range names {
		switch name {
		case MethodGoPDF:
			e.methods = append(e.methods, extractionMethod{name, extractWithGoPDF})
		case MethodPoppler:
			e.methods = append(e.methods, extractionMethod{name, extractWithPoppler})
		case MethodGemini:
			if gemini == nil {
				return nil, fmt.Errorf("pdf extractor %q requires GEMINI_API_KEY", name)
			}
			e.methods = append(e.methods, extractionMethod{name, func(ctx context.Context, content []byte) (string, int, error) {
				text, err := gemini.ExtractPDFText(ctx, content)
				return text, 0, err
			}})
		default:
			return nil, fmt.Errorf("unknown pdf extractor: %s", name)
		}
	}
	if len(e.methods) == 0 {
		return nil, errors.New("no pdf extraction methods configured")
	}
	return e, nil
}

// Extract returns ErrNoTextExtracted when some method parsed the document
// but found no text, and ErrUnreadablePDF when every method failed.
func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (*ExtractionResult, error) {
	ctx, span := otel.Tracer("pdf-qa-service").Start(ctx, "pdf.extract")
	defer span.End()
	span.SetAttributes(attribute.Int("pdf.bytes", len(content)))

	var lastErr error
	parsed := false

	for _, method := range e.methods {
		start := time.Now()
		text, pages, err := method.extract(ctx, content)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("PDF extraction method failed", "method", method.name, "error", err)
			e.metrics.RecordPDFProcessing(elapsed.Seconds(), method.name, "error")
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		parsed = true
		if strings.TrimSpace(text) == "" {
			logger.Info("PDF extraction method found no text", "method", method.name)
			e.metrics.RecordPDFProcessing(elapsed.Seconds(), method.name, "empty")
			continue
		}

		e.metrics.RecordPDFProcessing(elapsed.Seconds(), method.name, "success")
		span.SetAttributes(
			attribute.String("pdf.method", method.name),
			attribute.Int("pdf.chars", len(text)),
		)
		logger.Debug("PDF text extracted", "method", method.name, "chars", len(text), "pages", pages)

		return &ExtractionResult{
			Text:           text,
			Pages:          pages,
			Method:         method.name,
			ProcessingTime: elapsed,
		}, nil
	}

	if parsed {
		return nil, ErrNoTextExtracted
	}
	span.RecordError(lastErr)
	return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, lastErr)
}

// extractWithGoPDF concatenates the plain text of every page in order.
func extractWithGoPDF(_ context.Context, content []byte) (text string, pages int, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go-pdf panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var sb strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			font := page.Font(name)
			fonts[name] = &font
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}
		sb.WriteString(pageText)
	}

	return sb.String(), pages, nil
}

// extractWithPoppler goes through docconv, which shells out to pdftotext.
func extractWithPoppler(ctx context.Context, content []byte) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	res, err := docconv.Convert(bytes.NewReader(content), "application/pdf", false)
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext conversion failed: %w", err)
	}
	pages := 0
	if n, ok := res.Meta["Pages"]; ok {
		fmt.Sscanf(strings.TrimSpace(n), "%d", &pages)
	}
	return res.Body, pages, nil
}
