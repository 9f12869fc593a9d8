package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/store"
	"pdf-qa-service/internal/telemetry"
	"pdf-qa-service/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// QAOptions controls chunking for every question.
type QAOptions struct {
	ChunkSize    int
	ChunkOverlap int
}

// AskResult is the chosen answer plus how it was chosen.
type AskResult struct {
	DocumentID int64   `json:"document_id"`
	Answer     string  `json:"answer"`
	Strategy   string  `json:"strategy"`
	Similarity float64 `json:"similarity,omitempty"`
	Chunks     int     `json:"chunks"`
}

// QAService owns the upload and ask pipelines. It remembers the most
// recently uploaded document so questions may omit the id.
type QAService struct {
	store     store.DocumentStore
	extractor TextExtractor
	answerer  ai.Answerer
	reranker  *Reranker
	opts      QAOptions
	metrics   *telemetry.Metrics

	mu         sync.RWMutex
	lastDocID  int64
	hasLastDoc bool
}

func NewQAService(
	docs store.DocumentStore,
	extractor TextExtractor,
	answerer ai.Answerer,
	reranker *Reranker,
	opts QAOptions,
	metrics *telemetry.Metrics,
) (*QAService, error) {
	if opts.ChunkSize <= 0 || opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		return nil, ErrInvalidChunkConfig
	}
	return &QAService{
		store:     docs,
		extractor: extractor,
		answerer:  answerer,
		reranker:  reranker,
		opts:      opts,
		metrics:   metrics,
	}, nil
}

// RestoreLastDocument points the fallback at the highest stored id, so a
// restart against a persistent store behaves like an upload just happened.
func (s *QAService) RestoreLastDocument(ctx context.Context) error {
	ids, err := s.store.DocumentIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	s.setLastDocument(ids[len(ids)-1])
	return nil
}

// LastDocumentID reports the most recent upload, if any.
func (s *QAService) LastDocumentID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDocID, s.hasLastDoc
}

func (s *QAService) setLastDocument(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDocID = id
	s.hasLastDoc = true
}

// UploadPDF extracts and stores a document. Nothing is stored when the
// PDF is unreadable or has no text.
func (s *QAService) UploadPDF(ctx context.Context, title string, content []byte) (*models.Document, error) {
	ctx, span := otel.Tracer("pdf-qa-service").Start(ctx, "qa.upload_pdf")
	defer span.End()

	result, err := s.extractor.Extract(ctx, content)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	doc, err := s.store.CreateDocument(ctx, title, result.Text)
	s.metrics.RecordDatabaseOperation("create_document", err == nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	s.setLastDocument(doc.ID)
	span.SetAttributes(
		attribute.Int64("document.id", doc.ID),
		attribute.String("pdf.method", result.Method),
	)
	logger.Info("Document uploaded",
		"document_id", doc.ID,
		"title", title,
		"method", result.Method,
		"chars", len(result.Text),
	)

	return doc, nil
}

// Ask answers question against documentID, or the last uploaded document
// when documentID is nil or zero.
func (s *QAService) Ask(ctx context.Context, documentID *int64, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := otel.Tracer("pdf-qa-service").Start(ctx, "qa.ask")
	defer span.End()

	result, err := s.ask(ctx, documentID, question)
	strategy := s.reranker.Strategy()
	if err != nil {
		span.RecordError(err)
		s.metrics.RecordQuestion(strategy, "error")
		return nil, err
	}
	s.metrics.RecordQuestion(strategy, "success")
	span.SetAttributes(
		attribute.Int64("document.id", result.DocumentID),
		attribute.Int("qa.chunks", result.Chunks),
		attribute.String("qa.strategy", result.Strategy),
	)
	return result, nil
}

func (s *QAService) ask(ctx context.Context, documentID *int64, question string) (*AskResult, error) {
	doc, err := s.resolveDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunks, err := ChunkText(doc.Text, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	logger.Debug("Document chunked", "document_id", doc.ID, "chunks", len(chunks))

	candidates := make([]Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		start := time.Now()
		ans, err := s.answerer.Answer(ctx, question, chunk.Text)
		s.metrics.RecordModelCall("qa", err == nil, time.Since(start).Seconds())
		if err != nil {
			return nil, &ModelError{Stage: "qa", Err: err}
		}
		candidates = append(candidates, Candidate{
			Text:  ans.Text,
			Score: ans.Score,
			Start: ans.Start,
			End:   ans.End,
			Chunk: chunk.Index,
		})
	}

	selection, err := s.reranker.Select(ctx, question, candidates)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.AddQuestionAnswer(ctx, doc.ID, question, selection.Answer); err != nil {
		s.metrics.RecordDatabaseOperation("add_question_answer", false)
		logger.Error("Failed to record question", "document_id", doc.ID, "error", err)
	} else {
		s.metrics.RecordDatabaseOperation("add_question_answer", true)
	}

	logger.Info("Question answered",
		"document_id", doc.ID,
		"chunks", len(chunks),
		"strategy", selection.Strategy,
		"selected", selection.Index,
	)

	return &AskResult{
		DocumentID: doc.ID,
		Answer:     selection.Answer,
		Strategy:   selection.Strategy,
		Similarity: selection.Similarity,
		Chunks:     len(chunks),
	}, nil
}

func (s *QAService) resolveDocument(ctx context.Context, documentID *int64) (*models.Document, error) {
	var id int64
	if documentID != nil && *documentID != 0 {
		id = *documentID
	} else if last, ok := s.LastDocumentID(); ok {
		id = last
	} else {
		return nil, s.notFound(ctx, 0)
	}

	doc, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return nil, s.notFound(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	return doc, nil
}

func (s *QAService) notFound(ctx context.Context, id int64) error {
	ids, err := s.store.DocumentIDs(ctx)
	if err != nil {
		logger.Warn("Failed to list document ids", "error", err)
		ids = []int64{}
	}
	return &DocumentNotFoundError{ID: id, Available: ids}
}

// QuestionHistory returns the questions asked against a document in order.
func (s *QAService) QuestionHistory(ctx context.Context, documentID int64) ([]models.QuestionAnswer, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, s.notFound(ctx, documentID)
		}
		return nil, err
	}
	return s.store.QuestionAnswers(ctx, documentID)
}

func (s *QAService) ListDocuments(ctx context.Context) ([]models.DocumentWithHistory, error) {
	return s.store.ListDocuments(ctx)
}

func (s *QAService) DocumentIDs(ctx context.Context) ([]int64, error) {
	return s.store.DocumentIDs(ctx)
}
