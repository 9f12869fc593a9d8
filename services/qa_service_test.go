package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticExtractor returns text verbatim, treating the upload bytes as text.
type staticExtractor struct{}

func (staticExtractor) Extract(_ context.Context, content []byte) (*ExtractionResult, error) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, ErrNoTextExtracted
	}
	return &ExtractionResult{Text: string(content), Method: "static"}, nil
}

// wordAnswerer answers with the first word of the passage and records
// every passage it saw.
type wordAnswerer struct {
	mu       sync.Mutex
	passages []string
	err      error
}

func (w *wordAnswerer) Answer(_ context.Context, _ string, passage string) (ai.Answer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.passages = append(w.passages, passage)
	if w.err != nil {
		return ai.Answer{}, w.err
	}
	fields := strings.Fields(passage)
	if len(fields) == 0 {
		return ai.Answer{Start: -1, End: -1}, nil
	}
	return ai.Answer{Text: fields[0], Score: float64(len(fields[0])) / 10, Start: 0, End: len(fields[0])}, nil
}

func newTestService(t *testing.T, answerer ai.Answerer, strategy string, size, overlap int) (*QAService, store.DocumentStore) {
	t.Helper()
	docs := store.NewMemoryStore()
	svc, err := NewQAService(docs, staticExtractor{}, answerer, NewReranker(strategy, nil), QAOptions{
		ChunkSize:    size,
		ChunkOverlap: overlap,
	}, nil)
	require.NoError(t, err)
	return svc, docs
}

func int64Ptr(v int64) *int64 { return &v }

func TestQAService_UploadAndAsk(t *testing.T) {
	answerer := &wordAnswerer{}
	svc, docs := newTestService(t, answerer, config.StrategyConfidence, 2000, 100)
	ctx := context.Background()

	doc, err := svc.UploadPDF(ctx, "hello.pdf", []byte("Hello World"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.ID)

	res, err := svc.Ask(ctx, int64Ptr(doc.ID), "  What does it say?  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Answer)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, []string{"Hello World"}, answerer.passages)

	history, err := docs.QuestionAnswers(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "What does it say?", history[0].Question)
	assert.Equal(t, "Hello", history[0].Answer)
}

func TestQAService_AskFallsBackToLastUpload(t *testing.T) {
	svc, _ := newTestService(t, &wordAnswerer{}, config.StrategyConfidence, 2000, 100)
	ctx := context.Background()

	_, err := svc.UploadPDF(ctx, "", []byte("first document"))
	require.NoError(t, err)
	second, err := svc.UploadPDF(ctx, "", []byte("second document"))
	require.NoError(t, err)

	res, err := svc.Ask(ctx, nil, "which?")
	require.NoError(t, err)
	assert.Equal(t, second.ID, res.DocumentID)
	assert.Equal(t, "second", res.Answer)

	res, err = svc.Ask(ctx, int64Ptr(0), "which?")
	require.NoError(t, err)
	assert.Equal(t, second.ID, res.DocumentID)
}

func TestQAService_AskUnknownDocumentListsIDs(t *testing.T) {
	svc, _ := newTestService(t, &wordAnswerer{}, config.StrategyConfidence, 2000, 100)
	ctx := context.Background()

	_, err := svc.UploadPDF(ctx, "", []byte("one"))
	require.NoError(t, err)
	_, err = svc.UploadPDF(ctx, "", []byte("two"))
	require.NoError(t, err)

	_, err = svc.Ask(ctx, int64Ptr(42), "q")
	var notFound *DocumentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.EqualValues(t, 42, notFound.ID)
	assert.Equal(t, []int64{1, 2}, notFound.Available)
}

func TestQAService_AskWithoutAnyUpload(t *testing.T) {
	svc, _ := newTestService(t, &wordAnswerer{}, config.StrategyConfidence, 2000, 100)

	_, err := svc.Ask(context.Background(), nil, "q")
	var notFound *DocumentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, notFound.Available)
}

func TestQAService_EmptyQuestion(t *testing.T) {
	svc, _ := newTestService(t, &wordAnswerer{}, config.StrategyConfidence, 2000, 100)
	_, err := svc.Ask(context.Background(), nil, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestQAService_EmptyUploadStoresNothing(t *testing.T) {
	svc, docs := newTestService(t, &wordAnswerer{}, config.StrategyConfidence, 2000, 100)
	ctx := context.Background()

	_, err := svc.UploadPDF(ctx, "", []byte("  "))
	assert.ErrorIs(t, err, ErrNoTextExtracted)

	ids, err := docs.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, ok := svc.LastDocumentID()
	assert.False(t, ok)
}

func TestQAService_AnswersEveryChunkInOrder(t *testing.T) {
	answerer := &wordAnswerer{}
	svc, _ := newTestService(t, answerer, config.StrategyConcatenate, 6, 0)
	ctx := context.Background()

	doc, err := svc.UploadPDF(ctx, "", []byte("alpha bravo charlie"))
	require.NoError(t, err)

	res, err := svc.Ask(ctx, int64Ptr(doc.ID), "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha ", "bravo ", "charli", "e"}, answerer.passages)
	assert.Equal(t, "alpha bravo charli e", res.Answer)
	assert.Equal(t, config.StrategyConcatenate, res.Strategy)
}

func TestQAService_ModelFailureAbortsAndRecordsNothing(t *testing.T) {
	answerer := &wordAnswerer{err: errors.New("inference api down")}
	svc, docs := newTestService(t, answerer, config.StrategyConfidence, 2000, 100)
	ctx := context.Background()

	doc, err := svc.UploadPDF(ctx, "", []byte("text"))
	require.NoError(t, err)

	_, err = svc.Ask(ctx, nil, "q")
	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "qa", modelErr.Stage)

	history, err := docs.QuestionAnswers(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestQAService_RerankUsesEmbedder(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{
		"Who?":  {1, 0, 0},
		"alpha": {0, 1, 0},
		"bravo": {1, 0.1, 0},
	}}
	docs := store.NewMemoryStore()
	svc, err := NewQAService(docs, staticExtractor{}, &wordAnswerer{}, NewReranker(config.StrategyRerank, emb),
		QAOptions{ChunkSize: 6, ChunkOverlap: 0}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.UploadPDF(ctx, "", []byte("alpha bravo"))
	require.NoError(t, err)

	res, err := svc.Ask(ctx, nil, "Who?")
	require.NoError(t, err)
	assert.Equal(t, "bravo", res.Answer)
	assert.Equal(t, config.StrategyRerank, res.Strategy)
}

func TestQAService_QuestionHistory(t *testing.T) {
	svc, _ := newTestService(t, &wordAnswerer{}, config.StrategyConfidence, 2000, 100)
	ctx := context.Background()

	doc, err := svc.UploadPDF(ctx, "", []byte("Hello World"))
	require.NoError(t, err)

	history, err := svc.QuestionHistory(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = svc.Ask(ctx, nil, "first")
	require.NoError(t, err)
	_, err = svc.Ask(ctx, nil, "second")
	require.NoError(t, err)

	history, err = svc.QuestionHistory(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Question)
	assert.Equal(t, "second", history[1].Question)

	_, err = svc.QuestionHistory(ctx, 99)
	var notFound *DocumentNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestQAService_RestoreLastDocument(t *testing.T) {
	docs := store.NewMemoryStore()
	ctx := context.Background()
	_, _ = docs.CreateDocument(ctx, "", "one")
	_, _ = docs.CreateDocument(ctx, "", "two")

	svc, err := NewQAService(docs, staticExtractor{}, &wordAnswerer{}, NewReranker(config.StrategyConfidence, nil),
		QAOptions{ChunkSize: 10, ChunkOverlap: 0}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.RestoreLastDocument(ctx))

	id, ok := svc.LastDocumentID()
	assert.True(t, ok)
	assert.EqualValues(t, 2, id)
}

func TestQAService_ConcurrentUploadsKeepPointerValid(t *testing.T) {
	svc, docs := newTestService(t, &wordAnswerer{}, config.StrategyConfidence, 2000, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.UploadPDF(ctx, "", []byte("concurrent text"))
		}()
	}
	wg.Wait()

	id, ok := svc.LastDocumentID()
	require.True(t, ok)
	_, err := docs.GetDocument(ctx, id)
	assert.NoError(t, err)
}

func TestNewQAService_InvalidChunkConfig(t *testing.T) {
	_, err := NewQAService(store.NewMemoryStore(), staticExtractor{}, &wordAnswerer{}, NewReranker("", nil),
		QAOptions{ChunkSize: 10, ChunkOverlap: 10}, nil)
	assert.ErrorIs(t, err, ErrInvalidChunkConfig)
}
