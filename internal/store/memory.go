package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"pdf-qa-service/models"
)

// MemoryStore keeps documents for the lifetime of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[int64]models.Document
	history   map[int64][]models.QuestionAnswer
	nextDocID int64
	nextQAID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[int64]models.Document),
		history:   make(map[int64][]models.QuestionAnswer),
		nextDocID: 1,
		nextQAID:  1,
	}
}

func (s *MemoryStore) CreateDocument(_ context.Context, title, text string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := models.Document{
		ID:        s.nextDocID,
		Title:     title,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	s.documents[doc.ID] = doc
	s.nextDocID++

	return &doc, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id int64) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &doc, nil
}

func (s *MemoryStore) DocumentIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedIDs(), nil
}

func (s *MemoryStore) ListDocuments(_ context.Context) ([]models.DocumentWithHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sortedIDs()
	result := make([]models.DocumentWithHistory, 0, len(ids))
	for _, id := range ids {
		history := append([]models.QuestionAnswer(nil), s.history[id]...)
		result = append(result, models.DocumentWithHistory{
			Document: s.documents[id],
			History:  history,
		})
	}
	return result, nil
}

func (s *MemoryStore) AddQuestionAnswer(_ context.Context, documentID int64, question, answer string) (*models.QuestionAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[documentID]; !ok {
		return nil, ErrDocumentNotFound
	}

	qa := models.QuestionAnswer{
		ID:         s.nextQAID,
		DocumentID: documentID,
		Question:   question,
		Answer:     answer,
		CreatedAt:  time.Now().UTC(),
	}
	s.history[documentID] = append(s.history[documentID], qa)
	s.nextQAID++

	return &qa, nil
}

func (s *MemoryStore) QuestionAnswers(_ context.Context, documentID int64) ([]models.QuestionAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.QuestionAnswer(nil), s.history[documentID]...), nil
}

func (s *MemoryStore) Close() error { return nil }

// sortedIDs must be called with the lock held.
func (s *MemoryStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.documents))
	for id := range s.documents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
