package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdf-qa-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentsCollection = "documents"
	qaCollection        = "question_answers"
	countersCollection  = "counters"
)

// MongoStore keeps documents in MongoDB. Integer ids come from a counters
// collection so they match the other backends.
type MongoStore struct {
	client     *mongo.Client
	db         *mongo.Database
	ownsClient bool
}

// NewMongoStore uses dbName on client. When ownsClient is set Close
// disconnects the client.
func NewMongoStore(client *mongo.Client, dbName string, ownsClient bool) *MongoStore {
	return &MongoStore{
		client:     client,
		db:         client.Database(dbName),
		ownsClient: ownsClient,
	}
}

func (s *MongoStore) nextSequence(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.db.Collection(countersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func (s *MongoStore) CreateDocument(ctx context.Context, title, text string) (*models.Document, error) {
	id, err := s.nextSequence(ctx, documentsCollection)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:        id,
		Title:     title,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.Collection(documentsCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc, nil
}

func (s *MongoStore) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	err := s.db.Collection(documentsCollection).FindOne(ctx, bson.M{"doc_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	return &doc, nil
}

func (s *MongoStore) DocumentIDs(ctx context.Context) ([]int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "doc_id", Value: 1}}).
		SetProjection(bson.M{"doc_id": 1})
	cursor, err := s.db.Collection(documentsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}
	defer cursor.Close(ctx)

	ids := make([]int64, 0)
	for cursor.Next(ctx) {
		var row struct {
			ID int64 `bson:"doc_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cursor.Err()
}

func (s *MongoStore) ListDocuments(ctx context.Context) ([]models.DocumentWithHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "doc_id", Value: 1}})
	cursor, err := s.db.Collection(documentsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	result := make([]models.DocumentWithHistory, 0, len(docs))
	for _, doc := range docs {
		history, err := s.QuestionAnswers(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.DocumentWithHistory{Document: doc, History: history})
	}
	return result, nil
}

func (s *MongoStore) AddQuestionAnswer(ctx context.Context, documentID int64, question, answer string) (*models.QuestionAnswer, error) {
	count, err := s.db.Collection(documentsCollection).CountDocuments(ctx, bson.M{"doc_id": documentID})
	if err != nil {
		return nil, fmt.Errorf("failed to check document %d: %w", documentID, err)
	}
	if count == 0 {
		return nil, ErrDocumentNotFound
	}

	id, err := s.nextSequence(ctx, qaCollection)
	if err != nil {
		return nil, err
	}

	qa := &models.QuestionAnswer{
		ID:         id,
		DocumentID: documentID,
		Question:   question,
		Answer:     answer,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.Collection(qaCollection).InsertOne(ctx, qa); err != nil {
		return nil, fmt.Errorf("failed to insert question answer: %w", err)
	}
	return qa, nil
}

func (s *MongoStore) QuestionAnswers(ctx context.Context, documentID int64) ([]models.QuestionAnswer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "qa_id", Value: 1}})
	cursor, err := s.db.Collection(qaCollection).Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for document %d: %w", documentID, err)
	}

	history := make([]models.QuestionAnswer, 0)
	if err := cursor.All(ctx, &history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return history, nil
}

func (s *MongoStore) Close() error {
	if !s.ownsClient {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
