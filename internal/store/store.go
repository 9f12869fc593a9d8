// Package store persists documents and their question/answer history.
//
// Three backends share the DocumentStore contract: an in-process map
// (the default, matching a single-process deployment), a relational
// store through gorm (sqlite, postgres, mysql) and MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/models"
)

// ErrDocumentNotFound is returned when a document id has never been assigned.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore holds uploaded documents keyed by identifier along with
// the questions asked against them.
type DocumentStore interface {
	// CreateDocument assigns a new unique id and stores the document.
	CreateDocument(ctx context.Context, title, text string) (*models.Document, error)
	// GetDocument returns ErrDocumentNotFound for unknown ids.
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	// DocumentIDs lists every known id in ascending order.
	DocumentIDs(ctx context.Context) ([]int64, error)
	// ListDocuments returns all documents in id order with their history.
	ListDocuments(ctx context.Context) ([]models.DocumentWithHistory, error)
	// AddQuestionAnswer fails with ErrDocumentNotFound when documentID is unknown.
	AddQuestionAnswer(ctx context.Context, documentID int64, question, answer string) (*models.QuestionAnswer, error)
	// QuestionAnswers returns the history of one document in creation order.
	QuestionAnswers(ctx context.Context, documentID int64) ([]models.QuestionAnswer, error)
	Close() error
}

// Open builds the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (DocumentStore, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	case config.StoreSQLite, config.StorePostgres, config.StoreMySQL:
		return NewSQLStore(cfg.StoreDriver, cfg.DatabaseDSN)
	case config.StoreMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(client, cfg.DBName, true), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}
}
