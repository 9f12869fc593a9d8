package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdf-qa-service/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLStore persists documents in a relational database through gorm.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens the database for driver ("sqlite", "postgres" or
// "mysql") and migrates the schema.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(dsn))
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	s := &SQLStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates or updates the documents and question_answers tables.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.Document{}, &models.QuestionAnswer{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateDocument(ctx context.Context, title, text string) (*models.Document, error) {
	doc := &models.Document{Title: title, Text: text}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc, nil
}

func (s *SQLStore) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	return &doc, nil
}

func (s *SQLStore) DocumentIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	if err := s.db.WithContext(ctx).Model(&models.Document{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}
	return ids, nil
}

func (s *SQLStore) ListDocuments(ctx context.Context) ([]models.DocumentWithHistory, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Preload("QuestionAnswers", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]models.DocumentWithHistory, 0, len(docs))
	for _, doc := range docs {
		history := doc.QuestionAnswers
		if history == nil {
			history = []models.QuestionAnswer{}
		}
		doc.QuestionAnswers = nil
		result = append(result, models.DocumentWithHistory{Document: doc, History: history})
	}
	return result, nil
}

func (s *SQLStore) AddQuestionAnswer(ctx context.Context, documentID int64, question, answer string) (*models.QuestionAnswer, error) {
	qa := &models.QuestionAnswer{
		DocumentID: documentID,
		Question:   question,
		Answer:     answer,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Document{}).Where("id = ?", documentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrDocumentNotFound
		}
		return tx.Create(qa).Error
	})
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to insert question answer: %w", err)
	}

	return qa, nil
}

func (s *SQLStore) QuestionAnswers(ctx context.Context, documentID int64) ([]models.QuestionAnswer, error) {
	history := make([]models.QuestionAnswer, 0)
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history for document %d: %w", documentID, err)
	}
	return history, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sqliteDSN turns on foreign key enforcement unless the DSN already sets pragmas.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
