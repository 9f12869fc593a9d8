package models

import "time"

// Document is an uploaded PDF reduced to its extracted text.
// It is never mutated after creation.
type Document struct {
	ID              int64            `gorm:"primaryKey;autoIncrement" bson:"doc_id" json:"id"`
	Title           string           `gorm:"size:512" bson:"title" json:"title"`
	Text            string           `gorm:"not null" bson:"text" json:"text"`
	CreatedAt       time.Time        `bson:"created_at" json:"created_at"`
	QuestionAnswers []QuestionAnswer `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" bson:"-" json:"-"`
}

// QuestionAnswer records one successful ask against a document.
type QuestionAnswer struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" bson:"qa_id" json:"id"`
	DocumentID int64     `gorm:"index;not null" bson:"document_id" json:"document_id"`
	Question   string    `gorm:"not null" bson:"question" json:"question"`
	Answer     string    `gorm:"not null" bson:"answer" json:"answer"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// DocumentWithHistory pairs a document with its recorded questions.
type DocumentWithHistory struct {
	Document
	History []QuestionAnswer
}
