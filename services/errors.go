package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadablePDF means no extraction method could parse the upload.
	ErrUnreadablePDF = errors.New("failed to read the PDF document")
	// ErrNoTextExtracted means the PDF parsed but contains no text.
	ErrNoTextExtracted = errors.New("no text found in the PDF document")
	// ErrNoChunks means the stored text produced no chunks to answer from.
	ErrNoChunks = errors.New("no text chunks created from the document")
	// ErrNoCandidates means no chunk produced a candidate answer.
	ErrNoCandidates = errors.New("no candidate answers to select from")

	ErrEmptyQuestion      = errors.New("question must not be empty")
	ErrInvalidChunkConfig = errors.New("chunk size must be positive and overlap must be in [0, size)")
)

// DocumentNotFoundError reports a missing document together with the ids
// that do exist so clients can recover.
type DocumentNotFoundError struct {
	ID        int64
	Available []int64
}

func (e *DocumentNotFoundError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("Document not found. Available document IDs: %v", e.Available)
	}
	return fmt.Sprintf("Document %d not found. Available document IDs: %v", e.ID, e.Available)
}

// ModelError wraps a failure of the answerer or the embedder.
type ModelError struct {
	Stage string // "qa" or "embedding"
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s model failed: %v", e.Stage, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
