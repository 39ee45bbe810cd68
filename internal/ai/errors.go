package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction marks failures of the feature extraction service.
	ErrExtraction = errors.New("feature extraction failed")
	// ErrEmbedding marks failures of the embedding service.
	ErrEmbedding = errors.New("embedding failed")
)

// ExtractionError describes a failed extraction for a single record.
type ExtractionError struct {
	RecordID string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("%s: %v", ErrExtraction, e.Err)
	}
	return fmt.Sprintf("%s for %s: %v", ErrExtraction, e.RecordID, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// EmbeddingError describes a failed embedding call.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", ErrEmbedding, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", ErrEmbedding, e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbedding, e.Err}
}
