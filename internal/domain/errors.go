package domain

import "errors"

var (
	// ErrEmptyQuery signals a search with empty or whitespace-only query text.
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrInvalidRequest signals an out-of-range search parameter.
	ErrInvalidRequest = errors.New("invalid search request")
	// ErrInvalidFilter signals a malformed or unsatisfiable filter expression.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrUnsupportedSchemaVersion signals a record from a future schema.
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")
	// ErrRecordNotFound signals a missing corpus record.
	ErrRecordNotFound = errors.New("record not found")

	// ErrEmbeddingUnavailable signals an embedding gateway failure or timeout.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrEmbeddingDimMismatch signals a vector of unexpected dimensionality.
	ErrEmbeddingDimMismatch = errors.New("embedding dimension mismatch")
	// ErrIndexUnavailable signals a vector index failure or timeout.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
