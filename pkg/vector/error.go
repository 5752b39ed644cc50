package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore is returned when the vector store rejects an upsert or query.
	ErrStore = errors.New("vector store operation failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when a vector does not have the
	// configured embedding dimensions.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
