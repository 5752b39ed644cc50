// Package vector provides interfaces and implementations for vector storage
// and k-nearest-neighbor retrieval.
package vector

import "context"

// DefaultTopK is used by drivers when Query is called with a non-positive topK.
const DefaultTopK = 10

// Document represents an indexed item with its embedding and metadata.
type Document struct {
	// ID is the caller-supplied identifier. Adding a document with an ID
	// that already exists supersedes the stored entry.
	ID string

	// Embedding is the vector representation of the document text.
	Embedding []float32

	// Metadata is optional caller-supplied data returned with query results.
	Metadata map[string]string
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Add upserts documents with their embeddings.
	// If a document with the same ID already exists, implementers must
	// overwrite it rather than store a duplicate.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// ordered by descending score. Embedded drivers (inmemory, sqlitevec,
	// pgvector) return equal scores in the order their IDs were first added.
	// Remote servers (chroma, qdrant) order ties themselves.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
