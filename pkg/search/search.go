// Package search runs k-nearest-neighbour queries against the vector store.
// It backs the gRPC Search RPC, the REST endpoint and the MCP tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/papercomputeco/glyph/pkg/embeddings"
	"github.com/papercomputeco/glyph/pkg/vector"
)

// ErrInvalidArgument is returned for a non-positive limit or an empty query.
var ErrInvalidArgument = errors.New("invalid argument")

// SearchInput represents the input arguments for a text search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Result is a single ranked match.
type Result struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string   `json:"query,omitempty"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Config is the configuration for a Service.
type Config struct {
	VectorDriver vector.Driver

	// Embedder is only needed for SearchText.
	Embedder embeddings.Embedder

	Dimensions uint

	Logger *slog.Logger
}

// Service validates and executes queries. It keeps no cache.
type Service struct {
	driver   vector.Driver
	embedder embeddings.Embedder
	dims     uint
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(c Config) (*Service, error) {
	if c.VectorDriver == nil {
		return nil, errors.New("search requires a vector driver")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("search requires embedding dimensions")
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		driver:   c.VectorDriver,
		embedder: c.Embedder,
		dims:     c.Dimensions,
		logger:   logger,
	}, nil
}

// Dimensions returns the vector length queries must have.
func (s *Service) Dimensions() uint {
	return s.dims
}

// Search returns at most limit results ordered by descending score. A vector
// of the wrong length fails with vector.ErrDimensionMismatch before the store
// is touched.
func (s *Service) Search(ctx context.Context, query []float32, limit int) ([]Result, error) {
	if err := vector.CheckDimensions(query, s.dims); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}

	matches, err := s.driver.Query(ctx, query, limit)
	if err != nil {
		if errors.Is(err, vector.ErrStore) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", vector.ErrStore, err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}

	s.logger.Debug("search completed", "limit", limit, "results", len(results))
	return results, nil
}

// Embed returns the embedding of text, checked against the configured
// dimension. Empty text is an ErrInvalidArgument.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidArgument)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", vector.ErrEmbedding)
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, vector.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, err)
	}
	if err := vector.CheckDimensions(embedding, s.dims); err != nil {
		return nil, err
	}
	return embedding, nil
}

// SearchText embeds text and searches with the resulting vector.
func (s *Service) SearchText(ctx context.Context, text string, limit int) (*SearchOutput, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidArgument)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}

	s.logger.Debug("search request", "query", text, "limit", limit)

	embedding, err := s.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	results, err := s.Search(ctx, embedding, limit)
	if err != nil {
		return nil, err
	}

	return &SearchOutput{
		Query:   text,
		Results: results,
		Count:   len(results),
	}, nil
}
