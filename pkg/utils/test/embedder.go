package testutils

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/glyph/pkg/vector"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu         sync.Mutex
	Embeddings map[string][]float32

	// Default is returned for text without an entry in Embeddings.
	Default []float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Gate, when set, makes every Embed call wait for a receive on it or for
	// ctx to be done.
	Gate chan struct{}

	calls    atomic.Int64
	inflight atomic.Int64
	peak     atomic.Int64
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
	}
}

// Set registers the embedding returned for text.
func (m *MockEmbedder) Set(text string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Embeddings[text] = embedding
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, ctx.Err())
		}
	}

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", vector.ErrEmbedding, text)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}
	return m.Default, nil
}

// Calls returns how many times Embed was invoked.
func (m *MockEmbedder) Calls() int64 {
	return m.calls.Load()
}

// PeakInFlight returns the highest number of concurrent Embed calls seen.
func (m *MockEmbedder) PeakInFlight() int64 {
	return m.peak.Load()
}

func (m *MockEmbedder) Close() error {
	return nil
}
