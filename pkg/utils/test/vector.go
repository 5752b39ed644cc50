package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/glyph/pkg/vector"
)

// MockVectorDriver is a test vector driver that records calls.
type MockVectorDriver struct {
	mu        sync.Mutex
	documents []vector.Document
	results   []vector.QueryResult

	queries []int

	// FailAddOn makes Add fail for a document with this id.
	FailAddOn string

	// FailQuery makes Query return an ErrStore error.
	FailQuery bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

// SetResults sets the results returned by Query.
func (m *MockVectorDriver) SetResults(results []vector.QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		if m.FailAddOn != "" && d.ID == m.FailAddOn {
			return fmt.Errorf("%w: mock add failure for: %s", vector.ErrStore, d.ID)
		}
	}
	m.documents = append(m.documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, topK)
	if m.FailQuery {
		return nil, fmt.Errorf("%w: mock query failure", vector.ErrStore)
	}
	out := make([]vector.QueryResult, len(m.results))
	copy(out, m.results)
	return out, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vector.Document
	for _, id := range ids {
		for _, d := range m.documents {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// Documents returns every document passed to Add.
func (m *MockVectorDriver) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]vector.Document, len(m.documents))
	copy(out, m.documents)
	return out
}

// QueryCalls returns the topK of every Query call.
func (m *MockVectorDriver) QueryCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.queries))
	copy(out, m.queries)
	return out
}

var _ vector.Driver = (*MockVectorDriver)(nil)
