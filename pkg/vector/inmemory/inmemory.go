// Package inmemory provides an in-process vector driver that scores every
// stored embedding against the query by cosine similarity.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/glyph/pkg/vector"
)

type entry struct {
	// seq is the insertion sequence of the first Add for this ID. It is kept
	// across overwrites and breaks score ties.
	seq uint64
	doc vector.Document
}

// Driver implements vector.Driver using an in-memory map.
type Driver struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
}

// NewDriver creates a new in-memory vector driver.
func NewDriver() *Driver {
	return &Driver{
		entries: make(map[string]*entry),
	}
}

// Add upserts documents. The stored embedding and metadata are copies, so
// callers may reuse their slices and maps.
func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		stored := vector.Document{
			ID:        doc.ID,
			Embedding: slices.Clone(doc.Embedding),
			Metadata:  maps.Clone(doc.Metadata),
		}

		if e, ok := d.entries[doc.ID]; ok {
			e.doc = stored
			continue
		}

		d.entries[doc.ID] = &entry{seq: d.nextSeq, doc: stored}
		d.nextSeq++
	}

	return nil
}

// Query scores all stored documents and returns the topK best matches.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	type scored struct {
		seq    uint64
		result vector.QueryResult
	}

	d.mu.RLock()
	candidates := make([]scored, 0, len(d.entries))
	for _, e := range d.entries {
		candidates = append(candidates, scored{
			seq: e.seq,
			result: vector.QueryResult{
				Document: vector.Document{
					ID:        e.doc.ID,
					Embedding: slices.Clone(e.doc.Embedding),
					Metadata:  maps.Clone(e.doc.Metadata),
				},
				Score: vector.CosineSimilarity(embedding, e.doc.Embedding),
			},
		})
	}
	d.mu.RUnlock()

	slices.SortFunc(candidates, func(a, b scored) int {
		switch {
		case a.result.Score > b.result.Score:
			return -1
		case a.result.Score < b.result.Score:
			return 1
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]vector.QueryResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.result
	}

	return results, nil
}

// Get retrieves documents by their IDs. Unknown IDs are skipped.
func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		e, ok := d.entries[id]
		if !ok {
			continue
		}
		docs = append(docs, vector.Document{
			ID:        e.doc.ID,
			Embedding: slices.Clone(e.doc.Embedding),
			Metadata:  maps.Clone(e.doc.Metadata),
		})
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.entries, id)
	}

	return nil
}

// Len returns the number of stored documents.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

var _ vector.Driver = (*Driver)(nil)
