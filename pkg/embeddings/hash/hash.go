// Package hash provides a deterministic feature-hashing embedder. It needs no
// model server, which makes it the default for local and offline runs.
package hash

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/papercomputeco/glyph/pkg/embeddings"
	"github.com/papercomputeco/glyph/pkg/vector"
)

// DefaultDimensions is used when no dimension is configured.
const DefaultDimensions = 384

// Embedder hashes lowercase word unigrams and bigrams into a fixed number of
// signed buckets and L2-normalizes the result.
type Embedder struct {
	dims uint
}

// NewEmbedder creates a hash embedder producing vectors of length dims.
func NewEmbedder(dims uint) (*Embedder, error) {
	if dims == 0 {
		dims = DefaultDimensions
	}
	if dims > math.MaxInt32 {
		return nil, errors.New("hash embedder dimensions out of range")
	}
	return &Embedder{dims: dims}, nil
}

// Dimensions reports the vector length.
func (e *Embedder) Dimensions() uint {
	return e.dims
}

// Embed converts text into a unit-length vector. Equal text always yields an
// equal vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, err)
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in text", vector.ErrEmbedding)
	}

	out := make([]float32, e.dims)
	for i, tok := range tokens {
		e.add(out, tok, 1)
		if i > 0 {
			e.add(out, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range out {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range out {
			out[i] = float32(float64(out[i]) / norm)
		}
	}
	return out, nil
}

func (e *Embedder) add(out []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := sum % uint64(e.dims)
	if sum>>63 == 1 {
		weight = -weight
	}
	out[bucket] += weight
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
