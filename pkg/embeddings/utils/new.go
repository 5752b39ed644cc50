// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/glyph/pkg/embeddings"
	"github.com/papercomputeco/glyph/pkg/embeddings/hash"
	"github.com/papercomputeco/glyph/pkg/embeddings/ollama"
)

// Supported provider names.
const (
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderHash, "":
		return hash.NewEmbedder(o.Dimensions)
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
