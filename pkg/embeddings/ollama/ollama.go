// Package ollama implements embeddings.Embedder against Ollama's /api/embed endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/glyph/pkg/embeddings"
	"github.com/papercomputeco/glyph/pkg/vector"
)

const (
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultBaseURL        = "http://localhost:11434"

	defaultTimeout = 120 * time.Second

	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// EmbedderConfig holds configuration for the Ollama embedder. Zero values
// fall back to the package defaults.
type EmbedderConfig struct {
	BaseURL string
	Model   string

	// Dimensions, when set, asks the model to truncate its output to this
	// length. Models that cannot do so return their native size and the
	// indexer rejects the document.
	Dimensions uint

	// Timeout bounds a single embed request.
	Timeout time.Duration
}

// Embedder wraps Ollama's embedding API.
type Embedder struct {
	endpoint   string
	model      string
	dims       uint
	httpClient *http.Client
}

type embedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Truncate   bool   `json:"truncate"`
	Dimensions uint   `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := cmp(cfg.BaseURL, DefaultBaseURL)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Embedder{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/embed",
		model:      cmp(cfg.Model, DefaultEmbeddingModel),
		dims:       cfg.Dimensions,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Embed returns the embedding of text. Input longer than the model context
// is truncated by Ollama rather than rejected.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	err := e.post(ctx, embedRequest{
		Model:      e.model,
		Input:      text,
		Truncate:   true,
		Dimensions: e.dims,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, err)
	}

	switch {
	case len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0:
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	case len(out.Embeddings) > 1:
		return nil, fmt.Errorf("%w: expected one embedding, got %d", vector.ErrEmbedding, len(out.Embeddings))
	}
	return out.Embeddings[0], nil
}

func (e *Embedder) post(ctx context.Context, in embedRequest, out *embedResponse) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

func cmp(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var _ embeddings.Embedder = (*Embedder)(nil)
