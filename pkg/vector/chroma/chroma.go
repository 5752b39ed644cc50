// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/glyph/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing glyph embeddings.
	DefaultCollectionName = "glyph"

	defaultMaxRetries    = 10
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds how many times the collection lookup is attempted
	// while Chroma is still starting up.
	MaxRetries int

	// RetryDelay is the initial delay between attempts. It doubles on each
	// failure up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, retrying the collection
// lookup with exponential backoff.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err := d.getOrCreateCollection(context.Background())
		if err == nil {
			d.collectionID = collectionID
			logger.Info("connected to Chroma",
				"url", c.URL,
				"collection", collectionName,
				"collection_id", collectionID,
			)
			return d, nil
		}

		lastErr = err
		logger.Debug("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if attempt < maxRetries {
			time.Sleep(delay)
			delay = min(delay*2, maxDelay)
		}
	}

	return nil, fmt.Errorf("%w: getting or creating collection %q after %d attempts: %v",
		vector.ErrConnection, collectionName, maxRetries, lastErr)
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (d *Driver) do(ctx context.Context, method, url string, body, out any, okStatus ...int) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, s := range okStatus {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// getOrCreateCollection looks the collection up by name and creates it in
// cosine space when missing.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var coll collection

	getErr := d.do(ctx, http.MethodGet,
		fmt.Sprintf("%s%s/%s", d.baseURL, collectionsPath, d.collectionName),
		nil, &coll, http.StatusOK,
	)
	if getErr == nil {
		return coll.ID, nil
	}

	err := d.do(ctx, http.MethodPost,
		d.baseURL+collectionsPath,
		createCollectionRequest{
			Name:        d.collectionName,
			Metadata:    map[string]any{"hnsw:space": "cosine"},
			GetOrCreate: true,
		},
		&coll, http.StatusOK, http.StatusCreated,
	)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return coll.ID, nil
}

func (d *Driver) collectionURL(op string) string {
	return fmt.Sprintf("%s%s/%s/%s", d.baseURL, collectionsPath, d.collectionID, op)
}

func toAnyMap(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toStringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	reqBody := upsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
	}

	hasMetadata := false
	metadatas := make([]map[string]any, len(docs))
	for i, doc := range docs {
		reqBody.IDs[i] = doc.ID
		reqBody.Embeddings[i] = doc.Embedding
		metadatas[i] = toAnyMap(doc.Metadata)
		if metadatas[i] != nil {
			hasMetadata = true
		}
	}
	if hasMetadata {
		reqBody.Metadatas = metadatas
	}

	if err := d.do(ctx, http.MethodPost, d.collectionURL("upsert"), reqBody, nil,
		http.StatusOK, http.StatusCreated,
	); err != nil {
		return fmt.Errorf("%w: upserting documents: %v", vector.ErrStore, err)
	}

	d.logger.Debug("upserted documents to chroma", "count", len(docs))

	return nil
}

// Query finds the topK most similar documents to the given embedding.
// Equal scores keep Chroma's order, which does not track insertion.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	var queryResp queryResponse
	if err := d.do(ctx, http.MethodPost, d.collectionURL("query"), queryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances"},
	}, &queryResp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("%w: querying: %v", vector.ErrStore, err)
	}

	results := []vector.QueryResult{}

	// Only one query embedding is sent, so only the first group matters.
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]

	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{
			Document: vector.Document{ID: id},
		}

		if i < len(metadatas) {
			result.Metadata = toStringMap(metadatas[i])
		}

		// cosine distance
		if i < len(distances) {
			result.Score = 1 - distances[i]
		}

		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results))

	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var getResp getResponse
	if err := d.do(ctx, http.MethodPost, d.collectionURL("get"), getRequest{
		IDs:     ids,
		Include: []string{"metadatas", "embeddings"},
	}, &getResp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("%w: getting documents: %v", vector.ErrStore, err)
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i] = vector.Document{ID: id}

		if i < len(getResp.Metadatas) {
			docs[i].Metadata = toStringMap(getResp.Metadatas[i])
		}

		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.do(ctx, http.MethodPost, d.collectionURL("delete"),
		deleteRequest{IDs: ids}, nil, http.StatusOK,
	); err != nil {
		return fmt.Errorf("%w: deleting documents: %v", vector.ErrStore, err)
	}

	d.logger.Debug("deleted documents from chroma", "count", len(ids))

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
