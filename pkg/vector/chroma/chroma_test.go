package chroma_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	glyphlogger "github.com/papercomputeco/glyph/pkg/logger"
	"github.com/papercomputeco/glyph/pkg/vector"
	"github.com/papercomputeco/glyph/pkg/vector/chroma"
)

// fakeChroma records upserts and answers queries with canned data.
type fakeChroma struct {
	mu       sync.Mutex
	upserted []map[string]any
	deleted  []string
}

func (f *fakeChroma) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/collections/glyph"):
			json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "glyph"})
		case strings.HasSuffix(r.URL.Path, "/col-1/upsert"):
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.upserted = append(f.upserted, body)
			f.mu.Unlock()
			w.Write([]byte(`{}`))
		case strings.HasSuffix(r.URL.Path, "/col-1/query"):
			json.NewEncoder(w).Encode(map[string]any{
				"ids":       [][]string{{"doc-a", "doc-b"}},
				"distances": [][]float32{{0, 0.5}},
				"metadatas": [][]map[string]any{{{"source": "a.txt"}, nil}},
			})
		case strings.HasSuffix(r.URL.Path, "/col-1/get"):
			json.NewEncoder(w).Encode(map[string]any{
				"ids":        []string{"doc-a"},
				"metadatas":  []map[string]any{{"source": "a.txt", "n": 3}},
				"embeddings": [][]float32{{0.1, 0.2}},
			})
		case strings.HasSuffix(r.URL.Path, "/col-1/delete"):
			var body struct {
				IDs []string `json:"ids"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.deleted = append(f.deleted, body.IDs...)
			f.mu.Unlock()
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	})
}

var _ = Describe("Driver", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = glyphlogger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			// Each retry cycle issues a GET then a create POST. Fail the first
			// two cycles to simulate Chroma still starting up.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"id": "test-collection-id", "name": "glyph"})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("creates a missing collection in cosine space", func() {
			var created map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					http.Error(w, "not found", http.StatusNotFound)
					return
				}
				json.NewDecoder(r.Body).Decode(&created)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"id": "new-id", "name": "glyph"})
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{URL: server.URL, MaxRetries: 1}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(HaveKeyWithValue("name", "glyph"))
			Expect(created).To(HaveKeyWithValue("get_or_create", true))
			Expect(created["metadata"]).To(HaveKeyWithValue("hnsw:space", "cosine"))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})
	})

	Describe("operations", func() {
		var (
			fake   *fakeChroma
			server *httptest.Server
			driver *chroma.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			fake = &fakeChroma{}
			server = httptest.NewServer(fake.handler())
			ctx = context.Background()

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL, MaxRetries: 1}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
			server.Close()
		})

		It("upserts ids, embeddings and metadata", func() {
			err := driver.Add(ctx, []vector.Document{
				{ID: "doc-a", Embedding: []float32{0.1, 0.2}, Metadata: map[string]string{"source": "a.txt"}},
			})
			Expect(err).NotTo(HaveOccurred())

			fake.mu.Lock()
			defer fake.mu.Unlock()
			Expect(fake.upserted).To(HaveLen(1))
			Expect(fake.upserted[0]["ids"]).To(ConsistOf("doc-a"))
			Expect(fake.upserted[0]).To(HaveKey("metadatas"))
		})

		It("converts cosine distances into similarity scores", func() {
			results, err := driver.Query(ctx, []float32{0.1, 0.2}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("doc-a"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-6))
			Expect(results[0].Metadata).To(HaveKeyWithValue("source", "a.txt"))
			Expect(results[1].Score).To(BeNumerically("~", 0.5, 1e-6))
			Expect(results[1].Metadata).To(BeNil())
		})

		It("stringifies non-string metadata values on Get", func() {
			docs, err := driver.Get(ctx, []string{"doc-a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("n", "3"))
			Expect(docs[0].Embedding).To(Equal([]float32{0.1, 0.2}))
		})

		It("deletes by id", func() {
			Expect(driver.Delete(ctx, []string{"doc-a"})).To(Succeed())
			fake.mu.Lock()
			defer fake.mu.Unlock()
			Expect(fake.deleted).To(ConsistOf("doc-a"))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})
})
