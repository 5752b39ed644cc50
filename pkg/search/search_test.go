package search_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glyph/pkg/search"
	testutils "github.com/papercomputeco/glyph/pkg/utils/test"
	"github.com/papercomputeco/glyph/pkg/vector"
	"github.com/papercomputeco/glyph/pkg/vector/inmemory"
)

var _ = Describe("Service", func() {
	var (
		ctx   context.Context
		store *inmemory.Driver
		emb   *testutils.MockEmbedder
		svc   *search.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		emb = testutils.NewMockEmbedder()

		var err error
		svc, err = search.NewService(search.Config{VectorDriver: store, Embedder: emb, Dimensions: 3})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a driver and dimensions", func() {
		_, err := search.NewService(search.Config{Dimensions: 3})
		Expect(err).To(HaveOccurred())
		_, err = search.NewService(search.Config{VectorDriver: store})
		Expect(err).To(HaveOccurred())
	})

	Describe("Search", func() {
		It("returns an empty slice for an empty store", func() {
			results, err := svc.Search(ctx, []float32{1, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeNil())
			Expect(results).To(BeEmpty())
		})

		It("returns at most limit results with non-increasing scores", func() {
			Expect(store.Add(ctx, []vector.Document{
				{ID: "a", Embedding: []float32{1, 0, 0}},
				{ID: "b", Embedding: []float32{0.9, 0.1, 0}},
				{ID: "c", Embedding: []float32{0, 1, 0}},
				{ID: "d", Embedding: []float32{0.5, 0.5, 0}},
			})).To(Succeed())

			results, err := svc.Search(ctx, []float32{1, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("a"))
			for i := 1; i < len(results); i++ {
				Expect(results[i].Score).To(BeNumerically("<=", results[i-1].Score))
			}
		})

		It("rejects a wrong dimension without querying the store", func() {
			mock := testutils.NewMockVectorDriver()
			s, _ := search.NewService(search.Config{VectorDriver: mock, Dimensions: 3})

			_, err := s.Search(ctx, []float32{1, 0}, 5)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
			Expect(mock.QueryCalls()).To(BeEmpty())
		})

		It("rejects a non-positive limit", func() {
			_, err := svc.Search(ctx, []float32{1, 0, 0}, 0)
			Expect(err).To(MatchError(search.ErrInvalidArgument))
			_, err = svc.Search(ctx, []float32{1, 0, 0}, -1)
			Expect(err).To(MatchError(search.ErrInvalidArgument))
		})

		It("sorts and truncates whatever the store returns, keeping ties stable", func() {
			mock := testutils.NewMockVectorDriver()
			mock.SetResults([]vector.QueryResult{
				{Document: vector.Document{ID: "low"}, Score: 0.1},
				{Document: vector.Document{ID: "tie-1"}, Score: 0.5},
				{Document: vector.Document{ID: "high"}, Score: 0.9},
				{Document: vector.Document{ID: "tie-2"}, Score: 0.5},
			})
			s, _ := search.NewService(search.Config{VectorDriver: mock, Dimensions: 3})

			results, err := s.Search(ctx, []float32{1, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect([]string{results[0].ID, results[1].ID, results[2].ID}).To(Equal([]string{"high", "tie-1", "tie-2"}))
			Expect(mock.QueryCalls()).To(Equal([]int{3}))
		})

		It("wraps store failures in ErrStore", func() {
			mock := testutils.NewMockVectorDriver()
			mock.FailQuery = true
			s, _ := search.NewService(search.Config{VectorDriver: mock, Dimensions: 3})

			results, err := s.Search(ctx, []float32{1, 0, 0}, 3)
			Expect(err).To(MatchError(vector.ErrStore))
			Expect(results).To(BeNil())
		})

		It("sees overwritten entries", func() {
			Expect(store.Add(ctx, []vector.Document{{ID: "x", Embedding: []float32{1, 0, 0}}})).To(Succeed())
			Expect(store.Add(ctx, []vector.Document{{ID: "x", Embedding: []float32{0, 1, 0}}})).To(Succeed())

			results, err := svc.Search(ctx, []float32{0, 1, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-6))
		})
	})

	Describe("Embed", func() {
		It("returns the embedding of the text", func() {
			emb.Set("hello", []float32{0, 1, 0})
			v, err := svc.Embed(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal([]float32{0, 1, 0}))
		})

		It("rejects empty text without calling the embedder", func() {
			_, err := svc.Embed(ctx, "")
			Expect(err).To(MatchError(search.ErrInvalidArgument))
			Expect(emb.Calls()).To(BeZero())
		})

		It("checks the embedding against the configured dimension", func() {
			emb.Set("short", []float32{1, 2})
			_, err := svc.Embed(ctx, "short")
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("requires an embedder", func() {
			s, _ := search.NewService(search.Config{VectorDriver: store, Dimensions: 3})
			_, err := s.Embed(ctx, "q")
			Expect(err).To(MatchError(vector.ErrEmbedding))
		})
	})

	Describe("SearchText", func() {
		It("embeds the text then searches", func() {
			emb.Set("find me", []float32{0, 0, 1})
			Expect(store.Add(ctx, []vector.Document{
				{ID: "z", Embedding: []float32{0, 0, 1}, Metadata: map[string]string{"title": "zed"}},
				{ID: "y", Embedding: []float32{0, 1, 0}},
			})).To(Succeed())

			out, err := svc.SearchText(ctx, "find me", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Query).To(Equal("find me"))
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].ID).To(Equal("z"))
			Expect(out.Results[0].Metadata).To(HaveKeyWithValue("title", "zed"))
		})

		It("rejects an empty query", func() {
			_, err := svc.SearchText(ctx, "", 1)
			Expect(err).To(MatchError(search.ErrInvalidArgument))
			Expect(emb.Calls()).To(BeZero())
		})

		It("surfaces embedding failures", func() {
			emb.FailOn = "boom"
			_, err := svc.SearchText(ctx, "boom", 1)
			Expect(err).To(MatchError(vector.ErrEmbedding))
		})

		It("fails when the embedder produces the wrong dimension", func() {
			emb.Set("short", []float32{1})
			_, err := svc.SearchText(ctx, "short", 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("requires an embedder", func() {
			s, _ := search.NewService(search.Config{VectorDriver: store, Dimensions: 3})
			_, err := s.SearchText(ctx, "q", 1)
			Expect(err).To(MatchError(vector.ErrEmbedding))
		})
	})
})
