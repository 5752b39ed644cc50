package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	glyphlogger "github.com/papercomputeco/glyph/pkg/logger"
	"github.com/papercomputeco/glyph/pkg/search"
	testutils "github.com/papercomputeco/glyph/pkg/utils/test"
	"github.com/papercomputeco/glyph/pkg/vector"
)

var _ = Describe("handleSearchEndpoint", func() {
	var (
		server       *Server
		vectorDriver *testutils.MockVectorDriver
		embedder     *testutils.MockEmbedder
	)

	get := func(s *Server, url string) (*http.Response, []byte) {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := s.app.Test(req)
		Expect(err).NotTo(HaveOccurred())

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, body
	}

	BeforeEach(func() {
		vectorDriver = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()

		svc, err := search.NewService(search.Config{
			VectorDriver: vectorDriver,
			Embedder:     embedder,
			Dimensions:   3,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{ListenAddr: ":0", Search: svc}, glyphlogger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	Context("when search is not configured", func() {
		It("returns 503", func() {
			noSearchServer, err := NewServer(Config{ListenAddr: ":0"}, glyphlogger.Nop())
			Expect(err).NotTo(HaveOccurred())

			resp, _ := get(noSearchServer, "/v1/search?query=test")
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	Context("when query parameter is missing", func() {
		It("returns 400", func() {
			resp, body := get(server, "/v1/search")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("query parameter is required"))
		})
	})

	Context("when query parameter is empty", func() {
		It("returns 400", func() {
			resp, _ := get(server, "/v1/search?query=")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("when top_k is invalid", func() {
		It("returns 400 for non-integer top_k", func() {
			resp, body := get(server, "/v1/search?query=test&top_k=abc")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("top_k must be a positive integer"))
		})

		It("returns 400 for zero top_k", func() {
			resp, _ := get(server, "/v1/search?query=test&top_k=0")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 400 for negative top_k", func() {
			resp, _ := get(server, "/v1/search?query=test&top_k=-1")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("when search succeeds with no results", func() {
		It("returns 200 with empty results", func() {
			resp, body := get(server, "/v1/search?query=hello")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output search.SearchOutput
			Expect(json.Unmarshal(body, &output)).To(Succeed())
			Expect(output.Query).To(Equal("hello"))
			Expect(output.Count).To(Equal(0))
			Expect(output.Results).To(BeEmpty())
		})

		It("asks the store for the default top_k", func() {
			get(server, "/v1/search?query=hello")
			Expect(vectorDriver.QueryCalls()).To(Equal([]int{defaultTopK}))
		})
	})

	Context("when search succeeds with results", func() {
		It("returns 200 with ranked results", func() {
			vectorDriver.SetResults([]vector.QueryResult{
				{Document: vector.Document{ID: "low"}, Score: 0.2},
				{Document: vector.Document{ID: "high", Metadata: map[string]string{"path": "a.txt"}}, Score: 0.95},
			})

			resp, body := get(server, "/v1/search?query=greeting&top_k=3")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output search.SearchOutput
			Expect(json.Unmarshal(body, &output)).To(Succeed())
			Expect(output.Query).To(Equal("greeting"))
			Expect(output.Count).To(Equal(2))
			Expect(output.Results[0].ID).To(Equal("high"))
			Expect(output.Results[0].Score).To(Equal(float32(0.95)))
			Expect(output.Results[0].Metadata).To(HaveKeyWithValue("path", "a.txt"))
			Expect(output.Results[1].ID).To(Equal("low"))
			Expect(vectorDriver.QueryCalls()).To(Equal([]int{3}))
		})
	})

	Context("when the embedding has the wrong dimension", func() {
		It("returns 400", func() {
			embedder.Set("short", []float32{1, 2})

			resp, _ := get(server, "/v1/search?query=short")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(vectorDriver.QueryCalls()).To(BeEmpty())
		})
	})

	Context("when embedding fails", func() {
		It("returns 502", func() {
			embedder.FailOn = "boom"

			resp, _ := get(server, "/v1/search?query=boom")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
		})
	})

	Context("when vector query fails", func() {
		It("returns 500", func() {
			vectorDriver.FailQuery = true

			resp, body := get(server, "/v1/search?query=test")
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))

			var errResp ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(ContainSubstring("mock query failure"))
		})
	})
})
