package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/glyph/pkg/search"
	"github.com/papercomputeco/glyph/pkg/vector"
)

const defaultTopK = 5

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	if s.config.Search == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := defaultTopK
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	output, err := s.config.Search.SearchText(c.Context(), query, topK)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		return c.Status(searchErrorStatus(err)).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(output)
}

func searchErrorStatus(err error) int {
	switch {
	case errors.Is(err, search.ErrInvalidArgument), errors.Is(err, vector.ErrDimensionMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, vector.ErrEmbedding), errors.Is(err, vector.ErrConnection):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
