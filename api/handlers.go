package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/glyph/pkg/monitor"
	"github.com/papercomputeco/glyph/server"
)

// StatsResponse is returned by /v1/stats.
type StatsResponse struct {
	Acks    *AckStats     `json:"acks,omitempty"`
	Streams *server.Stats `json:"streams,omitempty"`
}

// AckStats is the throughput monitor snapshot.
type AckStats struct {
	Total          uint64  `json:"total"`
	Indexed        uint64  `json:"indexed"`
	Failed         uint64  `json:"failed"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Rate           float64 `json:"rate"`
}

func newAckStats(s monitor.Snapshot) *AckStats {
	return &AckStats{
		Total:          s.Total,
		Indexed:        s.Indexed,
		Failed:         s.Failed,
		ElapsedSeconds: s.Elapsed.Seconds(),
		Rate:           s.Rate,
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns acknowledgment throughput and stream counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := StatsResponse{}
	if s.config.Monitor != nil {
		resp.Acks = newAckStats(s.config.Monitor.Snapshot())
	}
	if s.config.Streams != nil {
		stats := s.config.Streams.Stats()
		resp.Streams = &stats
	}
	return c.JSON(resp)
}
