package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/glyph/pkg/monitor"
)

const (
	statsToolName    = "ingest_stats"
	statsDescription = "Report acknowledgment counts (total, indexed, failed) and the acknowledgment rate of the running glyph indexer."
)

// StatsInput is empty; the tool takes no arguments.
type StatsInput struct{}

func (s *Server) handleStats(_ context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, monitor.Snapshot, error) {
	snap := s.config.Monitor.Snapshot()
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d acknowledgments (%d indexed, %d failed) at %.2f/sec",
				snap.Total, snap.Indexed, snap.Failed, snap.Rate)},
		},
	}, snap, nil
}
