// Package api provides the HTTP query API: text search, pipeline statistics
// and, optionally, an MCP endpoint.
package api

import (
	"github.com/papercomputeco/glyph/pkg/monitor"
	"github.com/papercomputeco/glyph/pkg/search"
	"github.com/papercomputeco/glyph/server"
)

// StatsProvider reports ingestion stream counters. *server.Server satisfies it.
type StatsProvider interface {
	Stats() server.Stats
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":7071")
	ListenAddr string

	// Search backs /v1/search. Optional; the endpoint answers 503 without it.
	Search *search.Service

	// Monitor backs the throughput part of /v1/stats. Optional.
	Monitor *monitor.Monitor

	// Streams backs the stream part of /v1/stats. Optional.
	Streams StatsProvider

	// MCP mounts the MCP search tool at /mcp.
	MCP bool
}
