// Package mcp exposes the glyph index to MCP (Model Context Protocol)
// clients over streamable HTTP.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/glyph/pkg/monitor"
	"github.com/papercomputeco/glyph/pkg/search"
	"github.com/papercomputeco/glyph/pkg/utils"
)

type Config struct {
	// Search backs the search tool.
	Search *search.Service

	// Monitor backs the ingest_stats tool. Optional.
	Monitor *monitor.Monitor

	// Noop serves no tools.
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config  Config
	handler http.Handler
}

// NewServer registers the tools allowed by c on a stateless MCP server.
func NewServer(c Config) (*Server, error) {
	if !c.Noop {
		if c.Search == nil {
			return nil, errors.New("search service is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}
	}

	s := &Server{config: c}
	tools := mcp.NewServer(&mcp.Implementation{Name: "glyph", Version: utils.Version}, nil)

	if !c.Noop {
		mcp.AddTool(tools, &mcp.Tool{Name: searchToolName, Description: searchDescription}, s.handleSearch)
		if c.Monitor != nil {
			mcp.AddTool(tools, &mcp.Tool{Name: statsToolName, Description: statsDescription}, s.handleStats)
		}
	}

	s.handler = mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return tools },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
