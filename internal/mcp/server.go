package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/course-rag-server/internal/search"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server   *mcp.Server
	searcher *search.Searcher
	catalog  CatalogReader
}

// Config holds server dependencies.
type Config struct {
	Searcher *search.Searcher
	Catalog  CatalogReader
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "course-materials-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_course_content",
		Description: "Search course materials semantically with smart course name matching and lesson filtering.",
	}, makeSearchHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_course_outline",
		Description: "Get a course's outline: title, link, instructor, and the complete lesson list.",
	}, makeOutlineHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_courses",
		Description: "List all indexed course titles.",
	}, makeListHandler(cfg.Catalog))

	return &Server{
		server:   server,
		searcher: cfg.Searcher,
		catalog:  cfg.Catalog,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
