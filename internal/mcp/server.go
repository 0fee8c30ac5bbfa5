package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codexref/internal/graph"
	"github.com/dshills/codexref/internal/reconcile"
	"github.com/dshills/codexref/internal/searcher"
	"github.com/dshills/codexref/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "codexref"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Components are the engine parts the server exposes as tools
type Components struct {
	Store      storage.Store
	Searcher   *searcher.Searcher
	Graph      *graph.Engine
	Reconciler *reconcile.Engine

	// Defaults applied when a tool call omits them
	DefaultLimit  int
	MaxDepth      int
	IncludeTests  bool
	IncludeVendor bool

	Logger *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	store      storage.Store
	searcher   *searcher.Searcher
	graph      *graph.Engine
	reconciler *reconcile.Engine
	defaults   Components
	log        *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(c Components) (*Server, error) {
	if c.Store == nil || c.Searcher == nil || c.Graph == nil || c.Reconciler == nil {
		return nil, errors.New("mcp: store, searcher, graph and reconciler are required")
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = searcher.DefaultLimit
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = graph.DefaultMaxDepth
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:        mcpServer,
		store:      c.Store,
		searcher:   c.Searcher,
		graph:      c.Graph,
		reconciler: c.Reconciler,
		defaults:   c,
		log:        logger.With("component", "mcp"),
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("serving on stdio")
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Indexing and reconciliation
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(syncFileTool(), s.handleSyncFile)
	s.mcp.AddTool(ingestEntitiesTool(), s.handleIngestEntities)
	s.mcp.AddTool(deepSyncTool(), s.handleDeepSync)
	s.mcp.AddTool(cleanupIndexTool(), s.handleCleanupIndex)

	// Search
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)

	// Call graph
	s.mcp.AddTool(getDependenciesTool(), s.handleGetDependencies)
	s.mcp.AddTool(getCallersTool(), s.handleGetCallers)
	s.mcp.AddTool(detectCyclesTool(), s.handleDetectCycles)

	// Status
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
