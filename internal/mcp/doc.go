// Package mcp implements the Model Context Protocol (MCP) server for codexref.
//
// The server exposes the code index to AI coding assistants as tools:
//   - index_codebase: Index a source tree or a single file
//   - sync_file: Reconcile one file from a supplied entity list or from disk
//   - ingest_entities: Add entities reported by an external extractor
//   - deep_sync: Re-extract every indexed file
//   - cleanup_index: Drop records of deleted files
//   - search_code: Keyword, phrase and operator search over the index
//   - get_dependencies / get_callers: Transitive call-graph traversal
//   - detect_cycles: Find recursion chains
//   - get_status: Index statistics and health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. The server is
// started via the serve command:
//
//	codexref serve
//
// It reads requests from stdin and writes responses to stdout; logs go to
// stderr.
//
// # Tool: search_code
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "query": "parse type:function complexity:>3 -legacy",
//	    "mode": "both",
//	    "limit": 10,
//	    "filters": {"extensions": {"pattern": "handler"}}
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "name": "parseConfig",
//	      "file": "/src/config/parse.go",
//	      "line": 42,
//	      "score": 12.5,
//	      "signature": "func parseConfig(path string) (*Config, error)"
//	    }
//	  ],
//	  "total_count": 1,
//	  "mode": "both"
//	}
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "codexref": {
//	      "command": "/usr/local/bin/codexref",
//	      "args": ["serve"],
//	      "env": {"CODEXREF_LOG_LEVEL": "info"}
//	    }
//	  }
//	}
//
// # Error Handling
//
// Handlers return *MCPError values which the framework encodes as JSON-RPC
// errors. Error codes:
//   - -32602: Invalid params (missing or invalid arguments)
//   - -32603: Internal error
//   - -32001: Path not found
//   - -32002: Reconciliation in progress
//   - -32003: Store not initialized
//   - -32004: Empty query
//   - -32005: Function not found
package mcp
