package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func noArgs() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}}
}

func entitiesProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name":          map[string]interface{}{"type": "string"},
				"filePath":      map[string]interface{}{"type": "string"},
				"lineNumber":    map[string]interface{}{"type": "integer", "minimum": 1},
				"language":      map[string]interface{}{"type": "string"},
				"purpose":       map[string]interface{}{"type": "string"},
				"context":       map[string]interface{}{"type": "string"},
				"signature":     map[string]interface{}{"type": "string"},
				"kind":          map[string]interface{}{"type": "string", "enum": []string{"function", "component"}},
				"functionCalls": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"dependencies":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			},
			"required": []string{"name", "lineNumber"},
		},
	}
}

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a source tree (or a single file) to make it searchable and build its call graph",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root or a single source file",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-extract all files ignoring content hashes",
					"default":     false,
				},
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index test files",
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index vendor/ and node_modules/ directories",
				},
			},
			Required: []string{"path"},
		},
	}
}

// syncFileTool returns the tool definition for sync_file
func syncFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_file",
		Description: "Reconcile one file: with entities, replace its records by the given list; without, re-extract it from disk",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path exactly as stored in the index",
				},
				"entities": entitiesProperty("Complete current entity list of the file"),
			},
			Required: []string{"path"},
		},
	}
}

// ingestEntitiesTool returns the tool definition for ingest_entities
func ingestEntitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_entities",
		Description: "Add or replace entities reported by an external extractor; invalid items are reported, not fatal",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entities": entitiesProperty("Entities to ingest; filePath is required for each"),
			},
			Required: []string{"entities"},
		},
	}
}

// deepSyncTool returns the tool definition for deep_sync
func deepSyncTool() mcp.Tool {
	return mcp.Tool{
		Name:        "deep_sync",
		Description: "Re-read and re-extract every indexed file and reconcile the index with it",
		InputSchema: noArgs(),
	}
}

// cleanupIndexTool returns the tool definition for cleanup_index
func cleanupIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cleanup_index",
		Description: "Remove index entries of files that no longer exist on disk",
		InputSchema: noArgs(),
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name: "search_code",
		Description: "Search indexed code with keywords, quoted phrases, -exclusions and operators " +
			"(kind:, type:, lang:, complexity:, since:, component:, hook:, dep:, calls:, calledby:, file:, jsdoc:, meta:key=value, unused-imports)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query; may be empty when filters are given",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "metadata searches indexed fields, content scans function bodies, both sums the two",
					"enum":        []string{"metadata", "content", "both"},
					"default":     "metadata",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-1000)",
					"minimum":     1,
					"maximum":     1000,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of ranked results to skip",
					"minimum":     0,
					"default":     0,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow search, merged over query operators",
					"properties": map[string]interface{}{
						"language":   map[string]interface{}{"type": "string"},
						"fileType":   map[string]interface{}{"type": "string", "description": "File extension, e.g. go or ts"},
						"filePath":   map[string]interface{}{"type": "string", "description": "Glob, suffix or substring of the file path"},
						"entityType": map[string]interface{}{"type": "string", "enum": []string{"function", "component"}},
						"calls":      map[string]interface{}{"type": "string"},
						"calledBy":   map[string]interface{}{"type": "string"},
						"dependency": map[string]interface{}{"type": "string"},
						"complexity": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"min": map[string]interface{}{"type": "integer"},
								"max": map[string]interface{}{"type": "integer"},
							},
						},
						"hasDocBlock":      map[string]interface{}{"type": "boolean"},
						"hasUnusedImports": map[string]interface{}{"type": "boolean"},
						"extensions": map[string]interface{}{
							"type":                 "object",
							"description":          "Extension metadata that must match exactly, e.g. {\"pattern\": \"handler\"}",
							"additionalProperties": map[string]interface{}{"type": "string"},
						},
					},
				},
			},
		},
	}
}

func graphTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Function name, bare (\"parse\") or file-scoped (\"src/parser.go#parse\")",
				},
				"max_depth": map[string]interface{}{
					"type":        "integer",
					"description": "Traversal depth bound",
					"minimum":     1,
				},
			},
			Required: []string{"name"},
		},
	}
}

// getDependenciesTool returns the tool definition for get_dependencies
func getDependenciesTool() mcp.Tool {
	return graphTool("get_dependencies", "List the functions a function transitively calls, with their call depth")
}

// getCallersTool returns the tool definition for get_callers
func getCallersTool() mcp.Tool {
	return graphTool("get_callers", "List the functions that transitively call a function, with their call depth")
}

// detectCyclesTool returns the tool definition for detect_cycles
func detectCyclesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "detect_cycles",
		Description: "Find distinct call cycles (recursion chains) in the indexed code",
		InputSchema: noArgs(),
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query index statistics and health",
		InputSchema: noArgs(),
	}
}
