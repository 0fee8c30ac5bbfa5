package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codexref/internal/reconcile"
	"github.com/dshills/codexref/internal/searcher"
	"github.com/dshills/codexref/internal/storage"
	"github.com/dshills/codexref/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodePathNotFound       = -32001 // Specified path does not exist
	ErrorCodeIndexingInProgress = -32002 // Another reconciliation is already running
	ErrorCodeNotIndexed         = -32003 // Store not initialized
	ErrorCodeEmptyQuery         = -32004 // Query and filters are both empty
	ErrorCodeNotFound           = -32005 // Named function is not in the index
)

// maxReportedErrors bounds the per-file errors echoed in a response
const maxReportedErrors = 5

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	// Validate path exists and is accessible
	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrPathNotFound) {
			code = ErrorCodePathNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	opts := reconcile.IndexOptions{
		Force:         getBoolDefault(args, "force_reindex", false),
		IncludeTests:  getBoolDefault(args, "include_tests", s.defaults.IncludeTests),
		IncludeVendor: getBoolDefault(args, "include_vendor", s.defaults.IncludeVendor),
	}

	stats, err := s.reconciler.IndexDirectory(ctx, path, opts)
	if err != nil {
		return nil, toolError("indexing failed", err)
	}

	// Format response
	response := map[string]interface{}{
		"indexed":          true,
		"files_indexed":    stats.FilesIndexed,
		"files_skipped":    stats.FilesSkipped,
		"files_failed":     stats.FilesFailed,
		"files_removed":    stats.FilesRemoved,
		"entities_indexed": stats.EntitiesIndexed,
		"changes":          syncResponse(stats.Changes),
		"duration_ms":      stats.Duration.Milliseconds(),
	}
	addErrors(response, stats.ErrorMessages)

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSyncFile handles the sync_file tool invocation
func (s *Server) handleSyncFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path := getStringDefault(args, "path", "")
	if path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	var (
		result *types.SyncResult
		err    error
	)
	if raw, present := args["entities"]; present && raw != nil {
		entities, derr := decodeEntities(raw)
		if derr != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid entities", map[string]interface{}{
				"param":  "entities",
				"reason": derr.Error(),
			})
		}
		result, err = s.reconciler.SyncFile(ctx, path, entities)
	} else {
		result, err = s.reconciler.ResyncFile(ctx, path)
	}
	if err != nil {
		if errors.Is(err, types.ErrInvalidEntity) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid entities", map[string]interface{}{
				"param":  "entities",
				"reason": err.Error(),
			})
		}
		return nil, toolError("sync failed", err)
	}

	response := syncResponse(*result)
	response["path"] = path
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestEntities handles the ingest_entities tool invocation
func (s *Server) handleIngestEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, present := args["entities"]
	if !present || raw == nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "entities parameter is required", map[string]interface{}{
			"param":  "entities",
			"reason": "missing",
		})
	}
	entities, err := decodeEntities(raw)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid entities", map[string]interface{}{
			"param":  "entities",
			"reason": err.Error(),
		})
	}

	result, err := s.reconciler.Ingest(ctx, entities)
	if err != nil {
		return nil, toolError("ingestion failed", err)
	}

	response := map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}
	if len(result.Errors) > 0 {
		response["errors"] = result.Errors
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeepSync handles the deep_sync tool invocation
func (s *Server) handleDeepSync(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.reconciler.DeepSync(ctx)
	if err != nil {
		return nil, toolError("deep sync failed", err)
	}

	response := syncResponse(result.SyncResult)
	response["files"] = result.Files
	response["duration_ms"] = result.Duration.Milliseconds()
	if len(result.Errors) > 0 {
		messages := make([]string, 0, len(result.Errors))
		for _, fe := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", fe.FilePath, fe.Message))
		}
		addErrors(response, messages)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCleanupIndex handles the cleanup_index tool invocation
func (s *Server) handleCleanupIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.reconciler.BulkCleanup(ctx)
	if err != nil {
		return nil, toolError("cleanup failed", err)
	}

	response := map[string]interface{}{
		"files_scanned":   result.FilesScanned,
		"files_removed":   result.FilesRemoved,
		"records_removed": result.RecordsRemoved,
	}
	if len(result.RemovedFiles) > 0 {
		response["removed_files"] = result.RemovedFiles
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := getStringDefault(args, "query", "")

	var filters *types.Filters
	if raw, present := args["filters"]; present && raw != nil {
		f, err := decodeFilters(raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid filters", map[string]interface{}{
				"param":  "filters",
				"reason": err.Error(),
			})
		}
		filters = f
	}

	if query == "" && (filters == nil || filters.IsZero()) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query or filters are required", map[string]interface{}{
			"param":  "query",
			"reason": "empty",
		})
	}

	limit := getIntDefault(args, "limit", s.defaults.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	offset := getIntDefault(args, "offset", 0)
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	mode := types.SearchMode(getStringDefault(args, "mode", string(types.ModeMetadata)))
	if !types.ValidSearchMode(mode) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{"metadata", "content", "both"},
		})
	}

	result, err := s.searcher.Search(ctx, searcher.Request{
		Query:    query,
		Filters:  filters,
		Limit:    limit,
		Offset:   offset,
		Mode:     mode,
		UseCache: true,
	})
	if err != nil {
		return nil, toolError("search failed", err)
	}

	results := make([]map[string]interface{}, 0, len(result.Results))
	for _, sr := range result.Results {
		rec := sr.Record
		item := map[string]interface{}{
			"name":        rec.Name,
			"file":        rec.FilePath,
			"line":        rec.LineNumber,
			"score":       sr.Score,
			"entity_type": rec.Metadata.EntityType,
		}
		if rec.Signature != "" {
			item["signature"] = rec.Signature
		}
		if rec.Purpose != "" {
			item["purpose"] = rec.Purpose
		}
		if rec.Complexity > 0 {
			item["complexity"] = rec.Complexity
		}
		if len(sr.Matches) > 0 {
			item["matches"] = sr.Matches
		}
		results = append(results, item)
	}

	response := map[string]interface{}{
		"results":           results,
		"total_count":       result.TotalCount,
		"mode":              result.Mode,
		"cache_hit":         result.CacheHit,
		"execution_time_ms": result.ExecutionTime.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetDependencies handles the get_dependencies tool invocation
func (s *Server) handleGetDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, depth, err := s.graphArgs(request)
	if err != nil {
		return nil, err
	}

	entries, err := s.graph.TransitiveDependencies(ctx, name, depth)
	if err != nil {
		return nil, toolError("dependency traversal failed", err)
	}

	response := map[string]interface{}{
		"name":         name,
		"max_depth":    depth,
		"dependencies": entries,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCallers handles the get_callers tool invocation
func (s *Server) handleGetCallers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, depth, err := s.graphArgs(request)
	if err != nil {
		return nil, err
	}

	entries, err := s.graph.TransitiveCallers(ctx, name, depth)
	if err != nil {
		return nil, toolError("caller traversal failed", err)
	}

	response := map[string]interface{}{
		"name":      name,
		"max_depth": depth,
		"callers":   entries,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDetectCycles handles the detect_cycles tool invocation
func (s *Server) handleDetectCycles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cycles, err := s.graph.DetectCycles(ctx)
	if err != nil {
		return nil, toolError("cycle detection failed", err)
	}

	response := map[string]interface{}{
		"count":  len(cycles),
		"cycles": cycles,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, toolError("failed to get status", err)
	}

	// Format response
	response := map[string]interface{}{
		"indexed":     stats.Records > 0,
		"reconciling": s.reconciler.Busy(),
		"statistics": map[string]interface{}{
			"records_count":     stats.Records,
			"files_count":       stats.Files,
			"indexed_documents": stats.IndexedDocuments,
			"generation":        stats.Generation,
		},
		"snapshot": map[string]interface{}{
			"id":   stats.SnapshotID,
			"path": stats.SnapshotPath,
		},
		"health": map[string]interface{}{
			"index_accessible": stats.Health.IndexAccessible,
			"index_in_sync":    stats.Health.IndexInSync,
			"persistent":       stats.Health.Persistent,
		},
		"build": map[string]interface{}{
			"mode":   storage.BuildMode,
			"driver": storage.DriverName,
		},
	}
	if !stats.PersistedAt.IsZero() {
		response["snapshot"].(map[string]interface{})["persisted_at"] = stats.PersistedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// graphArgs extracts the name and max_depth parameters of the graph tools
func (s *Server) graphArgs(request mcp.CallToolRequest) (string, int, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", 0, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	name := getStringDefault(args, "name", "")
	if name == "" {
		return "", 0, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}
	depth := getIntDefault(args, "max_depth", s.defaults.MaxDepth)
	if depth < 1 {
		return "", 0, newMCPError(ErrorCodeInvalidParams, "max_depth must be positive", map[string]interface{}{
			"param": "max_depth",
			"value": depth,
		})
	}
	return name, depth, nil
}

// toolError maps domain errors onto MCP error codes
func toolError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrSyncInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "reconciliation already in progress", data)
	case errors.Is(err, types.ErrNotInitialized), errors.Is(err, types.ErrStoreClosed):
		return newMCPError(ErrorCodeNotIndexed, "store not initialized", data)
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, "not found", data)
	case errors.Is(err, types.ErrInvalidMode):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// syncResponse formats a SyncResult
func syncResponse(r types.SyncResult) map[string]interface{} {
	return map[string]interface{}{
		"added":     r.Added,
		"updated":   r.Updated,
		"unchanged": r.Unchanged,
		"removed":   r.Removed,
	}
}

// addErrors includes the first few error messages in response
func addErrors(response map[string]interface{}, messages []string) {
	if len(messages) == 0 {
		return
	}
	if len(messages) > maxReportedErrors {
		response["errors"] = messages[:maxReportedErrors]
		response["error_count"] = len(messages)
		return
	}
	response["errors"] = messages
}

// decodeEntities converts a JSON-decoded argument into entities
func decodeEntities(raw interface{}) ([]types.Entity, error) {
	var entities []types.Entity
	if err := redecode(raw, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// decodeFilters converts a JSON-decoded argument into filters
func decodeFilters(raw interface{}) (*types.Filters, error) {
	var f types.Filters
	if err := redecode(raw, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// redecode round-trips a generic JSON value into a typed destination
func redecode(raw interface{}, dst interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is accessible
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	// Check if path is absolute
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	// Check if path exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	// Check if directory is readable
	if info.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return ErrPathNotReadable
		}
		_ = f.Close()
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
