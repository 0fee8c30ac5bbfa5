package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/internal/extractor"
	"github.com/dshills/codexref/internal/graph"
	"github.com/dshills/codexref/internal/reconcile"
	"github.com/dshills/codexref/internal/searcher"
	"github.com/dshills/codexref/internal/storage"
)

const sampleSource = `package sample

// Parse reads the input and validates it.
func Parse(input string) error {
	return validate(input)
}

func validate(input string) error {
	if input == "" {
		return nil
	}
	return nil
}
`

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewDocumentStore(storage.Options{
		SnapshotPath: filepath.Join(t.TempDir(), "index.json"),
	})
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	g := graph.New(store, nil)
	s, err := NewServer(Components{
		Store:      store,
		Searcher:   searcher.New(store, searcher.Options{CacheSize: 16}),
		Graph:      g,
		Reconciler: reconcile.New(store, g, extractor.DefaultRegistry(), reconcile.Options{Workers: 2}),
	})
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func indexSample(t *testing.T, s *Server) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(sampleSource), 0o644))
	_, err := s.handleIndexCodebase(context.Background(), callRequest(map[string]interface{}{"path": dir}))
	require.NoError(t, err)
	return dir
}

func TestNewServer_RequiresComponents(t *testing.T) {
	_, err := NewServer(Components{})
	assert.Error(t, err)

	s := setupTestServer(t)
	assert.NotNil(t, s.mcp)
	assert.Equal(t, searcher.DefaultLimit, s.defaults.DefaultLimit)
	assert.Equal(t, graph.DefaultMaxDepth, s.defaults.MaxDepth)
}

func TestHandleIndexCodebase(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	t.Run("missing path", func(t *testing.T) {
		_, err := s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("relative path", func(t *testing.T) {
		_, err := s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{"path": "relative/dir"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("nonexistent path", func(t *testing.T) {
		_, err := s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{"path": "/nonexistent/codexref/dir"}))
		requireMCPError(t, err, ErrorCodePathNotFound)
	})

	t.Run("indexes directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(sampleSource), 0o644))

		res, err := s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{"path": dir}))
		require.NoError(t, err)
		out := decodeResult(t, res)
		assert.Equal(t, float64(1), out["files_indexed"])
		assert.Equal(t, float64(2), out["entities_indexed"])

		// Unchanged content is skipped on the second run
		res, err = s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{"path": dir}))
		require.NoError(t, err)
		out = decodeResult(t, res)
		assert.Equal(t, float64(1), out["files_skipped"])
	})
}

func TestHandleSearchCode(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	indexSample(t, s)

	t.Run("empty query and filters", func(t *testing.T) {
		_, err := s.handleSearchCode(ctx, callRequest(map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeEmptyQuery)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := s.handleSearchCode(ctx, callRequest(map[string]interface{}{"query": "parse", "mode": "semantic"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := s.handleSearchCode(ctx, callRequest(map[string]interface{}{"query": "parse", "limit": float64(5000)}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("finds function by name", func(t *testing.T) {
		res, err := s.handleSearchCode(ctx, callRequest(map[string]interface{}{"query": "Parse"}))
		require.NoError(t, err)
		out := decodeResult(t, res)
		results, ok := out["results"].([]interface{})
		require.True(t, ok)
		require.NotEmpty(t, results)
		assert.Equal(t, "Parse", results[0].(map[string]interface{})["name"])
	})

	t.Run("filters only", func(t *testing.T) {
		res, err := s.handleSearchCode(ctx, callRequest(map[string]interface{}{
			"filters": map[string]interface{}{"calledBy": "Parse"},
		}))
		require.NoError(t, err)
		out := decodeResult(t, res)
		assert.Equal(t, float64(1), out["total_count"])
	})
}

func TestHandleGraphTools(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	indexSample(t, s)

	res, err := s.handleGetDependencies(ctx, callRequest(map[string]interface{}{"name": "Parse"}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	deps, ok := out["dependencies"].([]interface{})
	require.True(t, ok)
	require.Len(t, deps, 1)
	assert.Equal(t, float64(1), deps[0].(map[string]interface{})["depth"])

	res, err = s.handleGetCallers(ctx, callRequest(map[string]interface{}{"name": "validate"}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	callers, ok := out["callers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, callers, 1)

	_, err = s.handleGetCallers(ctx, callRequest(map[string]interface{}{"name": "missing"}))
	requireMCPError(t, err, ErrorCodeNotFound)

	_, err = s.handleGetDependencies(ctx, callRequest(map[string]interface{}{"name": "Parse", "max_depth": float64(0)}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	res, err = s.handleDetectCycles(ctx, callRequest(nil))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, float64(0), out["count"])
}

func TestHandleSyncFileAndIngest(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	entities := []interface{}{
		map[string]interface{}{"name": "render", "filePath": "ui/app.ts", "lineNumber": float64(4), "functionCalls": []interface{}{"format"}},
		map[string]interface{}{"name": "format", "filePath": "ui/app.ts", "lineNumber": float64(12)},
	}
	res, err := s.handleSyncFile(ctx, callRequest(map[string]interface{}{"path": "ui/app.ts", "entities": entities}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, float64(2), out["added"])

	res, err = s.handleSyncFile(ctx, callRequest(map[string]interface{}{"path": "ui/app.ts", "entities": entities}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, float64(2), out["unchanged"])

	_, err = s.handleSyncFile(ctx, callRequest(map[string]interface{}{
		"path":     "ui/app.ts",
		"entities": []interface{}{map[string]interface{}{"name": "x", "filePath": "other.ts", "lineNumber": float64(1)}},
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	res, err = s.handleIngestEntities(ctx, callRequest(map[string]interface{}{
		"entities": []interface{}{
			map[string]interface{}{"name": "helper", "filePath": "ui/util.ts", "lineNumber": float64(1)},
			map[string]interface{}{"name": "", "filePath": "ui/util.ts", "lineNumber": float64(2)},
		},
	}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, float64(1), out["succeeded"])
	assert.Equal(t, float64(1), out["failed"])

	_, err = s.handleIngestEntities(ctx, callRequest(map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleCleanupAndStatus(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	dir := indexSample(t, s)

	res, err := s.handleGetStatus(ctx, callRequest(nil))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, true, out["indexed"])
	assert.Equal(t, false, out["reconciling"])
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["records_count"])
	assert.Equal(t, storage.BuildMode, out["build"].(map[string]interface{})["mode"])

	require.NoError(t, os.Remove(filepath.Join(dir, "sample.go")))
	res, err = s.handleCleanupIndex(ctx, callRequest(nil))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, float64(1), out["files_removed"])
	assert.Equal(t, float64(2), out["records_removed"])

	res, err = s.handleDeepSync(ctx, callRequest(nil))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, float64(0), out["files"])
}

func TestToolError(t *testing.T) {
	err := toolError("failed", os.ErrPermission)
	requireMCPError(t, err, ErrorCodeInternalError)
}
