package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codexref/internal/storage"
	"github.com/dshills/codexref/pkg/types"
)

// IndexOptions contains configuration for directory indexing
type IndexOptions struct {
	Force         bool // Re-extract files whose content hash is unchanged
	IncludeTests  bool // Whether to index test files
	IncludeVendor bool // Whether to index vendor and node_modules directories
}

// extraction is the outcome of reading and extracting one file
type extraction struct {
	path     string
	entities []types.Entity
	state    *storage.FileState
	missing  bool
	skipped  bool
	err      error
}

// extractFile reads filePath and runs the responsible extractor. A missing
// file yields an empty entity list. With skipUnchanged, a file whose hash
// matches the recorded file state is not extracted.
func (e *Engine) extractFile(ctx context.Context, filePath string, skipUnchanged bool) extraction {
	ext := extraction{path: filePath}
	if err := ctx.Err(); err != nil {
		ext.err = err
		return ext
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		ext.missing = true
		return ext
	}
	if err != nil {
		ext.err = err
		return ext
	}
	if !e.extractors.Supports(filePath) {
		ext.err = fmt.Errorf("%s: %w", filePath, types.ErrUnsupported)
		return ext
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		ext.err = err
		return ext
	}
	hash := computeContentHash(content)

	if skipUnchanged {
		prev, ok, err := e.store.FileState(filePath)
		if err != nil {
			ext.err = err
			return ext
		}
		if ok && prev.ContentHash == hash {
			ext.skipped = true
			return ext
		}
	}

	entities, err := e.extractors.Extract(ctx, filePath, content)
	if err != nil {
		ext.err = fmt.Errorf("failed to extract: %w", err)
		return ext
	}
	ext.entities = entities
	ext.state = &storage.FileState{
		ContentHash: hash,
		ModTime:     info.ModTime(),
		SizeBytes:   info.Size(),
		IndexedAt:   e.now(),
	}
	return ext
}

// extractAll extracts files concurrently. Per-file failures are returned as
// data; only cancellation fails the whole run.
func (e *Engine) extractAll(ctx context.Context, files []string, skipUnchanged bool) ([]extraction, error) {
	results := make([]extraction, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.extractFile(gctx, file, skipUnchanged)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// DeepSync re-reads and re-extracts every file represented in the store and
// reconciles each one. Files that vanished from disk lose all their records.
// Per-file failures are collected without aborting the run.
func (e *Engine) DeepSync(ctx context.Context) (*types.DeepSyncResult, error) {
	if err := e.acquire("deep sync"); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	startTime := time.Now()
	files, err := e.store.Files()
	if err != nil {
		return nil, err
	}

	extractions, err := e.extractAll(ctx, files, false)
	if err != nil {
		return nil, err
	}

	result := &types.DeepSyncResult{Files: len(files)}
	for _, ext := range extractions {
		if ext.err != nil {
			result.Errors = append(result.Errors, types.FileError{FilePath: ext.path, Message: ext.err.Error()})
			continue
		}
		r, err := e.applyFile(ctx, ext.path, ext.entities)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, types.FileError{FilePath: ext.path, Message: err.Error()})
			continue
		}
		result.Add(*r)
		switch {
		case ext.missing:
			if _, err := e.store.RemoveFile(ctx, ext.path); err != nil {
				return nil, err
			}
		case ext.state != nil:
			if err := e.store.SetFileState(ext.path, *ext.state); err != nil {
				return nil, err
			}
		}
	}

	for _, fe := range result.Errors {
		e.log.Warn("file not reconciled", slog.String("file", fe.FilePath), slog.String("error", fe.Message))
	}

	if _, err := e.graph.RebuildCalledBy(ctx, ""); err != nil {
		return nil, fmt.Errorf("failed to rebuild call graph: %w", err)
	}
	if err := e.store.Persist(ctx); err != nil {
		return nil, err
	}

	result.Duration = time.Since(startTime)
	e.log.Info("deep sync complete",
		slog.Int("files", result.Files),
		slog.Int("added", result.Added),
		slog.Int("updated", result.Updated),
		slog.Int("removed", result.Removed),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// IndexDirectory indexes every supported file under root. Files whose
// content hash is unchanged since the last run are skipped unless
// opts.Force is set, and stored files under root that no longer exist or
// are now excluded are removed. root may also name a single file.
func (e *Engine) IndexDirectory(ctx context.Context, root string, opts IndexOptions) (*types.IndexStats, error) {
	if err := e.acquire("index"); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	startTime := time.Now()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	files := []string{absRoot}
	if info.IsDir() {
		files, err = e.discoverFiles(absRoot, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to discover files: %w", err)
		}
	}

	extractions, err := e.extractAll(ctx, files, !opts.Force)
	if err != nil {
		return nil, err
	}

	stats := &types.IndexStats{ErrorMessages: make([]string, 0)}
	for _, ext := range extractions {
		switch {
		case ext.skipped:
			stats.FilesSkipped++
			continue
		case ext.err != nil:
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", ext.path, ext.err))
			continue
		}

		r, err := e.applyFile(ctx, ext.path, ext.entities)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", ext.path, err))
			continue
		}
		stats.FilesIndexed++
		stats.EntitiesIndexed += len(ext.entities)
		stats.Changes.Add(*r)
		if ext.state != nil {
			if err := e.store.SetFileState(ext.path, *ext.state); err != nil {
				return nil, err
			}
		}
	}

	if info.IsDir() {
		if err := e.removeVanished(ctx, absRoot, files, stats); err != nil {
			return nil, err
		}
	}

	if _, err := e.graph.RebuildCalledBy(ctx, ""); err != nil {
		return nil, fmt.Errorf("failed to rebuild call graph: %w", err)
	}
	if err := e.store.Persist(ctx); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	e.log.Info("index complete",
		slog.String("root", absRoot),
		slog.Int("indexed", stats.FilesIndexed),
		slog.Int("skipped", stats.FilesSkipped),
		slog.Int("failed", stats.FilesFailed),
		slog.Int("removed", stats.FilesRemoved),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// removeVanished drops stored files under root that were not discovered
func (e *Engine) removeVanished(ctx context.Context, root string, discovered []string, stats *types.IndexStats) error {
	found := make(map[string]bool, len(discovered))
	for _, f := range discovered {
		found[f] = true
	}

	stored, err := e.store.Files()
	if err != nil {
		return err
	}
	prefix := root + string(filepath.Separator)
	for _, f := range stored {
		if found[f] || !strings.HasPrefix(f, prefix) {
			continue
		}
		n, err := e.store.RemoveFile(ctx, f)
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", f, err)
		}
		stats.FilesRemoved++
		stats.Changes.Removed += n
	}
	return nil
}

// discoverFiles finds all supported files under root
func (e *Engine) discoverFiles(root string, opts IndexOptions) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && skipDir(d.Name(), opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if !e.included(path, opts) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, err
}

// skipDir reports whether a directory is excluded from indexing
func skipDir(name string, opts IndexOptions) bool {
	// Skip hidden directories
	if strings.HasPrefix(name, ".") {
		return true
	}
	// Skip vendor unless explicitly included
	if !opts.IncludeVendor && (name == "vendor" || name == "node_modules") {
		return true
	}
	return false
}

// included reports whether a file is indexed under opts
func (e *Engine) included(path string, opts IndexOptions) bool {
	if !e.extractors.Supports(path) {
		return false
	}
	// Skip test files unless explicitly included
	if !opts.IncludeTests && isTestFile(path) {
		return false
	}
	return true
}

func isTestFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "_test.go") {
		return true
	}
	for _, marker := range []string{".test.", ".spec."} {
		if strings.Contains(base, marker) {
			return true
		}
	}
	return false
}

// computeContentHash computes the hex SHA-256 hash of file content
func computeContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
