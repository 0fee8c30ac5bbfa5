package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/dshills/codexref/internal/extractor"
	"github.com/dshills/codexref/internal/graph"
	"github.com/dshills/codexref/internal/normalizer"
	"github.com/dshills/codexref/internal/storage"
	"github.com/dshills/codexref/pkg/types"
)

// Options configures an Engine
type Options struct {
	Workers int // Number of concurrent extraction workers (default: runtime.NumCPU())
	Logger  *slog.Logger
}

// Engine reconciles the document store with the source files on disk
type Engine struct {
	store      storage.Store
	graph      *graph.Engine
	extractors *extractor.Registry
	workers    int
	lock       syncLock
	log        *slog.Logger

	// now is replaceable in tests
	now func() time.Time
}

// New creates a new reconciliation engine
func New(store storage.Store, g *graph.Engine, extractors *extractor.Registry, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if extractors == nil {
		extractors = extractor.DefaultRegistry()
	}
	if g == nil {
		g = graph.New(store, logger)
	}
	return &Engine{
		store:      store,
		graph:      g,
		extractors: extractors,
		workers:    workers,
		log:        logger.With("component", "reconcile"),
		now:        time.Now,
	}
}

// Busy reports whether a reconciliation is currently running
func (e *Engine) Busy() bool {
	return e.lock.Holder() != ""
}

func (e *Engine) acquire(op string) error {
	if !e.lock.TryAcquire(op) {
		return fmt.Errorf("%w: %s running", types.ErrSyncInProgress, e.lock.Holder())
	}
	return nil
}

// SyncFile reconciles the records of filePath with entities, the complete
// current entity list of that file. New identities are inserted, matching
// identities are replaced when their content changed, and stored records
// the list no longer reports are removed. CalledBy edges are then rebuilt
// for the file scope and a snapshot is written.
//
// A nil or empty list removes every record of the file.
func (e *Engine) SyncFile(ctx context.Context, filePath string, entities []types.Entity) (*types.SyncResult, error) {
	if err := e.acquire("sync"); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	result, err := e.applyFile(ctx, filePath, entities)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ctx, filePath, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ResyncFile re-extracts filePath from disk and reconciles it. A file that
// no longer exists is reconciled with an empty list.
func (e *Engine) ResyncFile(ctx context.Context, filePath string) (*types.SyncResult, error) {
	if err := e.acquire("resync"); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	ext := e.extractFile(ctx, filePath, false)
	if ext.err != nil {
		return nil, ext.err
	}
	result, err := e.applyFile(ctx, filePath, ext.entities)
	if err != nil {
		return nil, err
	}
	switch {
	case ext.missing:
		// Drops the file state; the records are already gone
		if _, err := e.store.RemoveFile(ctx, filePath); err != nil {
			return nil, err
		}
	case ext.state != nil:
		if err := e.store.SetFileState(filePath, *ext.state); err != nil {
			return nil, err
		}
	}
	if err := e.finish(ctx, filePath, result); err != nil {
		return nil, err
	}
	return result, nil
}

// finish rebuilds CalledBy for scope and writes a snapshot
func (e *Engine) finish(ctx context.Context, scope string, result *types.SyncResult) error {
	if _, err := e.graph.RebuildCalledBy(ctx, scope); err != nil {
		return fmt.Errorf("failed to rebuild call graph: %w", err)
	}
	if result.Added+result.Updated+result.Removed == 0 {
		return nil
	}
	return e.store.Persist(ctx)
}

// applyFile performs the set difference for one file without rebuilding
// the call graph or persisting
func (e *Engine) applyFile(ctx context.Context, filePath string, entities []types.Entity) (*types.SyncResult, error) {
	current, err := e.normalizeFile(filePath, entities)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.FindByFile(filePath)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]*types.Record, len(existing))
	for _, rec := range existing {
		stored[rec.Key()] = rec
	}

	result := &types.SyncResult{}
	now := e.now()
	seen := make(map[string]bool, len(current))
	for _, rec := range current {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := rec.Key()
		seen[key] = true

		old, ok := stored[key]
		if ok && old.Fingerprint() == rec.Fingerprint() {
			result.Unchanged++
			continue
		}

		rec.ModifiedAt = now
		if _, err := e.store.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to upsert %s: %w", rec.Identity(), err)
		}
		if ok {
			result.Updated++
		} else {
			result.Added++
		}
	}

	for key, rec := range stored {
		if seen[key] {
			continue
		}
		if err := e.store.Remove(ctx, rec.Identity()); err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("failed to remove %s: %w", rec.Identity(), err)
		}
		result.Removed++
	}

	e.log.Debug("file reconciled",
		slog.String("file", filePath),
		slog.Int("added", result.Added),
		slog.Int("updated", result.Updated),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("removed", result.Removed))
	return result, nil
}

// normalizeFile validates and normalizes the entity list of one file.
// Entities without a file path are attributed to filePath; an entity of
// another file fails the whole list. Duplicate identities keep the last.
func (e *Engine) normalizeFile(filePath string, entities []types.Entity) ([]*types.Record, error) {
	records := make([]*types.Record, 0, len(entities))
	index := make(map[string]int, len(entities))
	for i := range entities {
		ent := entities[i]
		if ent.FilePath == "" {
			ent.FilePath = filePath
		}
		if ent.FilePath != filePath {
			return nil, fmt.Errorf("%w: entity %q belongs to %s, not %s", types.ErrInvalidEntity, ent.Name, ent.FilePath, filePath)
		}
		if err := ent.Validate(); err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		rec := normalizer.Normalize(ent)
		if j, ok := index[rec.Key()]; ok {
			records[j] = rec
			continue
		}
		index[rec.Key()] = len(records)
		records = append(records, rec)
	}
	return records, nil
}

// Ingest validates, normalizes and upserts a batch of entities from any
// number of files. Invalid items are reported and skipped, never aborting
// the batch. The whole call graph is rebuilt afterwards.
func (e *Engine) Ingest(ctx context.Context, entities []types.Entity) (*types.IngestResult, error) {
	if err := e.acquire("ingest"); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	result := &types.IngestResult{}
	records := make([]*types.Record, 0, len(entities))
	positions := make([]int, 0, len(entities))
	now := e.now()
	for i := range entities {
		if err := entities[i].Validate(); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, types.ItemError{
				Index:    i,
				Identity: fmt.Sprintf("%s:%d %s", entities[i].FilePath, entities[i].LineNumber, entities[i].Name),
				Message:  err.Error(),
			})
			continue
		}
		rec := normalizer.Normalize(entities[i])
		rec.ModifiedAt = now
		records = append(records, rec)
		positions = append(positions, i)
	}

	batch, err := e.store.UpsertBatch(ctx, records)
	if batch != nil {
		result.Succeeded += batch.Succeeded
		result.Failed += batch.Failed
		for _, itemErr := range batch.Errors {
			itemErr.Index = positions[itemErr.Index]
			result.Errors = append(result.Errors, itemErr)
		}
	}
	if err != nil {
		return result, err
	}

	for _, itemErr := range result.Errors {
		e.log.Warn("entity rejected",
			slog.Int("index", itemErr.Index),
			slog.String("entity", itemErr.Identity),
			slog.String("error", itemErr.Message))
	}

	if result.Succeeded > 0 {
		if _, err := e.graph.RebuildCalledBy(ctx, ""); err != nil {
			return result, fmt.Errorf("failed to rebuild call graph: %w", err)
		}
	}

	e.log.Info("ingest complete",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed))
	return result, nil
}

// BulkCleanup removes every record of stored files that no longer exist on
// disk. Files are only checked for existence, never re-read.
func (e *Engine) BulkCleanup(ctx context.Context) (*types.CleanupResult, error) {
	if err := e.acquire("cleanup"); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	files, err := e.store.Files()
	if err != nil {
		return nil, err
	}

	result := &types.CleanupResult{FilesScanned: len(files)}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := os.Stat(file); !os.IsNotExist(err) {
			continue
		}
		n, err := e.store.RemoveFile(ctx, file)
		if err != nil {
			return result, fmt.Errorf("failed to remove %s: %w", file, err)
		}
		result.FilesRemoved++
		result.RecordsRemoved += n
		result.RemovedFiles = append(result.RemovedFiles, file)
	}

	if result.FilesRemoved > 0 {
		if _, err := e.graph.RebuildCalledBy(ctx, ""); err != nil {
			return result, fmt.Errorf("failed to rebuild call graph: %w", err)
		}
		if err := e.store.Persist(ctx); err != nil {
			return result, err
		}
	}

	e.log.Info("cleanup complete",
		slog.Int("scanned", result.FilesScanned),
		slog.Int("files_removed", result.FilesRemoved),
		slog.Int("records_removed", result.RecordsRemoved))
	return result, nil
}
