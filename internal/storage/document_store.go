package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/codexref/pkg/types"
)

// Options configures a DocumentStore
type Options struct {
	// SnapshotPath is the snapshot file; empty keeps the store in memory only
	SnapshotPath string
	// IndexPath is the SQLite full-text index; empty selects an in-memory index
	IndexPath string
	Logger    *slog.Logger
}

// DocumentStore is the authoritative collection of canonical records.
//
// Identity uniqueness is enforced at upsert time (lookup, then insert or
// replace). The mutex only protects memory; callers must still serialize
// reconciliation batches against the same store.
type DocumentStore struct {
	opts Options
	log  *slog.Logger

	mu          sync.RWMutex
	initialized bool
	records     []*types.Record
	byKey       map[string]int
	files       map[string]FileState
	index       FullTextIndex
	snapshotID  string
	persistedAt time.Time

	generation atomic.Uint64
}

var _ Store = (*DocumentStore)(nil)

// NewDocumentStore creates an unopened store; call Open before use
func NewDocumentStore(opts Options) *DocumentStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{
		opts:  opts,
		log:   logger.With("component", "store"),
		byKey: make(map[string]int),
		files: make(map[string]FileState),
	}
}

// Open initializes the full-text index, loads the latest snapshot if one
// exists and re-derives the index from it.
func (s *DocumentStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	index, err := NewSQLiteIndex(ctx, s.opts.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open full-text index: %w", err)
	}

	var snap *snapshot
	if s.opts.SnapshotPath != "" {
		snap, err = readSnapshot(s.opts.SnapshotPath)
		if err != nil {
			_ = index.Close()
			return err
		}
	}

	s.index = index
	s.records = s.records[:0]
	s.byKey = make(map[string]int)
	s.files = make(map[string]FileState)

	if snap != nil {
		for _, rec := range snap.Records {
			if rec == nil {
				continue
			}
			if i, ok := s.byKey[rec.Key()]; ok {
				s.records[i] = rec
				continue
			}
			s.byKey[rec.Key()] = len(s.records)
			s.records = append(s.records, rec)
		}
		for path, st := range snap.Files {
			s.files[path] = st
		}
		s.snapshotID = snap.ID
		s.persistedAt = snap.WrittenAt
	}

	if err := s.rebuildIndexLocked(ctx); err != nil {
		_ = index.Close()
		s.index = nil
		return err
	}

	s.initialized = true
	s.generation.Add(1)
	s.log.Info("store opened",
		slog.Int("records", len(s.records)),
		slog.Int("files", len(s.files)),
		slog.String("snapshot", s.opts.SnapshotPath))
	return nil
}

// Close releases the full-text index. The store must be reopened before reuse.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	s.initialized = false
	err := s.index.Close()
	s.index = nil
	return err
}

func (s *DocumentStore) checkOpen() error {
	if !s.initialized {
		return types.ErrNotInitialized
	}
	return nil
}

// Upsert inserts rec if no record with the same identity exists, otherwise
// replaces it in place. The full-text projection is always rewritten.
func (s *DocumentStore) Upsert(ctx context.Context, rec *types.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return false, err
	}
	return s.upsertLocked(ctx, rec)
}

func (s *DocumentStore) upsertLocked(ctx context.Context, rec *types.Record) (bool, error) {
	if rec == nil {
		return false, fmt.Errorf("%w: nil record", types.ErrInvalidEntity)
	}

	// Index first so that a failed projection leaves the collection untouched
	if err := s.index.Put(ctx, ProjectRecord(rec)); err != nil {
		return false, err
	}

	stored := rec.Clone()
	key := stored.Key()
	inserted := false
	if i, ok := s.byKey[key]; ok {
		s.records[i] = stored
	} else {
		s.byKey[key] = len(s.records)
		s.records = append(s.records, stored)
		inserted = true
	}
	s.generation.Add(1)
	return inserted, nil
}

// UpsertBatch upserts every record, collecting per-item failures, and
// concludes with a snapshot write.
func (s *DocumentStore) UpsertBatch(ctx context.Context, recs []*types.Record) (*types.IngestResult, error) {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	result := &types.IngestResult{}
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return result, err
		}
		if _, err := s.upsertLocked(ctx, rec); err != nil {
			result.Failed++
			identity := ""
			if rec != nil {
				identity = rec.Identity().String()
			}
			result.Errors = append(result.Errors, types.ItemError{Index: i, Identity: identity, Message: err.Error()})
			continue
		}
		result.Succeeded++
	}
	s.mu.Unlock()

	if err := s.Persist(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// Remove deletes a record and its index projection
func (s *DocumentStore) Remove(ctx context.Context, id types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.byKey[id.Key()]; !ok {
		return fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	if err := s.index.Delete(ctx, id.Key()); err != nil {
		return err
	}
	s.removeKeysLocked(map[string]bool{id.Key(): true})
	return nil
}

// RemoveFile deletes every record of filePath together with its file state
// and returns the number of records removed.
func (s *DocumentStore) RemoveFile(ctx context.Context, filePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	doomed := make(map[string]bool)
	for _, rec := range s.records {
		if rec.FilePath == filePath {
			doomed[rec.Key()] = true
		}
	}
	for key := range doomed {
		if err := s.index.Delete(ctx, key); err != nil {
			return 0, err
		}
	}
	s.removeKeysLocked(doomed)
	delete(s.files, filePath)
	return len(doomed), nil
}

// removeKeysLocked drops records by key and rebuilds the position map
func (s *DocumentStore) removeKeysLocked(keys map[string]bool) {
	if len(keys) == 0 {
		return
	}
	kept := s.records[:0]
	for _, rec := range s.records {
		if !keys[rec.Key()] {
			kept = append(kept, rec)
		}
	}
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = nil
	}
	s.records = kept

	s.byKey = make(map[string]int, len(s.records))
	for i, rec := range s.records {
		s.byKey[rec.Key()] = i
	}
	s.generation.Add(1)
}

// FindOne returns the record with the given identity
func (s *DocumentStore) FindOne(id types.Identity) (*types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	i, ok := s.byKey[id.Key()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, types.ErrNotFound)
	}
	return s.records[i].Clone(), nil
}

// Find returns copies of every record satisfying pred, in store order.
// pred sees the canonical record and must not modify it.
func (s *DocumentStore) Find(pred func(*types.Record) bool) ([]*types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]*types.Record, 0)
	for _, rec := range s.records {
		if pred == nil || pred(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// FindByFile returns the records of one file
func (s *DocumentStore) FindByFile(filePath string) ([]*types.Record, error) {
	return s.Find(func(r *types.Record) bool { return r.FilePath == filePath })
}

// FindByName returns every record with the given name, across files
func (s *DocumentStore) FindByName(name string) ([]*types.Record, error) {
	return s.Find(func(r *types.Record) bool { return r.Name == name })
}

// All returns copies of every record
func (s *DocumentStore) All() ([]*types.Record, error) {
	return s.Find(nil)
}

// Files returns the distinct file paths represented in the store, sorted
func (s *DocumentStore) Files() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	files := make([]string, 0)
	for _, rec := range s.records {
		if !seen[rec.FilePath] {
			seen[rec.FilePath] = true
			files = append(files, rec.FilePath)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Len returns the number of records
func (s *DocumentStore) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

// FileState returns the tracked state of a file
func (s *DocumentStore) FileState(filePath string) (FileState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return FileState{}, false, err
	}
	st, ok := s.files[filePath]
	return st, ok, nil
}

// SetFileState records the state of a file after indexing
func (s *DocumentStore) SetFileState(filePath string, state FileState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	s.files[filePath] = state
	return nil
}

// Persist writes a whole-collection snapshot. Without a snapshot path it is a no-op.
func (s *DocumentStore) Persist(ctx context.Context) error {
	s.mu.RLock()
	if err := s.checkOpen(); err != nil {
		s.mu.RUnlock()
		return err
	}
	if s.opts.SnapshotPath == "" {
		s.mu.RUnlock()
		return nil
	}

	records := make([]*types.Record, len(s.records))
	for i, rec := range s.records {
		records[i] = rec.Clone()
	}
	files := make(map[string]FileState, len(s.files))
	for k, v := range s.files {
		files[k] = v
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := newSnapshot(records, files)
	if err := writeSnapshot(s.opts.SnapshotPath, snap); err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshotID = snap.ID
	s.persistedAt = snap.WrittenAt
	s.mu.Unlock()

	s.log.Debug("snapshot written", slog.String("id", snap.ID), slog.Int("records", len(records)))
	return nil
}

// Generation returns a counter that changes on every mutation
func (s *DocumentStore) Generation() uint64 {
	return s.generation.Load()
}

// Index exposes the full-text projection for read-only matching
func (s *DocumentStore) Index() FullTextIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// RebuildIndex re-derives the full-text index from the canonical records
func (s *DocumentStore) RebuildIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.rebuildIndexLocked(ctx)
}

func (s *DocumentStore) rebuildIndexLocked(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	docs := make([]Document, 0, len(s.records))
	for _, rec := range s.records {
		docs = append(docs, ProjectRecord(rec))
	}
	if err := s.index.PutBatch(ctx, docs); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	s.generation.Add(1)
	return nil
}

// Stats reports counts and health of the store
func (s *DocumentStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	files := make(map[string]bool)
	for _, rec := range s.records {
		files[rec.FilePath] = true
	}

	stats := &Stats{
		Records:      len(s.records),
		Files:        len(files),
		Generation:   s.generation.Load(),
		SnapshotID:   s.snapshotID,
		SnapshotPath: s.opts.SnapshotPath,
		PersistedAt:  s.persistedAt,
		Health: HealthStatus{
			Persistent: s.opts.SnapshotPath != "",
		},
	}

	n, err := s.index.Count(ctx)
	if err == nil {
		stats.IndexedDocuments = n
		stats.Health.IndexAccessible = true
		stats.Health.IndexInSync = n == len(s.records)
	}
	return stats, nil
}
