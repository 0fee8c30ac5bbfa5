package storage

import (
	"context"
	"time"

	"github.com/dshills/codexref/pkg/types"
)

// Store defines the interface of the authoritative document collection.
//
// Open must be called before any other operation; until then every method
// returns types.ErrNotInitialized. Single mutations (Upsert, Remove,
// RemoveFile) do not write a snapshot; batch operations conclude with Persist.
type Store interface {
	// Lifecycle
	Open(ctx context.Context) error
	Close() error

	// Mutations
	Upsert(ctx context.Context, rec *types.Record) (inserted bool, err error)
	UpsertBatch(ctx context.Context, recs []*types.Record) (*types.IngestResult, error)
	Remove(ctx context.Context, id types.Identity) error
	RemoveFile(ctx context.Context, filePath string) (int, error)

	// Lookups (results are copies)
	FindOne(id types.Identity) (*types.Record, error)
	Find(pred func(*types.Record) bool) ([]*types.Record, error)
	FindByFile(filePath string) ([]*types.Record, error)
	FindByName(name string) ([]*types.Record, error)
	All() ([]*types.Record, error)
	Files() ([]string, error)
	Len() (int, error)

	// File state tracking for incremental indexing
	FileState(filePath string) (FileState, bool, error)
	SetFileState(filePath string, state FileState) error

	// Persistence and index maintenance
	Persist(ctx context.Context) error
	Generation() uint64
	Index() FullTextIndex
	RebuildIndex(ctx context.Context) error

	// Status
	Stats(ctx context.Context) (*Stats, error)
}

// FullTextIndex is the derived, disposable search projection of the store.
// It is never authoritative and can always be rebuilt from the records.
type FullTextIndex interface {
	Put(ctx context.Context, doc Document) error
	PutBatch(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, key string) error
	Reset(ctx context.Context) error

	// Match runs an FTS5 match expression and returns document keys by rank
	Match(ctx context.Context, expr string) ([]string, error)
	// Vocabulary returns every distinct indexed token
	Vocabulary(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)

	Close() error
}

// Document is the full-text projection of a record
type Document struct {
	Key           string
	FilePath      string
	Name          string
	Tokens        string
	Signature     string
	Purpose       string
	Context       string
	Documentation string
}

// FileState tracks the content of a source file at its last indexing
type FileState struct {
	ContentHash string    `json:"contentHash"`
	ModTime     time.Time `json:"modTime"`
	SizeBytes   int64     `json:"sizeBytes"`
	IndexedAt   time.Time `json:"indexedAt"`
}

// Stats contains statistics about the store
type Stats struct {
	Records          int
	Files            int
	IndexedDocuments int
	Generation       uint64
	SnapshotID       string
	SnapshotPath     string
	PersistedAt      time.Time
	Health           HealthStatus
}

// HealthStatus represents the health of the store and its index
type HealthStatus struct {
	IndexAccessible bool
	IndexInSync     bool
	Persistent      bool
}
