// Package storage holds the canonical collection of code entity records.
//
// The storage layer manages:
//   - The in-memory record collection, unique by (name, file, line)
//   - Per-file content state used for incremental indexing
//   - Whole-collection JSON snapshots
//   - A SQLite FTS5 full-text projection of every record
//
// # Ownership
//
// DocumentStore owns the canonical records. The full-text index is derived
// and disposable: it is rebuilt from the records on Open and can be rebuilt
// at any time with RebuildIndex.
//
// # Basic Usage
//
//	store := storage.NewDocumentStore(storage.Options{
//	    SnapshotPath: "~/.codexref/index.json",
//	})
//	if err := store.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	inserted, err := store.Upsert(ctx, record)
//	recs, err := store.FindByFile("internal/auth/login.go")
//
// Every operation fails with types.ErrNotInitialized until Open succeeds.
//
// # Snapshots
//
// Single mutations stay in memory. UpsertBatch and the reconciliation engine
// finish with Persist, which writes the full collection to a temp file and
// renames it over the previous snapshot. The snapshot header carries a
// semver format version; snapshots from another major version are rejected.
//
// # Full-Text Search
//
// Records are projected into a documents table with an external-content
// FTS5 table kept in sync by triggers:
//
//	keys, err := store.Index().Match(ctx, `{name tokens} : "user"`)
//
// Keys are returned in BM25 rank order. An fts5vocab table exposes the
// indexed vocabulary for fuzzy term expansion.
//
// # Build Tags
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler and the fts5 tag
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"
package storage
