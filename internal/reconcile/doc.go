// Package reconcile keeps the document store in step with the source files
// on disk.
//
// # Operations
//
//	eng := reconcile.New(store, graphEngine, extractor.DefaultRegistry(), reconcile.Options{})
//
//	// One file, with an entity list from any extractor
//	res, err := eng.SyncFile(ctx, "web/api.ts", entities)
//
//	// Every stored file, re-read and re-extracted
//	deep, err := eng.DeepSync(ctx)
//
//	// Existence check only; drops records of deleted files
//	clean, err := eng.BulkCleanup(ctx)
//
//	// Walk a tree, skipping files whose content hash is unchanged
//	stats, err := eng.IndexDirectory(ctx, "/path/to/project", reconcile.IndexOptions{})
//
// # Change Detection
//
// SyncFile computes the set difference between the reported entities and
// the stored records of the file by identity (name, file, line). A stored
// record whose content fingerprint is unchanged counts as unchanged, so
// syncing the same list twice reports no changes. After every
// reconciliation the CalledBy edges are rebuilt and a snapshot is written.
//
// IndexDirectory additionally records a SHA-256 content hash per file and
// skips files whose hash matches the previous run.
//
// # Concurrency
//
// Extraction runs on an errgroup-bounded worker pool; mutations are applied
// sequentially. Overlapping reconciliations on one engine are rejected with
// types.ErrSyncInProgress.
//
// # Watching
//
// Watcher wraps fsnotify. Events are debounced per file and applied with
// ResyncFile; a file that disappeared loses its records.
package reconcile
