package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// MemoryIndexPath keeps the full-text index in memory
const MemoryIndexPath = ":memory:"

// SQLiteIndex implements FullTextIndex using SQLite FTS5
type SQLiteIndex struct {
	db *sql.DB
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != MemoryIndexPath {
		// Enable WAL mode for better concurrency
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return db, nil
}

// NewSQLiteIndex opens (or creates) a full-text index at dbPath.
// An empty path selects an in-memory index.
func NewSQLiteIndex(ctx context.Context, dbPath string) (*SQLiteIndex, error) {
	if dbPath == "" {
		dbPath = MemoryIndexPath
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

// Close closes the database connection
func (ix *SQLiteIndex) Close() error {
	return ix.db.Close()
}

// putWithQuerier is the internal implementation that uses a querier
func (ix *SQLiteIndex) putWithQuerier(ctx context.Context, q querier, doc Document) error {
	query := `
		INSERT INTO documents (doc_key, file_path, name, tokens, signature, purpose, context, documentation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_key) DO UPDATE SET
			file_path = excluded.file_path,
			name = excluded.name,
			tokens = excluded.tokens,
			signature = excluded.signature,
			purpose = excluded.purpose,
			context = excluded.context,
			documentation = excluded.documentation,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		doc.Key, doc.FilePath, doc.Name, doc.Tokens, doc.Signature,
		doc.Purpose, doc.Context, doc.Documentation, time.Now())
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

// Put inserts or replaces a document
func (ix *SQLiteIndex) Put(ctx context.Context, doc Document) error {
	return ix.putWithQuerier(ctx, ix.db, doc)
}

// PutBatch indexes documents in a single transaction
func (ix *SQLiteIndex) PutBatch(ctx context.Context, docs []Document) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, doc := range docs {
		if err := ix.putWithQuerier(ctx, tx, doc); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a document by key; deleting a missing key is not an error
func (ix *SQLiteIndex) Delete(ctx context.Context, key string) error {
	_, err := ix.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Reset removes every document
func (ix *SQLiteIndex) Reset(ctx context.Context) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents_fts(documents_fts) VALUES ('rebuild')`); err != nil {
		return fmt.Errorf("failed to rebuild fts index: %w", err)
	}
	return tx.Commit()
}

// Match runs an FTS5 match expression and returns the matching document keys
// ordered by BM25 rank (best first).
func (ix *SQLiteIndex) Match(ctx context.Context, expr string) ([]string, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	// Note: In FTS5, 'rank' is a built-in virtual column representing BM25 relevance score.
	// Lower rank values indicate better matches.
	query := `
		SELECT d.doc_key
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		WHERE documents_fts MATCH ?
		ORDER BY rank
	`
	rows, err := ix.db.QueryContext(ctx, query, expr)
	if err != nil {
		return nil, fmt.Errorf("fts match %q: %w", expr, err)
	}
	defer func() { _ = rows.Close() }()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Vocabulary returns every distinct token in the index
func (ix *SQLiteIndex) Vocabulary(ctx context.Context) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT term FROM documents_vocab`)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	terms := make([]string, 0)
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// Count returns the number of indexed documents
func (ix *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
