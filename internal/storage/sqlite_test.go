package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/pkg/types"
)

func setupTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	// Use in-memory database for testing
	ix, err := NewSQLiteIndex(context.Background(), MemoryIndexPath)
	require.NoError(t, err)
	require.NotNil(t, ix)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestNewSQLiteIndex(t *testing.T) {
	ix := setupTestIndex(t)
	assert.NotNil(t, ix.db)

	version, err := schemaVersion(context.Background(), ix.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, ix.db))

	var rows int
	require.NoError(t, ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&rows))
	assert.Equal(t, len(AllMigrations), rows)
}

func TestRollbackMigration(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, ix.db))
	version, err := schemaVersion(ctx, ix.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version.String())

	require.NoError(t, ApplyMigrations(ctx, ix.db))
	version, err = schemaVersion(ctx, ix.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestPutAndMatch(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Put(ctx, Document{Key: "k1", FilePath: "a.go", Name: "getUserData", Tokens: "get user data getUserData", Purpose: "loads a user"}))
	require.NoError(t, ix.Put(ctx, Document{Key: "k2", FilePath: "b.go", Name: "saveOrder", Tokens: "save order saveOrder", Purpose: "persists an order"}))

	keys, err := ix.Match(ctx, Quote("user"))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, keys)

	keys, err = ix.Match(ctx, AnyOf([]string{"user", "order"}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"k1", "k2"}, keys)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPut_ReplacesDocument(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Put(ctx, Document{Key: "k1", Name: "alpha", Purpose: "first"}))
	require.NoError(t, ix.Put(ctx, Document{Key: "k1", Name: "alpha", Purpose: "second"}))

	keys, err := ix.Match(ctx, Quote("first"))
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = ix.Match(ctx, Quote("second"))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, keys)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteAndReset(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.PutBatch(ctx, []Document{
		{Key: "k1", Name: "alpha"},
		{Key: "k2", Name: "beta"},
	}))

	require.NoError(t, ix.Delete(ctx, "k1"))
	require.NoError(t, ix.Delete(ctx, "missing"))

	keys, err := ix.Match(ctx, Quote("alpha"))
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, ix.Reset(ctx))
	n, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	keys, err = ix.Match(ctx, Quote("beta"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestVocabulary(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Put(ctx, Document{Key: "k1", Name: "Authenticate", Purpose: "checks a token"}))

	vocab, err := ix.Vocabulary(ctx)
	require.NoError(t, err)
	assert.Contains(t, vocab, "authenticate")
	assert.Contains(t, vocab, "token")
}

func TestRestrict(t *testing.T) {
	expr := Restrict([]types.SearchField{types.FieldName}, Quote("user"))
	assert.Equal(t, `{name tokens} : "user"`, expr)

	expr = Restrict(nil, Quote("user"))
	assert.Equal(t, `{name tokens signature documentation purpose context} : "user"`, expr)

	assert.Empty(t, Restrict(nil, ""))
}

func TestRestrict_LimitsColumns(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Put(ctx, Document{Key: "k1", Name: "load", Purpose: "reads the user"}))

	keys, err := ix.Match(ctx, Restrict([]types.SearchField{types.FieldName}, Quote("user")))
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = ix.Match(ctx, Restrict([]types.SearchField{types.FieldPurpose}, Quote("user")))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, keys)
}

func TestExpressionHelpers(t *testing.T) {
	assert.Equal(t, `"say ""hi"""`, Quote(`say "hi"`))
	assert.Equal(t, `("a" OR "b")`, AnyOf([]string{"a", "b", "--"}))
	assert.Equal(t, `("a" AND "b")`, AllOf([]string{"a", "b"}))
	assert.Equal(t, `"a"`, AllOf([]string{"a"}))
	assert.Empty(t, AnyOf([]string{"-", "#"}))
	assert.False(t, Searchable("->"))
	assert.True(t, Searchable("x1"))
}
