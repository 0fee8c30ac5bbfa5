package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/pkg/types"
)

func setupTestStore(t *testing.T, snapshotPath string) *DocumentStore {
	t.Helper()
	store := NewDocumentStore(Options{SnapshotPath: snapshotPath})
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(name, file string, line int) *types.Record {
	return &types.Record{
		Name:          name,
		FilePath:      file,
		LineNumber:    line,
		Language:      "go",
		Signature:     name + "()",
		Parameters:    []types.Parameter{},
		Purpose:       "does " + name,
		TokenizedName: []string{name},
		Metadata:      types.Metadata{SchemaVersion: types.MetadataSchemaVersion, EntityType: types.KindFunction},
	}
}

func TestDocumentStore_NotInitialized(t *testing.T) {
	store := NewDocumentStore(Options{})
	ctx := context.Background()

	_, err := store.Upsert(ctx, testRecord("a", "a.go", 1))
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	_, err = store.All()
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	_, err = store.FindOne(types.Identity{Name: "a", FilePath: "a.go", LineNumber: 1})
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	_, err = store.UpsertBatch(ctx, nil)
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	assert.ErrorIs(t, store.Persist(ctx), types.ErrNotInitialized)
	_, err = store.Stats(ctx)
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestDocumentStore_IdentityUniqueness(t *testing.T) {
	store := setupTestStore(t, "")
	ctx := context.Background()

	inserted, err := store.Upsert(ctx, testRecord("foo", "a.ts", 3))
	require.NoError(t, err)
	assert.True(t, inserted)

	for i := 0; i < 3; i++ {
		rec := testRecord("foo", "a.ts", 3)
		rec.Purpose = "revision"
		inserted, err = store.Upsert(ctx, rec)
		require.NoError(t, err)
		assert.False(t, inserted)
	}

	// Same name on another line is a different identity
	_, err = store.Upsert(ctx, testRecord("foo", "a.ts", 9))
	require.NoError(t, err)

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.FindOne(types.Identity{Name: "foo", FilePath: "a.ts", LineNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, "revision", got.Purpose)

	// The index holds one document per record
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.IndexedDocuments)
	assert.True(t, stats.Health.IndexInSync)
	assert.False(t, stats.Health.Persistent)
}

func TestDocumentStore_ReturnsCopies(t *testing.T) {
	store := setupTestStore(t, "")
	ctx := context.Background()

	_, err := store.Upsert(ctx, testRecord("foo", "a.go", 1))
	require.NoError(t, err)

	recs, err := store.FindByName("foo")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	recs[0].Purpose = "mutated"
	recs[0].Metadata.CalledBy = append(recs[0].Metadata.CalledBy, "x")

	again, err := store.FindOne(recs[0].Identity())
	require.NoError(t, err)
	assert.Equal(t, "does foo", again.Purpose)
	assert.Empty(t, again.Metadata.CalledBy)
}

func TestDocumentStore_Remove(t *testing.T) {
	store := setupTestStore(t, "")
	ctx := context.Background()

	foo := testRecord("foo", "a.go", 1)
	bar := testRecord("bar", "a.go", 5)
	baz := testRecord("baz", "b.go", 1)
	for _, r := range []*types.Record{foo, bar, baz} {
		_, err := store.Upsert(ctx, r)
		require.NoError(t, err)
	}

	require.NoError(t, store.Remove(ctx, foo.Identity()))
	assert.ErrorIs(t, store.Remove(ctx, foo.Identity()), types.ErrNotFound)

	_, err := store.FindOne(foo.Identity())
	assert.ErrorIs(t, err, types.ErrNotFound)

	// Remaining records are still addressable after compaction
	got, err := store.FindOne(baz.Identity())
	require.NoError(t, err)
	assert.Equal(t, "baz", got.Name)

	keys, err := store.Index().Match(ctx, Quote("foo"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDocumentStore_RemoveFile(t *testing.T) {
	store := setupTestStore(t, "")
	ctx := context.Background()

	for _, r := range []*types.Record{testRecord("foo", "a.go", 1), testRecord("bar", "a.go", 5), testRecord("baz", "b.go", 1)} {
		_, err := store.Upsert(ctx, r)
		require.NoError(t, err)
	}
	require.NoError(t, store.SetFileState("a.go", FileState{ContentHash: "abc"}))

	removed, err := store.RemoveFile(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	files, err := store.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go"}, files)

	_, ok, err := store.FileState("a.go")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentStore_FindAndFiles(t *testing.T) {
	store := setupTestStore(t, "")
	ctx := context.Background()

	for _, r := range []*types.Record{testRecord("foo", "z.go", 1), testRecord("foo", "a.go", 1), testRecord("bar", "a.go", 5)} {
		_, err := store.Upsert(ctx, r)
		require.NoError(t, err)
	}

	byName, err := store.FindByName("foo")
	require.NoError(t, err)
	require.Len(t, byName, 2)
	// Store order is insertion order
	assert.Equal(t, "z.go", byName[0].FilePath)

	byFile, err := store.FindByFile("a.go")
	require.NoError(t, err)
	assert.Len(t, byFile, 2)

	files, err := store.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "z.go"}, files)

	matched, err := store.Find(func(r *types.Record) bool { return r.Name == "bar" })
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestDocumentStore_Generation(t *testing.T) {
	store := setupTestStore(t, "")
	ctx := context.Background()

	before := store.Generation()
	_, err := store.Upsert(ctx, testRecord("foo", "a.go", 1))
	require.NoError(t, err)
	assert.Greater(t, store.Generation(), before)
}

func TestDocumentStore_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.json")
	ctx := context.Background()

	store := NewDocumentStore(Options{SnapshotPath: path})
	require.NoError(t, store.Open(ctx))

	rec := testRecord("getUserData", "src/user.ts", 12)
	rec.TokenizedName = []string{"get", "user", "data", "getUserData"}
	rec.Metadata.FunctionCalls = []string{"src/api.ts#fetch"}
	depth := 2
	rec.Metadata.DependencyDepth = &depth

	result, err := store.UpsertBatch(ctx, []*types.Record{rec, nil, testRecord("other", "src/other.ts", 1)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)

	modTime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.SetFileState("src/user.ts", FileState{ContentHash: "h1", ModTime: modTime, SizeBytes: 10}))
	require.NoError(t, store.Persist(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	firstID := stats.SnapshotID
	assert.NotEmpty(t, firstID)
	require.NoError(t, store.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened := setupTestStore(t, path)
	got, err := reopened.FindOne(rec.Identity())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/api.ts#fetch"}, got.Metadata.FunctionCalls)
	require.NotNil(t, got.Metadata.DependencyDepth)
	assert.Equal(t, 2, *got.Metadata.DependencyDepth)

	st, ok, err := reopened.FileState("src/user.ts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h1", st.ContentHash)
	assert.True(t, modTime.Equal(st.ModTime))

	// The index is re-derived on open
	keys, err := reopened.Index().Match(ctx, Quote("user"))
	require.NoError(t, err)
	assert.Equal(t, []string{rec.Key()}, keys)

	stats, err = reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstID, stats.SnapshotID)
	assert.Equal(t, 2, stats.Records)
	assert.True(t, stats.Health.Persistent)
}

func TestDocumentStore_RejectsIncompatibleSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"formatVersion":"2.0.0","records":[]}`), 0644))

	store := NewDocumentStore(Options{SnapshotPath: path})
	err := store.Open(context.Background())
	assert.ErrorIs(t, err, ErrSnapshotVersion)

	_, err = store.All()
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestDocumentStore_RebuildIndex(t *testing.T) {
	store := setupTestStore(t, "")
	ctx := context.Background()

	_, err := store.Upsert(ctx, testRecord("foo", "a.go", 1))
	require.NoError(t, err)

	// Simulate drift by clearing the projection behind the store's back
	require.NoError(t, store.Index().Reset(ctx))
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Health.IndexInSync)

	require.NoError(t, store.RebuildIndex(ctx))
	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Health.IndexInSync)

	keys, err := store.Index().Match(ctx, Quote("foo"))
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
