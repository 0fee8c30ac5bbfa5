package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/pkg/types"
)

func TestWatcher_SyncsChanges(t *testing.T) {
	e, store := setupTestEngine(t)
	root := t.TempDir()
	path := filepath.Join(root, "pkg", "math.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	var mu sync.Mutex
	synced := make(map[string]int)
	w, err := e.NewWatcher(root, WatchOptions{
		Debounce: 20 * time.Millisecond,
		OnSync: func(p string, _ *types.SyncResult, err error) {
			if err == nil {
				mu.Lock()
				synced[p]++
				mu.Unlock()
			}
		},
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Rewrite on every poll so the first write after the watch is installed is seen
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(mathSource), 0o644)
		recs, err := store.FindByFile(path)
		return err == nil && len(recs) == 2
	}, 5*time.Second, 100*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		recs, err := store.FindByFile(path)
		return err == nil && len(recs) == 0
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	assert.Positive(t, synced[path])
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_IgnoresExcludedFiles(t *testing.T) {
	e, _ := setupTestEngine(t)
	w, err := e.NewWatcher(t.TempDir(), WatchOptions{})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.False(t, e.included("notes.txt", w.opts.IndexOptions))
	assert.False(t, e.included("math_test.go", w.opts.IndexOptions))
	assert.True(t, e.included("math.go", w.opts.IndexOptions))
}
