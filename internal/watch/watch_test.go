package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/store"
	storesqlite "github.com/codeindex-dev/codeindex/internal/store/sqlite"
)

type fakeReindexer struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeReindexer) IndexFile(_ context.Context, relPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, relPath)
	return nil
}

func (f *fakeReindexer) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.paths))
	copy(out, f.paths)
	return out
}

func newTestWatcher(t *testing.T, dir string, opt Options, idx Reindexer, st store.Store) *Watcher {
	t.Helper()
	opt.RootDir = dir
	w, err := New(opt, idx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestMatchesGlobsRespectsIncludeExclude(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), Options{Exclude: []string{"vendor/**"}}, &fakeReindexer{}, nil)

	require.True(t, w.matchesGlobs("widget.go"))
	require.False(t, w.matchesGlobs("vendor/thirdparty.go"))
	require.False(t, w.matchesGlobs("README.md"), "unsupported extensions are never watched")
}

func TestOnDebounceFireDropsBelowThresholdChanges(t *testing.T) {
	dir := t.TempDir()
	idx := &fakeReindexer{}
	w := newTestWatcher(t, dir, Options{MinChangeLines: 5}, idx, nil)

	path := filepath.Join(dir, "widget.go")
	require.NoError(t, os.WriteFile(path, []byte("line1\nline2\nline3\n"), 0o644))
	w.onDebounceFire("widget.go")
	w.flushPending()
	require.Equal(t, []string{"widget.go"}, idx.seen(), "the first observation of a file always enqueues")

	require.NoError(t, os.WriteFile(path, []byte("line1\nline2\nline3\nline4\n"), 0o644))
	w.onDebounceFire("widget.go")
	w.flushPending()
	require.Equal(t, []string{"widget.go"}, idx.seen(), "a one-line delta stays below the threshold of 5 and is dropped")

	require.NoError(t, os.WriteFile(path, []byte("line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\nline9\n"), 0o644))
	w.onDebounceFire("widget.go")
	w.flushPending()
	require.Equal(t, []string{"widget.go", "widget.go"}, idx.seen(), "a large delta crosses the threshold and enqueues again")
}

func TestEnqueueBatchesUntilTimerFires(t *testing.T) {
	idx := &fakeReindexer{}
	w := newTestWatcher(t, t.TempDir(), Options{BatchWindow: 30 * time.Millisecond}, idx, nil)

	w.enqueue("a.go")
	w.enqueue("b.go")
	require.Empty(t, idx.seen(), "a batch waits for the window to elapse before reindexing")

	require.Eventually(t, func() bool {
		return len(idx.seen()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestFlushPendingDrainsSynchronously(t *testing.T) {
	idx := &fakeReindexer{}
	w := newTestWatcher(t, t.TempDir(), Options{BatchWindow: time.Hour}, idx, nil)

	w.enqueue("a.go")
	w.flushPending()
	require.Equal(t, []string{"a.go"}, idx.seen())
}

func newTestStoreForWatch(t *testing.T) store.Store {
	t.Helper()
	st, err := storesqlite.New(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestHandleRemovalDeletesTrackedFile(t *testing.T) {
	st := newTestStoreForWatch(t)
	ctx := context.Background()
	_, _, err := st.ReindexFile(ctx, model.File{Path: "widget.go", Language: model.LangGo, ContentHash: "abc"}, nil, nil, nil)
	require.NoError(t, err)

	w := newTestWatcher(t, t.TempDir(), Options{}, &fakeReindexer{}, st)
	w.handleRemoval("widget.go")

	_, err = st.GetFileByPath(ctx, "widget.go")
	require.ErrorIs(t, err, store.ErrFileNotIndexed)
}

func TestHandleRemovalCascadesDirectory(t *testing.T) {
	st := newTestStoreForWatch(t)
	ctx := context.Background()
	_, _, err := st.ReindexFile(ctx, model.File{Path: "pkg/widget.go", Language: model.LangGo, ContentHash: "abc"}, nil, nil, nil)
	require.NoError(t, err)

	w := newTestWatcher(t, t.TempDir(), Options{}, &fakeReindexer{}, st)
	w.handleRemoval("pkg")

	_, err = st.GetFileByPath(ctx, "pkg/widget.go")
	require.ErrorIs(t, err, store.ErrFileNotIndexed)
}

func TestStartAndStopReindexesOnWrite(t *testing.T) {
	dir := t.TempDir()
	idx := &fakeReindexer{}
	w := newTestWatcher(t, dir, Options{
		Debounce:       10 * time.Millisecond,
		BatchWindow:    10 * time.Millisecond,
		MinChangeLines: 1,
	}, idx, nil)

	require.NoError(t, w.Start())

	path := filepath.Join(dir, "widget.go")
	require.NoError(t, os.WriteFile(path, []byte("package widget\n"), 0o644))

	require.Eventually(t, func() bool {
		return len(idx.seen()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
}
