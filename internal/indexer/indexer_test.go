package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/store"
	storesqlite "github.com/codeindex-dev/codeindex/internal/store/sqlite"
)

func newTestIndexer(t *testing.T, rootDir string, opt Options) (*Indexer, store.Store) {
	t.Helper()
	st, err := storesqlite.New(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	opt.RootDir = rootDir
	return New(opt, st, nil, nil), st
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const goIndexerSample = `package widget

func Describe() string {
	return helper()
}

func helper() string {
	return "ok"
}
`

func TestIndexAllIndexesMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widget.go", goIndexerSample)
	writeFile(t, dir, "README.md", "not code")

	idx, st := newTestIndexer(t, dir, Options{})
	require.NoError(t, idx.IndexAll(context.Background(), nil))

	files, err := st.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "widget.go", files[0].Path)

	symbols, err := st.FindSymbolsByName(context.Background(), "Describe", store.SymbolFilter{})
	require.NoError(t, err)
	require.Len(t, symbols, 1)
}

func TestIndexAllSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widget.go", goIndexerSample)

	idx, st := newTestIndexer(t, dir, Options{})
	ctx := context.Background()
	require.NoError(t, idx.IndexAll(ctx, nil))

	first, err := st.GetFileByPath(ctx, "widget.go")
	require.NoError(t, err)

	require.NoError(t, idx.IndexAll(ctx, nil))

	second, err := st.GetFileByPath(ctx, "widget.go")
	require.NoError(t, err)
	require.Equal(t, first.IndexedAt, second.IndexedAt, "unchanged content hash should skip re-indexing")
}

func TestIndexAllReindexesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widget.go", goIndexerSample)

	idx, st := newTestIndexer(t, dir, Options{})
	ctx := context.Background()
	require.NoError(t, idx.IndexAll(ctx, nil))

	writeFile(t, dir, "widget.go", goIndexerSample+"\nfunc Extra() {}\n")
	require.NoError(t, idx.IndexAll(ctx, nil))

	symbols, err := st.FindSymbolsByName(ctx, "Extra", store.SymbolFilter{})
	require.NoError(t, err)
	require.Len(t, symbols, 1)
}

func TestIndexAllRespectsExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widget.go", goIndexerSample)
	writeFile(t, dir, "vendor/thirdparty.go", goIndexerSample)

	idx, st := newTestIndexer(t, dir, Options{Exclude: []string{"vendor/**"}})
	require.NoError(t, idx.IndexAll(context.Background(), nil))

	files, err := st.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "widget.go", files[0].Path)
}

func TestRebuildClearsAndReindexes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widget.go", goIndexerSample)

	idx, st := newTestIndexer(t, dir, Options{})
	ctx := context.Background()
	require.NoError(t, idx.IndexAll(ctx, nil))
	require.NoError(t, idx.Rebuild(ctx, nil))

	files, err := st.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestIndexFileSingle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widget.go", goIndexerSample)

	idx, st := newTestIndexer(t, dir, Options{})
	require.NoError(t, idx.IndexFile(context.Background(), "widget.go"))

	_, err := st.GetFileByPath(context.Background(), "widget.go")
	require.NoError(t, err)
}
