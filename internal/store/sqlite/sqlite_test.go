package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestReindexFileInsertsSymbolsCallsAndRefs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f := model.File{Path: "widget.go", Language: model.LangGo, ContentHash: "abc"}
	symbols := []model.Symbol{
		{Name: "NewWidget", QualifiedName: "widget.NewWidget", Kind: model.KindFunction, Language: model.LangGo, Exported: true, Span: model.Span{StartLine: 1, EndLine: 5}},
		{Name: "helper", QualifiedName: "widget.helper", Kind: model.KindFunction, Language: model.LangGo, Exported: false, Span: model.Span{StartLine: 7, EndLine: 9}},
	}
	calls := []store.PendingCall{
		{CalleeName: "helper", Site: model.Span{StartLine: 2, EndLine: 2}},
	}
	refs := []store.PendingRef{
		{TargetName: "helper", Kind: model.RefCall, Site: model.Span{StartLine: 2, EndLine: 2}},
	}

	fileID, symbolIDs, err := st.ReindexFile(ctx, f, symbols, calls, refs)
	require.NoError(t, err)
	require.NotZero(t, fileID)
	require.Len(t, symbolIDs, 2)

	got, err := st.FindSymbolsByName(ctx, "NewWidget", store.SymbolFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, fileID, got[0].File)

	outgoing, err := st.OutgoingCalls(ctx, symbolIDs[0])
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	require.Equal(t, symbolIDs[1], outgoing[0].Callee)

	incoming, err := st.IncomingCalls(ctx, symbolIDs[1])
	require.NoError(t, err)
	require.Len(t, incoming, 1)
}

func TestReindexFileReplacesPriorRows(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f := model.File{Path: "widget.go", Language: model.LangGo, ContentHash: "v1"}
	_, _, err := st.ReindexFile(ctx, f, []model.Symbol{
		{Name: "Old", QualifiedName: "widget.Old", Kind: model.KindFunction, Language: model.LangGo},
	}, nil, nil)
	require.NoError(t, err)

	f.ContentHash = "v2"
	_, symbolIDs, err := st.ReindexFile(ctx, f, []model.Symbol{
		{Name: "New", QualifiedName: "widget.New", Kind: model.KindFunction, Language: model.LangGo},
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, symbolIDs, 1)

	old, err := st.FindSymbolsByName(ctx, "Old", store.SymbolFilter{})
	require.NoError(t, err)
	require.Empty(t, old)

	newer, err := st.FindSymbolsByName(ctx, "New", store.SymbolFilter{})
	require.NoError(t, err)
	require.Len(t, newer, 1)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f := model.File{Path: "widget.go", Language: model.LangGo, ContentHash: "abc"}
	_, symbolIDs, err := st.ReindexFile(ctx, f, []model.Symbol{
		{Name: "F", QualifiedName: "widget.F", Kind: model.KindFunction, Language: model.LangGo},
	}, nil, nil)
	require.NoError(t, err)

	vec := []float32{0.1, 0.2, 0.3}
	payload, err := PackEmbedding(vec)
	require.NoError(t, err)

	err = st.UpsertEmbedding(ctx, model.Embedding{
		Symbol:    symbolIDs[0],
		Model:     "test-model",
		Dimension: len(vec),
		Payload:   payload,
		ChunkHash: "h1",
	})
	require.NoError(t, err)

	embeddings, err := st.FetchEmbeddings(ctx, store.EmbeddingFilter{Model: "test-model"})
	require.NoError(t, err)
	require.Len(t, embeddings, 1)

	got, err := UnpackEmbedding(embeddings[0].Payload)
	require.NoError(t, err)
	require.Equal(t, vec, got)

	require.NoError(t, st.UpdateSummary(ctx, symbolIDs[0], "h1", "summary", 1, 1))
	missing, err := st.SymbolsMissingEmbedding(ctx, "test-model", 10)
	require.NoError(t, err)
	require.Empty(t, missing)

	missingOther, err := st.SymbolsMissingEmbedding(ctx, "other-model", 10)
	require.NoError(t, err)
	require.Len(t, missingOther, 1)
}

func TestSummaryGating(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f := model.File{Path: "widget.go", Language: model.LangGo, ContentHash: "abc"}
	_, symbolIDs, err := st.ReindexFile(ctx, f, []model.Symbol{
		{Name: "F", QualifiedName: "widget.F", Kind: model.KindFunction, Language: model.LangGo},
	}, nil, nil)
	require.NoError(t, err)

	needing, err := st.SymbolsNeedingSummary(ctx, 10)
	require.NoError(t, err)
	require.Len(t, needing, 1)

	err = st.UpdateSummary(ctx, symbolIDs[0], "hash1", "does a thing", 3, 1)
	require.NoError(t, err)

	needing, err = st.SymbolsNeedingSummary(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, needing)
}

func TestClear(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f := model.File{Path: "widget.go", Language: model.LangGo, ContentHash: "abc"}
	_, _, err := st.ReindexFile(ctx, f, []model.Symbol{
		{Name: "F", QualifiedName: "widget.F", Kind: model.KindFunction, Language: model.LangGo},
	}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, st.Clear(ctx))

	files, err := st.ListFiles(ctx)
	require.NoError(t, err)
	require.Empty(t, files)
}
