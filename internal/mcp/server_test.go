package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/indexer"
	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/query"
	"github.com/codeindex-dev/codeindex/internal/store"
	storesqlite "github.com/codeindex-dev/codeindex/internal/store/sqlite"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	st, err := storesqlite.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	engine := query.New(st, 64)
	idx := indexer.New(indexer.Options{RootDir: t.TempDir()}, st, nil, nil)

	return &Server{engine: engine, idx: idx}, st
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		toolFunc func() mcp.Tool
		toolName string
	}{
		{"init", newInitTool, "init"},
		{"find_symbols", newFindSymbolsTool, "find_symbols"},
		{"find_symbol", newFindSymbolTool, "find_symbol"},
		{"definition", newDefinitionTool, "definition"},
		{"references", newReferencesTool, "references"},
		{"call_chain", newCallChainTool, "call_chain"},
		{"object_properties", newObjectPropertiesTool, "object_properties"},
		{"semantic_search", newSemanticSearchTool, "semantic_search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := tt.toolFunc()
			assert.Equal(t, tt.toolName, tool.Name)
			assert.NotEmpty(t, tool.Description)
		})
	}
}

func TestFindSymbolsToolSchema(t *testing.T) {
	tool := newFindSymbolsTool()
	assert.Contains(t, tool.InputSchema.Properties, "name")
	nameProp := tool.InputSchema.Properties["name"].(map[string]interface{})
	assert.Equal(t, "string", nameProp["type"])
}

func TestHandleFindSymbolsError(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "find_symbols", Arguments: map[string]any{}},
	}
	result, err := srv.handleFindSymbols(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleFindSymbolsEmpty(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "find_symbols", Arguments: map[string]any{"name": "DoesNotExist"}},
	}
	result, err := srv.handleFindSymbols(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestHandleFindSymbolsAfterIndex(t *testing.T) {
	ctx := context.Background()
	srv, st := newTestServer(t)

	_, _, err := st.ReindexFile(ctx, model.File{
		Path: "main.go", Language: model.LangGo, ContentHash: "h1",
	}, []model.Symbol{
		{Language: model.LangGo, Kind: model.KindFunction, Name: "Run", QualifiedName: "Run", Span: model.Span{StartLine: 1, EndLine: 3}, Exported: true},
	}, nil, nil)
	require.NoError(t, err)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "find_symbols", Arguments: map[string]any{"name": "Run"}},
	}
	result, err := srv.handleFindSymbols(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestHandleSemanticSearchNoEmbedder(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "semantic_search", Arguments: map[string]any{"query": "parse a file"}},
	}
	result, err := srv.handleSemanticSearch(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleDefinitionMissingSymbol(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "definition", Arguments: map[string]any{"symbol_id": float64(999)}},
	}
	result, err := srv.handleDefinition(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
