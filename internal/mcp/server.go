// Package mcp exposes the query engine's read operations as MCP tools,
// named after the original protocol's verbs so a client built against
// that protocol maps onto this engine one-for-one.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codeindex-dev/codeindex/internal/embedder"
	"github.com/codeindex-dev/codeindex/internal/indexer"
	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/query"
)

// Options configures the tool surface.
type Options struct {
	EmbedModel string // model name SemanticSearch filters embeddings by
}

// Server wraps an MCP server bound to a query Engine, indexer, and
// query embedder.
type Server struct {
	opts   Options
	server *server.MCPServer
	engine *query.Engine
	idx    *indexer.Indexer
	embed  embedder.Embedder
	log    *slog.Logger
}

// New returns an MCP server exposing find_symbols, find_symbol,
// definition, references, call_chain, object_properties, and
// semantic_search, plus init for (re)indexing a project.
func New(opts Options, engine *query.Engine, idx *indexer.Indexer, embed embedder.Embedder, log *slog.Logger) *server.MCPServer {
	if log == nil {
		log = slog.Default()
	}
	srv := &Server{
		opts:   opts,
		engine: engine,
		idx:    idx,
		embed:  embed,
		log:    log,
		server: server.NewMCPServer(
			"codeindex/mcp",
			"0.1.0",
			server.WithToolCapabilities(true),
		),
	}

	srv.server.AddTool(newInitTool(), srv.handleInit)
	srv.server.AddTool(newFindSymbolsTool(), srv.handleFindSymbols)
	srv.server.AddTool(newFindSymbolTool(), srv.handleFindSymbol)
	srv.server.AddTool(newDefinitionTool(), srv.handleDefinition)
	srv.server.AddTool(newReferencesTool(), srv.handleReferences)
	srv.server.AddTool(newCallChainTool(), srv.handleCallChain)
	srv.server.AddTool(newObjectPropertiesTool(), srv.handleObjectProperties)
	srv.server.AddTool(newSemanticSearchTool(), srv.handleSemanticSearch)

	return srv.server
}

func newInitTool() mcp.Tool {
	return mcp.NewTool(
		"init",
		mcp.WithDescription("Index (or reindex) a project root into the store"),
		mcp.WithString("root_dir", mcp.Description("Project root; the server indexes the root it was started with, whatever this holds"), mcp.Required()),
	)
}

func (srv *Server) handleInit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root_dir")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_ = root // the Indexer is constructed with its RootDir fixed at wiring time.
	if err := srv.idx.IndexAll(ctx, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"status": "ok"}), nil
}

func newFindSymbolsTool() mcp.Tool {
	return mcp.NewTool(
		"find_symbols",
		mcp.WithDescription("Find all symbols matching a name, optionally filtered"),
		mcp.WithString("name", mcp.Description("Symbol name"), mcp.Required()),
		mcp.WithString("language", mcp.Description("Language filter")),
		mcp.WithString("in_file", mcp.Description("File path substring filter")),
		mcp.WithString("kind", mcp.Description("Symbol kind filter")),
	)
}

func (srv *Server) handleFindSymbols(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lang := model.Language(req.GetString("language", ""))
	inFile := req.GetString("in_file", "")
	kind := model.SymbolKind(req.GetString("kind", ""))

	symbols, err := srv.engine.FindSymbols(ctx, name, lang, inFile, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(symbols), nil
}

func newFindSymbolTool() mcp.Tool {
	return mcp.NewTool(
		"find_symbol",
		mcp.WithDescription("Find a single best-match symbol by name"),
		mcp.WithString("name", mcp.Description("Symbol name"), mcp.Required()),
		mcp.WithString("language", mcp.Description("Language filter")),
		mcp.WithString("in_file", mcp.Description("File path substring filter")),
		mcp.WithString("kind", mcp.Description("Symbol kind filter")),
	)
}

func (srv *Server) handleFindSymbol(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lang := model.Language(req.GetString("language", ""))
	inFile := req.GetString("in_file", "")
	kind := model.SymbolKind(req.GetString("kind", ""))

	sym, err := srv.engine.FindSymbol(ctx, name, lang, inFile, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if sym == nil {
		return mcp.NewToolResultStructuredOnly(map[string]any{"found": false}), nil
	}
	return mcp.NewToolResultStructuredOnly(sym), nil
}

func newDefinitionTool() mcp.Tool {
	return mcp.NewTool(
		"definition",
		mcp.WithDescription("Resolve a symbol id to its defining file and span"),
		mcp.WithNumber("symbol_id", mcp.Description("Symbol id"), mcp.Required()),
	)
}

func (srv *Server) handleDefinition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("symbol_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	loc, err := srv.engine.GetDefinition(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(loc), nil
}

func newReferencesTool() mcp.Tool {
	return mcp.NewTool(
		"references",
		mcp.WithDescription("List every reference site targeting a symbol"),
		mcp.WithNumber("symbol_id", mcp.Description("Symbol id"), mcp.Required()),
	)
}

func (srv *Server) handleReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("symbol_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := srv.engine.GetReferences(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(refs), nil
}

func newCallChainTool() mcp.Tool {
	return mcp.NewTool(
		"call_chain",
		mcp.WithDescription("Build a caller/callee tree rooted at a symbol"),
		mcp.WithNumber("symbol_id", mcp.Description("Root symbol id"), mcp.Required()),
		mcp.WithString("direction", mcp.Description("forward or backward"), mcp.DefaultString("forward")),
		mcp.WithNumber("depth", mcp.Description("Max depth"), mcp.DefaultNumber(5)),
	)
}

func (srv *Server) handleCallChain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("symbol_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction := model.Direction(req.GetString("direction", string(model.DirectionForward)))
	depth := req.GetInt("depth", 5)

	chain, err := srv.engine.BuildCallChain(ctx, int64(id), direction, depth)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(chain), nil
}

func newObjectPropertiesTool() mcp.Tool {
	return mcp.NewTool(
		"object_properties",
		mcp.WithDescription("Enumerate methods/properties/fields scoped under a class/interface/struct"),
		mcp.WithString("name", mcp.Description("Owner name"), mcp.Required()),
		mcp.WithString("language", mcp.Description("Language filter")),
	)
}

func (srv *Server) handleObjectProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lang := model.Language(req.GetString("language", ""))

	props, err := srv.engine.GetObjectProperties(ctx, name, lang)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(props), nil
}

func newSemanticSearchTool() mcp.Tool {
	return mcp.NewTool(
		"semantic_search",
		mcp.WithDescription("Semantic code search by natural language query"),
		mcp.WithString("query", mcp.Description("Natural language query"), mcp.Required()),
		mcp.WithNumber("top_k", mcp.Description("Top K results"), mcp.DefaultNumber(5)),
		mcp.WithString("language", mcp.Description("Language filter")),
		mcp.WithString("kind", mcp.Description("Symbol kind filter")),
		mcp.WithNumber("min_similarity", mcp.Description("Minimum similarity in [0,1]"), mcp.DefaultNumber(0)),
	)
}

func (srv *Server) handleSemanticSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.embed == nil {
		return mcp.NewToolResultError("no query embedder configured"), nil
	}
	topK := req.GetInt("top_k", 5)
	lang := model.Language(req.GetString("language", ""))
	kind := model.SymbolKind(req.GetString("kind", ""))
	minSim := minSimilarityArg(req)

	vecs, err := srv.embed.EmbedTexts(ctx, []string{q})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embed query failed: %v", err)), nil
	}
	if len(vecs) == 0 {
		return mcp.NewToolResultError("embedder returned no vector"), nil
	}

	hits, err := srv.engine.SemanticSearch(ctx, vecs[0], srv.opts.EmbedModel, topK, lang, kind, minSim)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(hits), nil
}

func minSimilarityArg(req mcp.CallToolRequest) float64 {
	switch v := req.GetArguments()["min_similarity"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
