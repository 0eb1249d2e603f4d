// Package mcpfx wires the MCP server into the fx graph.
package mcpfx

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/embedder"
	"github.com/codeindex-dev/codeindex/internal/indexer"
	appmcp "github.com/codeindex-dev/codeindex/internal/mcp"
	"github.com/codeindex-dev/codeindex/internal/query"
)

// Params represents dependencies for the MCP server.
type Params struct {
	fx.In

	Engine   *query.Engine
	Indexer  *indexer.Indexer
	Embedder embedder.Embedder `optional:"true"`
	Config   *config.Config
	Log      *slog.Logger `optional:"true"`
}

// NewMCPServer creates a new MCP server instance.
func NewMCPServer(params Params) *server.MCPServer {
	return appmcp.New(appmcp.Options{EmbedModel: params.Config.EmbedModel}, params.Engine, params.Indexer, params.Embedder, params.Log)
}

// Lifecycle manages the MCP server's pre-index-on-startup behavior.
type Lifecycle struct {
	idx    *indexer.Indexer
	config *config.Config
}

// NewLifecycle creates a new MCP lifecycle manager.
func NewLifecycle(idx *indexer.Indexer, config *config.Config) *Lifecycle {
	return &Lifecycle{idx: idx, config: config}
}

// Start pre-indexes the configured root, if any.
func (m *Lifecycle) Start(ctx context.Context) error {
	if m.config.RootDir == "" {
		return nil
	}
	return m.idx.IndexAll(ctx, nil)
}

// Stop handles graceful shutdown; the MCP server's own lifecycle is
// otherwise managed by the framework.
func (m *Lifecycle) Stop(ctx context.Context) error {
	return nil
}

// Module provides MCP server components.
var Module = fx.Module("mcp",
	fx.Provide(
		NewMCPServer,
		NewLifecycle,
	),
)
