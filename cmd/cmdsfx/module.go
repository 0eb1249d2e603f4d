// Package cmdsfx fronts the injected query/indexer/embedder/mcp
// collaborators with the small set of operations the CLI entry points need.
package cmdsfx

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/embedder"
	"github.com/codeindex-dev/codeindex/internal/indexer"
	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/query"
)

// CommandRunner provides methods to run different application commands.
type CommandRunner struct {
	config    *config.Config
	engine    *query.Engine
	indexer   *indexer.Indexer
	embed     embedder.Embedder
	mcpServer *server.MCPServer
}

// Params represents dependencies for the command runner.
type Params struct {
	fx.In

	Config    *config.Config
	Engine    *query.Engine     `optional:"true"`
	Indexer   *indexer.Indexer  `optional:"true"`
	Embedder  embedder.Embedder `optional:"true"`
	MCPServer *server.MCPServer `optional:"true"`
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(params Params) *CommandRunner {
	return &CommandRunner{
		config:    params.Config,
		engine:    params.Engine,
		indexer:   params.Indexer,
		embed:     params.Embedder,
		mcpServer: params.MCPServer,
	}
}

// RunIndex executes the index command, printing progress as it goes.
func (r *CommandRunner) RunIndex(ctx context.Context) error {
	if r.indexer == nil {
		return fmt.Errorf("indexer not available")
	}
	return r.indexer.IndexAll(ctx, func(p model.IndexProgress) {
		fmt.Printf("\r[%3.0f%%] %s %-40s", p.Percent*100, p.Stage, p.CurrentFile)
	})
}

// RunSearch executes a semantic search over the indexed corpus.
func (r *CommandRunner) RunSearch(ctx context.Context, q string, topK int) error {
	if r.engine == nil || r.embed == nil {
		return fmt.Errorf("search not available")
	}
	vecs, err := r.embed.EmbedTexts(ctx, []string{q})
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return fmt.Errorf("embedder returned no vectors")
	}
	hits, err := r.engine.SemanticSearch(ctx, vecs[0], r.embed.ModelName(), topK, "", "", 0)
	if err != nil {
		return err
	}
	for i, hit := range hits {
		fmt.Printf("Result %d (score: %.4f): %s\n", i+1, hit.Similarity, hit.Symbol.QualifiedName)
	}
	return nil
}

// RunMCPServer executes the MCP server over the requested transport.
func (r *CommandRunner) RunMCPServer(transport, address string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}

	switch transport {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http":
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		httpSrv := server.NewStreamableHTTPServer(r.mcpServer)
		return httpSrv.Start(addr)
	case "sse":
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(addr)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

// Module provides the command runner.
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
