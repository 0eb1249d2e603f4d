// Package appfx assembles every application module into one fx graph.
package appfx

import (
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/cmd/cmdsfx"
	"github.com/codeindex-dev/codeindex/internal/config/configfx"
	"github.com/codeindex-dev/codeindex/internal/embedder/embedderfx"
	"github.com/codeindex-dev/codeindex/internal/indexer/indexerfx"
	"github.com/codeindex-dev/codeindex/internal/mcp/mcpfx"
	"github.com/codeindex-dev/codeindex/internal/query/queryfx"
	"github.com/codeindex-dev/codeindex/internal/store/storefx"
	"github.com/codeindex-dev/codeindex/internal/summarizer/summarizerfx"
	"github.com/codeindex-dev/codeindex/internal/watch/watchfx"
)

// Module combines all application modules.
var Module = fx.Options(
	configfx.Module,
	storefx.Module,
	indexerfx.Module,
	queryfx.Module,
	embedderfx.Module,
	summarizerfx.Module,
	watchfx.Module,
	mcpfx.Module,
	cmdsfx.Module,
)

// NewAppWithConfig creates an Fx app with the given configuration values.
func NewAppWithConfig(dbPath, embedURL, rootDir string) *fx.App {
	return fx.New(
		Module,
		fx.Supply(
			fx.Annotate(rootDir, fx.ResultTags(`name:"rootDir"`)),
			fx.Annotate(dbPath, fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate(embedURL, fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate("", fx.ResultTags(`name:"summarizeURL"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"languages"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"include"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"exclude"`)),
		),
		fx.Invoke(func(lc fx.Lifecycle, mcpLifecycle *mcpfx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: mcpLifecycle.Start,
				OnStop:  mcpLifecycle.Stop,
			})
		}),
		fx.Invoke(func(lc fx.Lifecycle, watchLifecycle *watchfx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: watchLifecycle.Start,
				OnStop:  watchLifecycle.Stop,
			})
		}),
	)
}

// NewApp creates an Fx app with no configuration supplied; callers must
// fx.Supply the named config values before starting it.
func NewApp() *fx.App {
	return fx.New(Module)
}
