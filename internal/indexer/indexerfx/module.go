// Package indexerfx wires the Indexer into the fx graph.
package indexerfx

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/indexer"
	"github.com/codeindex-dev/codeindex/internal/langregistry"
	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/store"
)

// Params are the dependencies an Indexer needs.
type Params struct {
	fx.In

	Config   *config.Config
	Store    store.Store
	Registry *langregistry.Registry `optional:"true"`
	Log      *slog.Logger           `optional:"true"`
}

// New builds an *indexer.Indexer from Config.
func New(p Params) *indexer.Indexer {
	return indexer.New(indexer.Options{
		RootDir:              p.Config.RootDir,
		Include:              p.Config.Include,
		Exclude:              p.Config.Exclude,
		Languages:            languageSet(p.Config.Languages),
		MaxNestedStructDepth: p.Config.MaxNestedStructDepth,
	}, p.Store, p.Registry, p.Log)
}

func languageSet(tags []string) map[model.Language]bool {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[model.Language]bool, len(tags))
	for _, t := range tags {
		set[model.Language(t)] = true
	}
	return set
}

// Module provides the Indexer for the application.
var Module = fx.Module("indexer",
	fx.Provide(New),
)
