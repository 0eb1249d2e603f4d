// Package queryfx wires the query Engine into the fx graph.
package queryfx

import (
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/query"
	"github.com/codeindex-dev/codeindex/internal/store"
)

const defaultChainCacheSize = 256

// New builds a *query.Engine over the store.
func New(st store.Store) *query.Engine {
	return query.New(st, defaultChainCacheSize)
}

// Module provides the query Engine for the application.
var Module = fx.Module("query",
	fx.Provide(New),
)
