// Package storefx wires the sqlite-backed Store into the fx graph.
package storefx

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/store"
	storesqlite "github.com/codeindex-dev/codeindex/internal/store/sqlite"
)

// New opens the sqlite store at Config.DBPath.
func New(cfg *config.Config) (store.Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("storefx: database path must be specified")
	}
	return storesqlite.New(cfg.DBPath)
}

// Module provides the Store for the application.
var Module = fx.Module("store",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, st store.Store) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return st.Close() },
		})
	}),
)
