// Package watchfx wires the Watcher into the fx graph; its Lifecycle
// starts the watcher on Config.RootDir whenever the app starts, without
// checking that RootDir is set.
package watchfx

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/indexer"
	"github.com/codeindex-dev/codeindex/internal/store"
	"github.com/codeindex-dev/codeindex/internal/watch"
)

// Params are the dependencies a Watcher needs.
type Params struct {
	fx.In

	Config  *config.Config
	Indexer *indexer.Indexer
	Store   store.Store
	Log     *slog.Logger `optional:"true"`
}

// New builds a *watch.Watcher from Config.
func New(p Params) (*watch.Watcher, error) {
	return watch.New(watch.Options{
		RootDir:        p.Config.RootDir,
		Include:        p.Config.Include,
		Exclude:        p.Config.Exclude,
		Debounce:       time.Duration(p.Config.DebounceMs) * time.Millisecond,
		BatchWindow:    time.Duration(p.Config.BatchIntervalMinutes) * time.Minute,
		MinChangeLines: p.Config.MinChangeLines,
	}, p.Indexer, p.Store, p.Log)
}

// Lifecycle starts and stops the watcher alongside the fx app.
type Lifecycle struct {
	w *watch.Watcher
}

// NewLifecycle wraps a Watcher for fx.Hook registration.
func NewLifecycle(w *watch.Watcher) *Lifecycle { return &Lifecycle{w: w} }

// Start begins watching the configured root.
func (l *Lifecycle) Start(ctx context.Context) error { return l.w.Start() }

// Stop flushes pending work and releases the watch handle.
func (l *Lifecycle) Stop(ctx context.Context) error { return l.w.Stop() }

// Module provides the Watcher for the application.
var Module = fx.Module("watch",
	fx.Provide(New, NewLifecycle),
)
