// Package embedderfx wires the HTTP embedder into the fx graph.
package embedderfx

import (
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/embedder"
)

// New builds an embedder.Embedder pointed at Config.EmbedURL.
func New(cfg *config.Config) embedder.Embedder {
	model := cfg.EmbedModel
	if model == "" {
		model = "default"
	}
	return embedder.New(embedder.Options{
		URL:         cfg.EmbedURL,
		Timeout:     cfg.HTTPTimeout,
		MaxRetries:  cfg.MaxRetries,
		Concurrency: cfg.Concurrency,
	}, model)
}

// Module provides the query-time Embedder for the application.
var Module = fx.Module("embedder",
	fx.Provide(New),
)
