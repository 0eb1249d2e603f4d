// Package summarizerfx wires the HTTP summarizer into the fx graph.
package summarizerfx

import (
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/summarizer"
)

// New builds a summarizer.Summarizer pointed at Config.SummarizeURL.
func New(cfg *config.Config) summarizer.Summarizer {
	return summarizer.New(summarizer.Options{
		URL:         cfg.SummarizeURL,
		Timeout:     cfg.HTTPTimeout,
		MaxRetries:  cfg.MaxRetries,
		Concurrency: cfg.Concurrency,
	})
}

// Module provides the Summarizer for the application.
var Module = fx.Module("summarizer",
	fx.Provide(New),
)
