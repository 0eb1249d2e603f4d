// Package configfx wires internal/config.Config into the fx graph.
package configfx

import (
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
)

// Params are the named values the CLI layer supplies into the graph.
type Params struct {
	fx.In

	RootDir string `name:"rootDir"`
	DBPath  string `name:"dbPath"`

	Languages []string `name:"languages" optional:"true"`
	Include   []string `name:"include"   optional:"true"`
	Exclude   []string `name:"exclude"   optional:"true"`

	EmbedURL     string `name:"embedURL"     optional:"true"`
	SummarizeURL string `name:"summarizeURL" optional:"true"`
}

// New builds a *config.Config from the supplied named values, filling
// every ambient field left at its zero value with its default.
func New(p Params) *config.Config {
	c := config.ApplyDefaults(config.Config{
		RootDir:      p.RootDir,
		DBPath:       p.DBPath,
		Languages:    p.Languages,
		Include:      p.Include,
		Exclude:      p.Exclude,
		EmbedURL:     p.EmbedURL,
		SummarizeURL: p.SummarizeURL,
	})
	return &c
}

// Module provides *config.Config for the application.
var Module = fx.Module("config",
	fx.Provide(New),
)
