package configfx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/internal/config"
)

func TestConfigModule(t *testing.T) {
	var cfg *config.Config
	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate("/tmp/project", fx.ResultTags(`name:"rootDir"`)),
			fx.Annotate("/tmp/test.db", fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"languages"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"include"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"exclude"`)),
			fx.Annotate("http://localhost:8000/embed", fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate("", fx.ResultTags(`name:"summarizeURL"`)),
		),
		fx.Populate(&cfg),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:8000/embed", cfg.EmbedURL)
}

func TestConfigDefaults(t *testing.T) {
	var cfg *config.Config
	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate("/tmp/project", fx.ResultTags(`name:"rootDir"`)),
			fx.Annotate("/tmp/test.db", fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"languages"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"include"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"exclude"`)),
			fx.Annotate("", fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate("", fx.ResultTags(`name:"summarizeURL"`)),
		),
		fx.Populate(&cfg),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, cfg)
	assert.Equal(t, []string{"**/*"}, cfg.Include) // Default value
	assert.Equal(t, 3, cfg.MaxNestedStructDepth)
	assert.Equal(t, 5, cfg.Concurrency)
}
