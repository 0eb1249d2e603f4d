package appfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/codeindex-dev/codeindex/cmd/cmdsfx"
)

func TestAppModule(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	var runner *cmdsfx.CommandRunner

	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate(tmpDir, fx.ResultTags(`name:"rootDir"`)),
			fx.Annotate(dbPath, fx.ResultTags(`name:"dbPath"`)),
			fx.Annotate("http://localhost:8000/embed", fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate("", fx.ResultTags(`name:"summarizeURL"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"languages"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"include"`)),
			fx.Annotate([]string(nil), fx.ResultTags(`name:"exclude"`)),
		),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
		_ = os.Remove(dbPath)
	}()

	assert.NotNil(t, runner)
}

func TestNewAppWithConfig(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	app := NewAppWithConfig(dbPath, "http://localhost:8000/embed", tmpDir)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
		_ = os.Remove(dbPath)
	}()
}
