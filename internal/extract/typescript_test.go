package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/langregistry"
	"github.com/codeindex-dev/codeindex/internal/model"
)

func extractTS(t *testing.T, source string, tag model.Language) *Extraction {
	t.Helper()
	reg, err := langregistry.New(nil)
	require.NoError(t, err)
	src := []byte(source)
	tree, err := reg.Parse(src, tag)
	require.NoError(t, err)
	defer tree.Close()
	return TSExtractor{}.ExtractTree(tree.RootNode(), src)
}

const tsSample = `
export class Widget {
  name: string;

  describe(): string {
    return helper(this.name);
  }
}

function helper(s: string): string {
  return s;
}
`

func TestTSExtractorExportedClass(t *testing.T) {
	ext := extractTS(t, tsSample, model.LangTS)

	widget, ok := symbolNamed(ext.Symbols, "Widget")
	require.True(t, ok)
	require.Equal(t, model.KindClass, widget.Kind)
	require.True(t, widget.Exported)

	describe, ok := symbolNamed(ext.Symbols, "describe")
	require.True(t, ok)
	require.Equal(t, model.KindMethod, describe.Kind)
	require.Equal(t, "Widget.describe", describe.QualifiedName)
	require.False(t, describe.Exported, "a class being exported does not make its members exported")

	helperFn, ok := symbolNamed(ext.Symbols, "helper")
	require.True(t, ok)
	require.False(t, helperFn.Exported, "a top-level unexported function has no export_ ancestor")
}

func TestTSExtractorCalls(t *testing.T) {
	ext := extractTS(t, tsSample, model.LangTS)
	found := false
	for _, c := range ext.Calls {
		if c.CalleeName == "helper" {
			found = true
		}
	}
	require.True(t, found)
}
