package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/langregistry"
	"github.com/codeindex-dev/codeindex/internal/model"
)

func extractHTML(t *testing.T, source string) *Extraction {
	t.Helper()
	reg, err := langregistry.New(nil)
	require.NoError(t, err)
	src := []byte(source)
	tree, err := reg.Parse(src, model.LangHTML)
	require.NoError(t, err)
	defer tree.Close()
	return HTMLExtractor{}.ExtractTree(tree.RootNode(), src)
}

const htmlSample = `
<html>
<body>
<div id="main" class="widget card"></div>
<my-widget></my-widget>
<script>console.log("hi")</script>
</body>
</html>
`

func TestHTMLExtractorIDAndClassTokens(t *testing.T) {
	ext := extractHTML(t, htmlSample)

	id, ok := symbolNamed(ext.Symbols, "main")
	require.True(t, ok)
	require.Equal(t, "#main", id.QualifiedName)

	widgetClass, ok := symbolNamed(ext.Symbols, "widget")
	require.True(t, ok)
	require.Equal(t, ".widget", widgetClass.QualifiedName)

	cardClass, ok := symbolNamed(ext.Symbols, "card")
	require.True(t, ok)
	require.Equal(t, ".card", cardClass.QualifiedName)
}

func TestHTMLExtractorCustomElementAndScript(t *testing.T) {
	ext := extractHTML(t, htmlSample)

	custom, ok := symbolNamed(ext.Symbols, "my-widget")
	require.True(t, ok)
	require.Equal(t, model.KindClass, custom.Kind)

	script, ok := symbolNamed(ext.Symbols, "script")
	require.True(t, ok)
	require.Equal(t, model.KindModule, script.Kind)
}
