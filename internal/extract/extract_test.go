package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/langregistry"
	"github.com/codeindex-dev/codeindex/internal/model"
)

func symbolByQualifiedName(syms []RawSymbol, qn string) (RawSymbol, bool) {
	for _, s := range syms {
		if s.QualifiedName == qn {
			return s, true
		}
	}
	return RawSymbol{}, false
}

func TestQualifiedName(t *testing.T) {
	require.Equal(t, "", QualifiedName("."))
	require.Equal(t, "pkg.Foo", QualifiedName(".", "pkg", "Foo"))
	require.Equal(t, "Foo", QualifiedName(".", "", "Foo"))
}

func TestSignatureTruncatesToThreeLines(t *testing.T) {
	src := []byte("package main\n\nfunc F() {\n\tx := 1\n\t_ = x\n}\n")
	reg, err := langregistry.New(nil)
	require.NoError(t, err)
	tree, err := reg.Parse(src, model.LangGo)
	require.NoError(t, err)
	defer tree.Close()
	sig := Signature(src, tree.RootNode())
	require.Contains(t, sig, "package main")
	require.NotContains(t, sig, "_ = x")
}
