// Package extract walks a parsed syntax tree and emits language-independent
// symbol, call, and reference records. The framework in this file is
// language-neutral; internal/extract/{golang,typescript,python,rust,java,html}.go
// instantiate it per grammar.
package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// maxSignatureBytes is the truncation limit for a symbol's signature snippet.
const maxSignatureBytes = 200

// RawSymbol is a symbol emitted by an extractor before the indexer assigns
// it a File and a database ID.
type RawSymbol struct {
	Kind          model.SymbolKind
	Name          string
	QualifiedName string
	Span          model.Span
	Signature     string
	Exported      bool
}

// RawCall is a call site emitted by an extractor, resolved against the
// store by the indexer (caller by containing span, callee by name).
type RawCall struct {
	CalleeName string
	Site       model.Span
}

// RawReference is a non-call name use emitted by an extractor, resolved
// against the store by name by the indexer.
type RawReference struct {
	TargetName string
	Kind       model.ReferenceKind
	Site       model.Span
}

// Extraction is the three-part record an Extractor produces for one file.
type Extraction struct {
	Symbols []RawSymbol
	Calls   []RawCall
	Refs    []RawReference
}

// Extractor instantiates the extraction framework for one language tag. It
// consumes an already-parsed tree (the indexer owns parsing via
// langregistry) plus the source bytes and never returns an error: a
// malformed subtree simply contributes no symbols for that subtree, so the
// framework always returns a (possibly partial) Extraction.
type Extractor interface {
	ExtractTree(root *sitter.Node, source []byte) *Extraction
}

// Span translates a tree-sitter node's byte range into a 1-based-line,
// 0-based-column model.Span.
func Span(n *sitter.Node) model.Span {
	start := n.StartPosition()
	end := n.EndPosition()
	return model.Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

// Signature returns up to the first three lines of a node's text, trimmed
// to at most 200 bytes.
func Signature(source []byte, n *sitter.Node) string {
	text := n.Utf8Text(source)
	lines := 0
	end := len(text)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines++
			if lines == 3 {
				end = i
				break
			}
		}
	}
	sig := text[:end]
	if len(sig) > maxSignatureBytes {
		sig = sig[:maxSignatureBytes]
	}
	return sig
}

// QualifiedName joins scope segments with sep, skipping empty segments.
func QualifiedName(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out == "" {
			out = p
		} else {
			out = out + sep + p
		}
	}
	return out
}

// NamedChildren returns n's named children as a slice, a small convenience
// over the index-based tree-sitter iteration used throughout the
// per-language extractors.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	count := n.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// Children returns n's children (including anonymous ones) as a slice.
func Children(n *sitter.Node) []*sitter.Node {
	count := n.ChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}
