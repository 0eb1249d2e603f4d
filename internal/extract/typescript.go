package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// TSExtractor instantiates the extraction framework for TypeScript,
// TSX, JavaScript, and JSX — they share one grammar family and one
// exported-flag rule (ancestor is an export statement).
type TSExtractor struct{}

func (TSExtractor) ExtractTree(root *sitter.Node, source []byte) *Extraction {
	out := &Extraction{}
	declBytes := map[uint]bool{}
	walkTSSymbols(root, source, "", &out.Symbols, declBytes)
	walkTSRefs(root, source, declBytes, &out.Calls, &out.Refs)
	return out
}

// isExportedTS checks only the symbol's own declaring form: it climbs
// through the statement wrapping a declarator (variable_declarator ->
// variable_declaration) but stops at any class/interface/function body,
// since a class being exported does not make its members exported.
func isExportedTS(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "class_body", "interface_body", "statement_block":
			return false
		}
		if strings.HasPrefix(p.Kind(), "export_") {
			return true
		}
	}
	return false
}

func tsIdentifierChild(n *sitter.Node, source []byte) *sitter.Node {
	if c := n.ChildByFieldName("name"); c != nil {
		return c
	}
	for _, c := range NamedChildren(n) {
		switch c.Kind() {
		case "identifier", "property_identifier", "type_identifier":
			return c
		}
	}
	return nil
}

func walkTSSymbols(n *sitter.Node, source []byte, scope string, symbols *[]RawSymbol, declBytes map[uint]bool) {
	switch n.Kind() {
	case "function_declaration":
		if id := tsIdentifierChild(n, source); id != nil {
			emitTS(symbols, declBytes, id, source, model.KindFunction, scope, n)
		}
	case "class_declaration":
		if id := tsIdentifierChild(n, source); id != nil {
			name := id.Utf8Text(source)
			emitTS(symbols, declBytes, id, source, model.KindClass, scope, n)
			body := n.ChildByFieldName("body")
			if body != nil {
				walkTSSymbols(body, source, QualifiedName(".", scope, name), symbols, declBytes)
			}
			return
		}
	case "interface_declaration":
		if id := tsIdentifierChild(n, source); id != nil {
			name := id.Utf8Text(source)
			emitTS(symbols, declBytes, id, source, model.KindInterface, scope, n)
			body := n.ChildByFieldName("body")
			if body != nil {
				walkTSSymbols(body, source, QualifiedName(".", scope, name), symbols, declBytes)
			}
			return
		}
	case "type_alias_declaration":
		if id := tsIdentifierChild(n, source); id != nil {
			emitTS(symbols, declBytes, id, source, model.KindType, scope, n)
		}
	case "method_definition", "method_signature":
		if id := tsIdentifierChild(n, source); id != nil {
			emitTS(symbols, declBytes, id, source, model.KindMethod, scope, n)
		}
	case "public_field_definition", "field_definition", "property_signature":
		if id := tsIdentifierChild(n, source); id != nil {
			emitTS(symbols, declBytes, id, source, model.KindProperty, scope, n)
		}
	case "variable_declarator":
		if id := n.ChildByFieldName("name"); id != nil && id.Kind() == "identifier" {
			emitTS(symbols, declBytes, id, source, model.KindVariable, scope, n)
		}
	}
	for _, c := range Children(n) {
		walkTSSymbols(c, source, scope, symbols, declBytes)
	}
}

func emitTS(symbols *[]RawSymbol, declBytes map[uint]bool, id *sitter.Node, source []byte, kind model.SymbolKind, scope string, span *sitter.Node) {
	name := id.Utf8Text(source)
	declBytes[id.StartByte()] = true
	*symbols = append(*symbols, RawSymbol{
		Kind:          kind,
		Name:          name,
		QualifiedName: QualifiedName(".", scope, name),
		Span:          Span(span),
		Signature:     Signature(source, span),
		Exported:      isExportedTS(span),
	})
}

func walkTSRefs(n *sitter.Node, source []byte, declBytes map[uint]bool, calls *[]RawCall, refs *[]RawReference) {
	switch n.Kind() {
	case "call_expression":
		fn := n.ChildByFieldName("function")
		if fn != nil {
			id, name := tsCalleeIdentifier(fn, source)
			if name != "" {
				*calls = append(*calls, RawCall{CalleeName: name, Site: Span(n)})
				*refs = append(*refs, RawReference{TargetName: name, Kind: model.RefCall, Site: Span(n)})
				if id != nil {
					declBytes[id.StartByte()] = true
				}
			}
		}
	case "identifier", "property_identifier", "type_identifier":
		if !declBytes[n.StartByte()] {
			kind := model.RefRead
			if isTSAssignmentTarget(n) {
				kind = model.RefWrite
			}
			*refs = append(*refs, RawReference{
				TargetName: n.Utf8Text(source),
				Kind:       kind,
				Site:       Span(n),
			})
		}
	}
	for _, c := range Children(n) {
		walkTSRefs(c, source, declBytes, calls, refs)
	}
}

func tsCalleeIdentifier(fn *sitter.Node, source []byte) (*sitter.Node, string) {
	switch fn.Kind() {
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return prop, prop.Utf8Text(source)
		}
	case "identifier":
		return fn, fn.Utf8Text(source)
	case "parenthesized_expression":
		if inner := fn.NamedChild(0); inner != nil {
			return tsCalleeIdentifier(inner, source)
		}
	}
	return nil, strings.TrimSpace(fn.Utf8Text(source))
}

func isTSAssignmentTarget(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	if parent.Kind() == "assignment_expression" {
		left := parent.ChildByFieldName("left")
		return left != nil && nodeContains(left, n)
	}
	return false
}
