package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// PyExtractor instantiates the extraction framework for Python.
type PyExtractor struct{}

func (PyExtractor) ExtractTree(root *sitter.Node, source []byte) *Extraction {
	out := &Extraction{}
	declBytes := map[uint]bool{}
	walkPySymbols(root, source, "", &out.Symbols, declBytes)
	walkPyRefs(root, source, declBytes, &out.Calls, &out.Refs)
	return out
}

// isExportedPy implements the short-name-not-underscore-prefixed rule,
// with dunder names (e.g. __init__) kept exported despite the prefix.
func isExportedPy(name string) bool {
	if len(name) == 0 {
		return false
	}
	if len(name) >= 4 && name[:2] == "__" && name[len(name)-2:] == "__" {
		return true
	}
	return name[0] != '_'
}

func walkPySymbols(n *sitter.Node, source []byte, scope string, symbols *[]RawSymbol, declBytes map[uint]bool) {
	switch n.Kind() {
	case "function_definition":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			kind := model.KindFunction
			if scope != "" {
				kind = model.KindMethod
				if pyHasDecorator(n, source, "property") {
					kind = model.KindProperty
				}
			}
			*symbols = append(*symbols, RawSymbol{
				Kind:          kind,
				Name:          name,
				QualifiedName: QualifiedName(".", scope, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedPy(name),
			})
			// Python functions/methods nest, but we don't recurse into the
			// body for further symbol scoping beyond one level of class.
		}
	case "class_definition":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			qn := QualifiedName(".", scope, name)
			*symbols = append(*symbols, RawSymbol{
				Kind:          model.KindClass,
				Name:          name,
				QualifiedName: qn,
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedPy(name),
			})
			if body := n.ChildByFieldName("body"); body != nil {
				walkPySymbols(body, source, qn, symbols, declBytes)
			}
			return
		}
	case "assignment":
		if left := n.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
			name := left.Utf8Text(source)
			declBytes[left.StartByte()] = true
			kind := model.KindVariable
			if scope == "" {
				if isPyConstantName(name) {
					kind = model.KindConstant
				}
			} else {
				kind = model.KindProperty
			}
			*symbols = append(*symbols, RawSymbol{
				Kind:          kind,
				Name:          name,
				QualifiedName: QualifiedName(".", scope, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedPy(name),
			})
		}
	}
	for _, c := range Children(n) {
		walkPySymbols(c, source, scope, symbols, declBytes)
	}
}

// pyHasDecorator reports whether a decorated_definition wrapping n carries
// a decorator whose name (bare, attribute, or call form) equals want.
func pyHasDecorator(n *sitter.Node, source []byte, want string) bool {
	parent := n.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return false
	}
	for _, c := range NamedChildren(parent) {
		if c.Kind() != "decorator" {
			continue
		}
		if expr := c.NamedChild(0); expr != nil && pyDecoratorName(expr, source) == want {
			return true
		}
	}
	return false
}

func pyDecoratorName(n *sitter.Node, source []byte) string {
	switch n.Kind() {
	case "identifier":
		return n.Utf8Text(source)
	case "attribute":
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			return attr.Utf8Text(source)
		}
	case "call":
		if fn := n.ChildByFieldName("function"); fn != nil {
			return pyDecoratorName(fn, source)
		}
	}
	return ""
}

// isPyConstantName matches module-level names that are all-uppercase
// (digits and underscores allowed) with at least one letter.
func isPyConstantName(name string) bool {
	hasUpper := false
	for _, r := range name {
		switch {
		case r == '_' || (r >= '0' && r <= '9'):
			continue
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		default:
			return false
		}
	}
	return hasUpper
}

func walkPyRefs(n *sitter.Node, source []byte, declBytes map[uint]bool, calls *[]RawCall, refs *[]RawReference) {
	switch n.Kind() {
	case "call":
		fn := n.ChildByFieldName("function")
		if fn != nil {
			id, name := pyCalleeIdentifier(fn, source)
			if name != "" {
				*calls = append(*calls, RawCall{CalleeName: name, Site: Span(n)})
				*refs = append(*refs, RawReference{TargetName: name, Kind: model.RefCall, Site: Span(n)})
				if id != nil {
					declBytes[id.StartByte()] = true
				}
			}
		}
	case "identifier":
		if !declBytes[n.StartByte()] {
			kind := model.RefRead
			if isPyAssignmentTarget(n) {
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
		walkPyRefs(c, source, declBytes, calls, refs)
	}
}

func pyCalleeIdentifier(fn *sitter.Node, source []byte) (*sitter.Node, string) {
	switch fn.Kind() {
	case "attribute":
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			return attr, attr.Utf8Text(source)
		}
	case "identifier":
		return fn, fn.Utf8Text(source)
	}
	return nil, ""
}

func isPyAssignmentTarget(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "assignment", "augmented_assignment":
		left := parent.ChildByFieldName("left")
		return left != nil && nodeContains(left, n)
	}
	return false
}
