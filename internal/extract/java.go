package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// JavaExtractor instantiates the extraction framework for Java.
type JavaExtractor struct{}

func (JavaExtractor) ExtractTree(root *sitter.Node, source []byte) *Extraction {
	out := &Extraction{}
	declBytes := map[uint]bool{}
	walkJavaSymbols(root, source, "", false, &out.Symbols, declBytes)
	walkJavaRefs(root, source, declBytes, &out.Calls, &out.Refs)
	return out
}

func javaModifierText(n *sitter.Node, source []byte) string {
	for _, c := range Children(n) {
		if c.Kind() == "modifiers" {
			return c.Utf8Text(source)
		}
	}
	return ""
}

// walkJavaSymbols tracks inInterface because interface members carry no
// explicit "public" modifier in real Java source — it's implicit — and
// interface fields are implicitly "public static final" constants.
func walkJavaSymbols(n *sitter.Node, source []byte, scope string, inInterface bool, symbols *[]RawSymbol, declBytes map[uint]bool) {
	switch n.Kind() {
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			kind := model.KindClass
			isInterface := n.Kind() == "interface_declaration"
			if isInterface {
				kind = model.KindInterface
			}
			qn := QualifiedName(".", scope, name)
			mods := javaModifierText(n, source)
			*symbols = append(*symbols, RawSymbol{
				Kind:          kind,
				Name:          name,
				QualifiedName: qn,
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      containsPublic(mods) || inInterface,
			})
			if body := n.ChildByFieldName("body"); body != nil {
				walkJavaSymbols(body, source, qn, isInterface, symbols, declBytes)
			}
			return
		}
	case "method_declaration", "constructor_declaration":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			mods := javaModifierText(n, source)
			*symbols = append(*symbols, RawSymbol{
				Kind:          model.KindMethod,
				Name:          name,
				QualifiedName: QualifiedName(".", scope, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      containsPublic(mods) || inInterface,
			})
		}
	case "field_declaration", "constant_declaration":
		mods := javaModifierText(n, source)
		kind := model.KindField
		if inInterface {
			kind = model.KindConstant
		}
		for _, decl := range NamedChildren(n) {
			if decl.Kind() != "variable_declarator" {
				continue
			}
			id := decl.ChildByFieldName("name")
			if id == nil {
				continue
			}
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			*symbols = append(*symbols, RawSymbol{
				Kind:          kind,
				Name:          name,
				QualifiedName: QualifiedName(".", scope, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      containsPublic(mods) || inInterface,
			})
		}
	}
	for _, c := range Children(n) {
		walkJavaSymbols(c, source, scope, inInterface, symbols, declBytes)
	}
}

func containsPublic(mods string) bool {
	for _, w := range []string{"public"} {
		if len(mods) >= len(w) {
			for i := 0; i+len(w) <= len(mods); i++ {
				if mods[i:i+len(w)] == w {
					return true
				}
			}
		}
	}
	return false
}

func walkJavaRefs(n *sitter.Node, source []byte, declBytes map[uint]bool, calls *[]RawCall, refs *[]RawReference) {
	switch n.Kind() {
	case "method_invocation":
		id := n.ChildByFieldName("name")
		if id != nil {
			name := id.Utf8Text(source)
			*calls = append(*calls, RawCall{CalleeName: name, Site: Span(n)})
			*refs = append(*refs, RawReference{TargetName: name, Kind: model.RefCall, Site: Span(n)})
			declBytes[id.StartByte()] = true
		}
	case "identifier", "type_identifier":
		if !declBytes[n.StartByte()] {
			kind := model.RefRead
			if isJavaAssignmentTarget(n) {
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
		walkJavaRefs(c, source, declBytes, calls, refs)
	}
}

func isJavaAssignmentTarget(n *sitter.Node) bool {
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
