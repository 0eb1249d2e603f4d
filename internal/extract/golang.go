package extract

import (
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// goDeclParents lists the Go declaration node kinds whose "name" field (or
// equivalent) identifies a symbol being defined rather than referenced.
var goDeclParents = map[string]bool{
	"function_declaration": true,
	"method_declaration":   true,
	"type_spec":             true,
	"var_spec":              true,
	"const_spec":            true,
	"field_declaration":     true,
	"parameter_declaration": true,
	"short_var_declaration":  true,
	"labeled_statement":      true,
}

// GoExtractor instantiates the extraction framework for Go.
type GoExtractor struct {
	// MaxNestedStructDepth bounds recursion into anonymous struct fields.
	// Zero means the default depth of 3.
	MaxNestedStructDepth int
}

func (g GoExtractor) maxDepth() int {
	if g.MaxNestedStructDepth <= 0 {
		return 3
	}
	return g.MaxNestedStructDepth
}

func isExportedGo(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// ExtractTree runs the two walk passes against an already-parsed tree.
func (g GoExtractor) ExtractTree(root *sitter.Node, source []byte) *Extraction {
	out := &Extraction{}
	declBytes := map[uint]bool{}
	pkgName := ""
	for _, c := range Children(root) {
		if c.Kind() == "package_clause" {
			if id := c.ChildByFieldName("name"); id != nil {
				pkgName = id.Utf8Text(source)
			}
		}
	}
	g.walkGoSymbols(root, source, pkgName, &out.Symbols, declBytes)
	g.walkGoRefs(root, source, declBytes, &out.Calls, &out.Refs)
	return out
}

func (g GoExtractor) walkGoSymbols(n *sitter.Node, source []byte, pkgName string, symbols *[]RawSymbol, declBytes map[uint]bool) {
	switch n.Kind() {
	case "function_declaration":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name := nameNode.Utf8Text(source)
			declBytes[nameNode.StartByte()] = true
			*symbols = append(*symbols, RawSymbol{
				Kind:          model.KindFunction,
				Name:          name,
				QualifiedName: QualifiedName(".", pkgName, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedGo(name),
			})
		}
	case "method_declaration":
		nameNode := n.ChildByFieldName("name")
		recv := n.ChildByFieldName("receiver")
		if nameNode != nil {
			name := nameNode.Utf8Text(source)
			declBytes[nameNode.StartByte()] = true
			recvType := ""
			if recv != nil {
				recvType = goReceiverType(recv, source)
			}
			*symbols = append(*symbols, RawSymbol{
				Kind:          model.KindMethod,
				Name:          name,
				QualifiedName: QualifiedName(".", pkgName, recvType, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedGo(name),
			})
		}
	case "type_declaration":
		for _, spec := range NamedChildren(n) {
			if spec.Kind() != "type_spec" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			typeNode := spec.ChildByFieldName("type")
			if nameNode == nil {
				continue
			}
			name := nameNode.Utf8Text(source)
			declBytes[nameNode.StartByte()] = true
			qn := QualifiedName(".", pkgName, name)
			kind := model.KindType
			if typeNode != nil {
				switch typeNode.Kind() {
				case "struct_type":
					kind = model.KindStruct
				case "interface_type":
					kind = model.KindInterface
				}
			}
			*symbols = append(*symbols, RawSymbol{
				Kind:          kind,
				Name:          name,
				QualifiedName: qn,
				Span:          Span(spec),
				Signature:     Signature(source, spec),
				Exported:      isExportedGo(name),
			})
			if typeNode != nil && typeNode.Kind() == "struct_type" {
				g.walkStructFields(typeNode, source, qn, 0, symbols, declBytes)
			}
			if typeNode != nil && typeNode.Kind() == "interface_type" {
				g.walkInterfaceMethods(typeNode, source, qn, symbols, declBytes)
			}
		}
	case "var_declaration", "const_declaration":
		kind := model.KindVariable
		specKind := "var_spec"
		if n.Kind() == "const_declaration" {
			kind = model.KindConstant
			specKind = "const_spec"
		}
		specs := NamedChildren(n)
		for _, c := range specs {
			if c.Kind() == "var_spec_list" {
				specs = append(specs, NamedChildren(c)...)
			}
		}
		for _, spec := range specs {
			if spec.Kind() != specKind {
				continue
			}
			for _, c := range NamedChildren(spec) {
				if c.Kind() == "identifier" {
					declBytes[c.StartByte()] = true
					name := c.Utf8Text(source)
					*symbols = append(*symbols, RawSymbol{
						Kind:          kind,
						Name:          name,
						QualifiedName: QualifiedName(".", pkgName, name),
						Span:          Span(spec),
						Signature:     Signature(source, spec),
						Exported:      isExportedGo(name),
					})
				}
			}
		}
	}
	for _, c := range Children(n) {
		g.walkGoSymbols(c, source, pkgName, symbols, declBytes)
	}
}

func (g GoExtractor) walkStructFields(structType *sitter.Node, source []byte, scope string, depth int, symbols *[]RawSymbol, declBytes map[uint]bool) {
	fieldList := structType.ChildByFieldName("body")
	if fieldList == nil {
		for _, c := range NamedChildren(structType) {
			if c.Kind() == "field_declaration_list" {
				fieldList = c
				break
			}
		}
	}
	if fieldList == nil {
		return
	}
	for _, field := range NamedChildren(fieldList) {
		if field.Kind() != "field_declaration" {
			continue
		}
		nameNode := field.ChildByFieldName("name")
		typeNode := field.ChildByFieldName("type")
		var name string
		if nameNode != nil {
			name = nameNode.Utf8Text(source)
			declBytes[nameNode.StartByte()] = true
		} else if typeNode != nil {
			// Embedded (unnamed) field: use the embedded type's text as the name.
			name = typeNode.Utf8Text(source)
		}
		if name == "" {
			continue
		}
		*symbols = append(*symbols, RawSymbol{
			Kind:          model.KindField,
			Name:          name,
			QualifiedName: QualifiedName(".", scope, name),
			Span:          Span(field),
			Signature:     Signature(source, field),
			Exported:      isExportedGo(name),
		})
		if typeNode != nil && typeNode.Kind() == "struct_type" && depth < g.maxDepth() {
			g.walkStructFields(typeNode, source, QualifiedName(".", scope, name), depth+1, symbols, declBytes)
		}
	}
}

func (g GoExtractor) walkInterfaceMethods(ifaceType *sitter.Node, source []byte, scope string, symbols *[]RawSymbol, declBytes map[uint]bool) {
	for _, c := range NamedChildren(ifaceType) {
		if c.Kind() != "method_elem" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(source)
		declBytes[nameNode.StartByte()] = true
		*symbols = append(*symbols, RawSymbol{
			Kind:          model.KindMethod,
			Name:          name,
			QualifiedName: QualifiedName(".", scope, name),
			Span:          Span(c),
			Signature:     Signature(source, c),
			Exported:      isExportedGo(name),
		})
	}
}

func (g GoExtractor) walkGoRefs(n *sitter.Node, source []byte, declBytes map[uint]bool, calls *[]RawCall, refs *[]RawReference) {
	switch n.Kind() {
	case "call_expression":
		fn := n.ChildByFieldName("function")
		if fn != nil {
			calleeID, calleeName := goCalleeIdentifier(fn, source)
			if calleeName != "" {
				*calls = append(*calls, RawCall{CalleeName: calleeName, Site: Span(n)})
				*refs = append(*refs, RawReference{TargetName: calleeName, Kind: model.RefCall, Site: Span(n)})
				if calleeID != nil {
					declBytes[calleeID.StartByte()] = true
				}
			}
		}
	case "identifier", "field_identifier", "type_identifier":
		if !declBytes[n.StartByte()] {
			kind := model.RefRead
			if isGoAssignmentTarget(n) {
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
		g.walkGoRefs(c, source, declBytes, calls, refs)
	}
}

func emitGoVarNames(namesNode *sitter.Node, source []byte, pkgName string, kind model.SymbolKind, spec *sitter.Node, symbols *[]RawSymbol, declBytes map[uint]bool) {
	if namesNode.Kind() == "identifier" {
		declBytes[namesNode.StartByte()] = true
		name := namesNode.Utf8Text(source)
		*symbols = append(*symbols, RawSymbol{
			Kind:          kind,
			Name:          name,
			QualifiedName: QualifiedName(".", pkgName, name),
			Span:          Span(spec),
			Signature:     Signature(source, spec),
			Exported:      isExportedGo(name),
		})
		return
	}
	for _, c := range NamedChildren(namesNode) {
		emitGoVarNames(c, source, pkgName, kind, spec, symbols, declBytes)
	}
}

// goReceiverType extracts and unwraps the receiver's inner type name,
// stripping a pointer_type wrapper.
func goReceiverType(receiver *sitter.Node, source []byte) string {
	for _, param := range NamedChildren(receiver) {
		if param.Kind() != "parameter_declaration" {
			continue
		}
		t := param.ChildByFieldName("type")
		if t == nil {
			continue
		}
		if t.Kind() == "pointer_type" {
			if inner := t.NamedChild(0); inner != nil {
				return inner.Utf8Text(source)
			}
		}
		return t.Utf8Text(source)
	}
	return ""
}

// goCalleeIdentifier returns the rightmost identifier node of a call's
// function subtree plus its text: a selector_expression's field, or a
// plain identifier.
func goCalleeIdentifier(fn *sitter.Node, source []byte) (*sitter.Node, string) {
	switch fn.Kind() {
	case "selector_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			return field, field.Utf8Text(source)
		}
	case "identifier":
		return fn, fn.Utf8Text(source)
	case "parenthesized_expression":
		if inner := fn.NamedChild(0); inner != nil {
			return goCalleeIdentifier(inner, source)
		}
	}
	return nil, strings.TrimSpace(fn.Utf8Text(source))
}

func isGoDeclaredNamePosition(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	if !goDeclParents[parent.Kind()] {
		return false
	}
	nameField := parent.ChildByFieldName("name")
	return nameField != nil && nameField.StartByte() == n.StartByte()
}

func isGoAssignmentTarget(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "assignment_statement":
		left := parent.ChildByFieldName("left")
		return left != nil && nodeContains(left, n)
	case "short_var_declaration":
		left := parent.ChildByFieldName("left")
		return left != nil && nodeContains(left, n)
	}
	return false
}

func nodeContains(ancestor, n *sitter.Node) bool {
	return n.StartByte() >= ancestor.StartByte() && n.EndByte() <= ancestor.EndByte()
}
