package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// RustExtractor instantiates the extraction framework for Rust.
type RustExtractor struct{}

func (RustExtractor) ExtractTree(root *sitter.Node, source []byte) *Extraction {
	out := &Extraction{}
	declBytes := map[uint]bool{}
	walkRustSymbols(root, source, "", &out.Symbols, declBytes)
	walkRustRefs(root, source, declBytes, &out.Calls, &out.Refs)
	return out
}

func isExportedRust(n *sitter.Node) bool {
	for _, c := range Children(n) {
		if c.Kind() == "visibility_modifier" {
			return true
		}
	}
	return false
}

func walkRustSymbols(n *sitter.Node, source []byte, scope string, symbols *[]RawSymbol, declBytes map[uint]bool) {
	switch n.Kind() {
	case "function_item", "function_signature_item":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			kind := model.KindFunction
			if scope != "" {
				kind = model.KindMethod
			}
			*symbols = append(*symbols, RawSymbol{
				Kind:          kind,
				Name:          name,
				QualifiedName: QualifiedName("::", scope, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedRust(n),
			})
		}
	case "struct_item":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			qn := QualifiedName("::", scope, name)
			*symbols = append(*symbols, RawSymbol{
				Kind:          model.KindStruct,
				Name:          name,
				QualifiedName: qn,
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedRust(n),
			})
			walkRustFields(n, source, qn, symbols, declBytes)
		}
	case "enum_item":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			*symbols = append(*symbols, RawSymbol{
				Kind:          model.KindType,
				Name:          name,
				QualifiedName: QualifiedName("::", scope, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedRust(n),
			})
		}
	case "trait_item":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			qn := QualifiedName("::", scope, name)
			*symbols = append(*symbols, RawSymbol{
				Kind:          model.KindInterface,
				Name:          name,
				QualifiedName: qn,
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedRust(n),
			})
			if body := n.ChildByFieldName("body"); body != nil {
				walkRustSymbols(body, source, qn, symbols, declBytes)
			}
			return
		}
	case "impl_item":
		typeNode := n.ChildByFieldName("type")
		scope2 := scope
		if typeNode != nil {
			scope2 = QualifiedName("::", scope, typeNode.Utf8Text(source))
		}
		if body := n.ChildByFieldName("body"); body != nil {
			walkRustSymbols(body, source, scope2, symbols, declBytes)
		}
		return
	case "const_item", "static_item":
		if id := n.ChildByFieldName("name"); id != nil {
			name := id.Utf8Text(source)
			declBytes[id.StartByte()] = true
			kind := model.KindConstant
			*symbols = append(*symbols, RawSymbol{
				Kind:          kind,
				Name:          name,
				QualifiedName: QualifiedName("::", scope, name),
				Span:          Span(n),
				Signature:     Signature(source, n),
				Exported:      isExportedRust(n),
			})
		}
	}
	for _, c := range Children(n) {
		walkRustSymbols(c, source, scope, symbols, declBytes)
	}
}

func walkRustFields(structItem *sitter.Node, source []byte, scope string, symbols *[]RawSymbol, declBytes map[uint]bool) {
	var fieldList *sitter.Node
	for _, c := range NamedChildren(structItem) {
		if c.Kind() == "field_declaration_list" {
			fieldList = c
			break
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
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(source)
		declBytes[nameNode.StartByte()] = true
		*symbols = append(*symbols, RawSymbol{
			Kind:          model.KindField,
			Name:          name,
			QualifiedName: QualifiedName("::", scope, name),
			Span:          Span(field),
			Signature:     Signature(source, field),
			Exported:      isExportedRust(field),
		})
	}
}

func walkRustRefs(n *sitter.Node, source []byte, declBytes map[uint]bool, calls *[]RawCall, refs *[]RawReference) {
	switch n.Kind() {
	case "call_expression":
		fn := n.ChildByFieldName("function")
		if fn != nil {
			id, name := rustCalleeIdentifier(fn, source)
			if name != "" {
				*calls = append(*calls, RawCall{CalleeName: name, Site: Span(n)})
				*refs = append(*refs, RawReference{TargetName: name, Kind: model.RefCall, Site: Span(n)})
				if id != nil {
					declBytes[id.StartByte()] = true
				}
			}
		}
	case "identifier", "field_identifier", "type_identifier":
		if !declBytes[n.StartByte()] {
			kind := model.RefRead
			if isRustAssignmentTarget(n) {
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
		walkRustRefs(c, source, declBytes, calls, refs)
	}
}

func rustCalleeIdentifier(fn *sitter.Node, source []byte) (*sitter.Node, string) {
	switch fn.Kind() {
	case "field_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			return field, field.Utf8Text(source)
		}
	case "scoped_identifier":
		if name := fn.ChildByFieldName("name"); name != nil {
			return name, name.Utf8Text(source)
		}
	case "identifier":
		return fn, fn.Utf8Text(source)
	}
	return nil, strings.TrimSpace(fn.Utf8Text(source))
}

func isRustAssignmentTarget(n *sitter.Node) bool {
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
