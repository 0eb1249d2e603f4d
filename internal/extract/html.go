package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// html5Tags is the fixed whitelist of standard element names; anything else
// (custom elements, web components) is treated as a class-kind symbol.
var html5Tags = map[string]bool{
	"html": true, "head": true, "body": true, "title": true, "meta": true,
	"link": true, "style": true, "script": true, "div": true, "span": true,
	"p": true, "a": true, "img": true, "ul": true, "ol": true, "li": true,
	"table": true, "tr": true, "td": true, "th": true, "thead": true, "tbody": true,
	"form": true, "input": true, "button": true, "label": true, "select": true,
	"option": true, "textarea": true, "nav": true, "header": true, "footer": true,
	"section": true, "article": true, "aside": true, "main": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "br": true,
	"hr": true, "pre": true, "code": true, "em": true, "strong": true,
	"iframe": true, "video": true, "audio": true, "source": true, "canvas": true,
	"svg": true, "path": true, "template": true, "slot": true,
}

// HTMLExtractor instantiates the extraction framework for HTML: elements
// with an id become "#id" variables, class tokens become ".class"
// variables, non-standard tags become classes, and script/style elements
// become modules.
type HTMLExtractor struct{}

func (HTMLExtractor) ExtractTree(root *sitter.Node, source []byte) *Extraction {
	out := &Extraction{}
	walkHTMLSymbols(root, source, &out.Symbols)
	return out
}

func walkHTMLSymbols(n *sitter.Node, source []byte, symbols *[]RawSymbol) {
	switch n.Kind() {
	case "element", "script_element", "style_element":
		startTag := htmlStartTag(n)
		if startTag != nil {
			tag := htmlTagName(startTag, source)
			switch tag {
			case "script", "style":
				*symbols = append(*symbols, RawSymbol{
					Kind:          model.KindModule,
					Name:          tag,
					QualifiedName: tag,
					Span:          Span(n),
					Signature:     Signature(source, n),
					Exported:      true,
				})
			default:
				if tag != "" && !html5Tags[tag] {
					*symbols = append(*symbols, RawSymbol{
						Kind:          model.KindClass,
						Name:          tag,
						QualifiedName: tag,
						Span:          Span(n),
						Signature:     Signature(source, n),
						Exported:      true,
					})
				}
			}
			for _, attr := range htmlAttributes(startTag) {
				name, value := htmlAttrNameValue(attr, source)
				switch name {
				case "id":
					qn := "#" + value
					*symbols = append(*symbols, RawSymbol{
						Kind:          model.KindVariable,
						Name:          value,
						QualifiedName: qn,
						Span:          Span(attr),
						Signature:     Signature(source, attr),
						Exported:      true,
					})
				case "class":
					for _, token := range strings.Fields(value) {
						qn := "." + token
						*symbols = append(*symbols, RawSymbol{
							Kind:          model.KindVariable,
							Name:          token,
							QualifiedName: qn,
							Span:          Span(attr),
							Signature:     Signature(source, attr),
							Exported:      true,
						})
					}
				}
			}
		}
	}
	for _, c := range Children(n) {
		walkHTMLSymbols(c, source, symbols)
	}
}

func htmlStartTag(element *sitter.Node) *sitter.Node {
	for _, c := range NamedChildren(element) {
		if c.Kind() == "start_tag" || c.Kind() == "self_closing_tag" {
			return c
		}
	}
	return nil
}

func htmlTagName(startTag *sitter.Node, source []byte) string {
	for _, c := range NamedChildren(startTag) {
		if c.Kind() == "tag_name" {
			return strings.ToLower(c.Utf8Text(source))
		}
	}
	return ""
}

func htmlAttributes(startTag *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range NamedChildren(startTag) {
		if c.Kind() == "attribute" {
			out = append(out, c)
		}
	}
	return out
}

func htmlAttrNameValue(attr *sitter.Node, source []byte) (string, string) {
	var name, value string
	for _, c := range NamedChildren(attr) {
		switch c.Kind() {
		case "attribute_name":
			name = strings.ToLower(c.Utf8Text(source))
		case "quoted_attribute_value", "attribute_value":
			value = strings.Trim(c.Utf8Text(source), `"'`)
		}
	}
	return name, value
}
