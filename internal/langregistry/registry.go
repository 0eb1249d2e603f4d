// Package langregistry maps file extensions to language tags and loads the
// matching tree-sitter grammar on demand.
package langregistry

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	golang "github.com/tree-sitter/tree-sitter-go/bindings/go"
	html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/codeindex-dev/codeindex/internal/model"
)

// ErrLanguageUnsupported is returned when a caller requests a tag the
// registry has no grammar for.
var ErrLanguageUnsupported = errors.New("langregistry: language unsupported")

// extensionMap is the fixed extension-to-tag table.
var extensionMap = map[string]model.Language{
	".js":   model.LangJS,
	".mjs":  model.LangJS,
	".cjs":  model.LangJS,
	".jsx":  model.LangJSX,
	".ts":   model.LangTS,
	".mts":  model.LangTS,
	".cts":  model.LangTS,
	".tsx":  model.LangTSX,
	".go":   model.LangGo,
	".py":   model.LangPython,
	".pyw":  model.LangPython,
	".rs":   model.LangRust,
	".java": model.LangJava,
	".html": model.LangHTML,
	".htm":  model.LangHTML,
}

func loaderFor(tag model.Language) (func() *sitter.Language, error) {
	switch tag {
	case model.LangJS, model.LangJSX:
		return func() *sitter.Language { return sitter.NewLanguage(javascript.Language()) }, nil
	case model.LangTS:
		return func() *sitter.Language { return sitter.NewLanguage(typescript.LanguageTypescript()) }, nil
	case model.LangTSX:
		return func() *sitter.Language { return sitter.NewLanguage(typescript.LanguageTSX()) }, nil
	case model.LangGo:
		return func() *sitter.Language { return sitter.NewLanguage(golang.Language()) }, nil
	case model.LangPython:
		return func() *sitter.Language { return sitter.NewLanguage(python.Language()) }, nil
	case model.LangRust:
		return func() *sitter.Language { return sitter.NewLanguage(rust.Language()) }, nil
	case model.LangJava:
		return func() *sitter.Language { return sitter.NewLanguage(java.Language()) }, nil
	case model.LangHTML:
		return func() *sitter.Language { return sitter.NewLanguage(html.Language()) }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrLanguageUnsupported, tag)
	}
}

// Registry loads and caches tree-sitter grammars for a fixed set of tags.
type Registry struct {
	mu    sync.Mutex
	langs map[model.Language]*sitter.Language
}

// New builds a registry that lazily loads grammars for the requested tags.
// An empty set means "load on first use for any supported tag".
func New(tags []model.Language) (*Registry, error) {
	r := &Registry{langs: make(map[model.Language]*sitter.Language)}
	for _, t := range tags {
		if _, err := r.Load(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load loads (once) and returns the grammar for tag.
func (r *Registry) Load(tag model.Language) (*sitter.Language, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.langs[tag]; ok {
		return l, nil
	}
	loader, err := loaderFor(tag)
	if err != nil {
		return nil, err
	}
	l := loader()
	r.langs[tag] = l
	return l, nil
}

// LanguageForExtension returns the tag for path's extension, or ("", false)
// if the extension is not recognized.
func LanguageForExtension(path string) (model.Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	tag, ok := extensionMap[ext]
	return tag, ok
}

// Parse parses source with the grammar for tag. The caller owns the
// returned tree and must call Close on it.
func (r *Registry) Parse(source []byte, tag model.Language) (*sitter.Tree, error) {
	lang, err := r.Load(tag)
	if err != nil {
		return nil, err
	}
	p := sitter.NewParser()
	defer p.Close()
	if err := p.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("langregistry: set language %s: %w", tag, err)
	}
	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("langregistry: parse produced no tree for %s", tag)
	}
	return tree, nil
}
