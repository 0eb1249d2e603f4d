// Package query implements the read-only operations the CLI and MCP
// server expose over an indexed store: symbol lookup, definitions,
// references, call-chain traversal, object-property enumeration, and
// embedding-based semantic search.
package query

import (
	"context"
	"errors"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/store"
	storesqlite "github.com/codeindex-dev/codeindex/internal/store/sqlite"
)

const defaultCallChainDepth = 5

// Engine answers read-only queries against a Store.
type Engine struct {
	store store.Store

	chainCache *lru.Cache[chainCacheKey, *model.CallChainNode]
}

type chainCacheKey struct {
	from      int64
	direction model.Direction
	depth     int
	version   int64
}

// New builds a query Engine. chainCacheSize <= 0 disables call-chain
// memoization.
func New(st store.Store, chainCacheSize int) *Engine {
	e := &Engine{store: st}
	if chainCacheSize > 0 {
		c, err := lru.New[chainCacheKey, *model.CallChainNode](chainCacheSize)
		if err == nil {
			e.chainCache = c
		}
	}
	return e
}

// FindSymbols returns all matches, lexicographically ordered by qualified
// name — never scored.
func (e *Engine) FindSymbols(ctx context.Context, name string, language model.Language, inFile string, kind model.SymbolKind) ([]model.Symbol, error) {
	return e.store.FindSymbolsByName(ctx, name, store.SymbolFilter{Language: language, InFile: inFile, Kind: kind})
}

// FindSymbol is a single-match convenience: among the name's matches,
// first narrow by inFile substring, then by kind, then return the first
// remaining row.
func (e *Engine) FindSymbol(ctx context.Context, name string, language model.Language, inFile string, kind model.SymbolKind) (*model.Symbol, error) {
	matches, err := e.store.FindSymbolsByName(ctx, name, store.SymbolFilter{Language: language})
	if err != nil {
		return nil, err
	}
	if inFile != "" {
		matches = filterSymbols(ctx, e.store, matches, func(s model.Symbol) (bool, error) {
			loc, err := e.store.SymbolLocation(ctx, s.ID)
			if err != nil {
				return false, err
			}
			return strings.Contains(loc.Path, inFile), nil
		})
	}
	if kind != "" {
		var narrowed []model.Symbol
		for _, s := range matches {
			if s.Kind == kind {
				narrowed = append(narrowed, s)
			}
		}
		matches = narrowed
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

func filterSymbols(_ context.Context, _ store.Store, in []model.Symbol, pred func(model.Symbol) (bool, error)) []model.Symbol {
	var out []model.Symbol
	for _, s := range in {
		ok, err := pred(s)
		if err == nil && ok {
			out = append(out, s)
		}
	}
	return out
}

// GetDefinition resolves a symbol to its file and span.
func (e *Engine) GetDefinition(ctx context.Context, symbolID int64) (model.Location, error) {
	return e.store.SymbolLocation(ctx, symbolID)
}

// GetReferences returns all reference rows targeting the symbol, with
// their source file resolved, rather than leaving a blank path.
func (e *Engine) GetReferences(ctx context.Context, symbolID int64) ([]model.SymbolLocation, error) {
	refs, err := e.store.ReferencesTo(ctx, symbolID)
	if err != nil {
		return nil, err
	}
	sym, err := e.store.GetSymbol(ctx, symbolID)
	if err != nil {
		return nil, err
	}
	files := map[int64]string{}
	out := make([]model.SymbolLocation, 0, len(refs))
	for _, r := range refs {
		path, ok := files[r.SourceFile]
		if !ok {
			f, err := e.fileByID(ctx, r.SourceFile)
			if err != nil {
				return nil, err
			}
			path = f
			files[r.SourceFile] = path
		}
		out = append(out, model.SymbolLocation{
			Symbol:   *sym,
			Location: model.Location{Path: path, Span: r.Span},
		})
	}
	return out, nil
}

func (e *Engine) fileByID(ctx context.Context, fileID int64) (string, error) {
	files, err := e.store.ListFiles(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.ID == fileID {
			return f.Path, nil
		}
	}
	return "", nil
}

// BuildCallChain builds a tree rooted at from, walking caller->callee
// edges (forward) or callee->caller edges (backward), to at most depth
// levels. Cycle protection is a single visited set shared across the
// whole tree: a symbol already visited on any branch is not re-expanded.
func (e *Engine) BuildCallChain(ctx context.Context, from int64, direction model.Direction, depth int) (*model.CallChainNode, error) {
	if depth <= 0 {
		depth = defaultCallChainDepth
	}
	key := chainCacheKey{from: from, direction: direction, depth: depth, version: e.store.WriteVersion()}
	if e.chainCache != nil {
		if cached, ok := e.chainCache.Get(key); ok {
			return cached, nil
		}
	}
	visited := map[int64]bool{}
	root, err := e.buildChainNode(ctx, from, direction, depth, visited)
	if err != nil {
		return nil, err
	}
	if e.chainCache != nil && root != nil {
		e.chainCache.Add(key, root)
	}
	return root, nil
}

func (e *Engine) buildChainNode(ctx context.Context, symbolID int64, direction model.Direction, remaining int, visited map[int64]bool) (*model.CallChainNode, error) {
	sym, err := e.store.GetSymbol(ctx, symbolID)
	if err != nil {
		if errors.Is(err, store.ErrSymbolNotFound) {
			return nil, nil
		}
		return nil, err
	}
	loc, err := e.store.SymbolLocation(ctx, symbolID)
	if err != nil {
		return nil, err
	}
	node := &model.CallChainNode{
		SymbolID:      symbolID,
		Name:          sym.Name,
		QualifiedName: sym.QualifiedName,
		Location:      loc,
		Depth:         0,
	}
	visited[symbolID] = true
	if remaining <= 1 {
		return node, nil
	}

	var edgeTargets []int64
	if direction == model.DirectionBackward {
		calls, err := e.store.IncomingCalls(ctx, symbolID)
		if err != nil {
			return nil, err
		}
		for _, c := range calls {
			edgeTargets = append(edgeTargets, c.Caller)
		}
	} else {
		calls, err := e.store.OutgoingCalls(ctx, symbolID)
		if err != nil {
			return nil, err
		}
		for _, c := range calls {
			edgeTargets = append(edgeTargets, c.Callee)
		}
	}

	for _, target := range edgeTargets {
		if visited[target] {
			continue
		}
		child, err := e.buildChainNode(ctx, target, direction, remaining-1, visited)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		child.Depth = node.Depth + 1
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// goRecvPatterns are the heuristic substrings used to associate a Go
// method declared in a different file with its struct.
func goRecvPatterns(recv string) []string {
	return []string{recv + ".", "(*" + recv + ").", "." + recv + "."}
}

// GetObjectProperties resolves a class/interface/struct by short name and
// enumerates method/property/field symbols scoped under it, deduplicated
// by symbol identifier.
func (e *Engine) GetObjectProperties(ctx context.Context, name string, language model.Language) ([]model.Symbol, error) {
	candidates, err := e.store.FindSymbolsByName(ctx, name, store.SymbolFilter{Language: language})
	if err != nil {
		return nil, err
	}
	var owner *model.Symbol
	for i := range candidates {
		k := candidates[i].Kind
		if k == model.KindClass || k == model.KindInterface || k == model.KindStruct {
			owner = &candidates[i]
			break
		}
	}
	if owner == nil {
		return nil, nil
	}

	kinds := []model.SymbolKind{model.KindMethod, model.KindProperty, model.KindField}
	byPrefix, err := e.store.FindSymbolsByQualifiedPrefix(ctx, owner.QualifiedName+".", kinds)
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{}
	var out []model.Symbol
	for _, s := range byPrefix {
		if !seen[s.ID] {
			seen[s.ID] = true
			out = append(out, s)
		}
	}

	if language == model.LangGo || owner.Language == model.LangGo {
		patterns := goRecvPatterns(owner.Name)
		byPattern, err := e.store.FindSymbolsByQualifiedContains(ctx, patterns, []model.SymbolKind{model.KindMethod}, model.LangGo)
		if err != nil {
			return nil, err
		}
		for _, s := range byPattern {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// SemanticSearch loads every embedding row for model, scores each against
// the (already unit-length) query vector by dot product mapped from
// [-1,1] to [0,1], discards rows below minSimilarity, and returns the top
// topK in descending similarity order.
func (e *Engine) SemanticSearch(ctx context.Context, queryVector []float32, modelName string, topK int, language model.Language, kind model.SymbolKind, minSimilarity float64) ([]model.SemanticHit, error) {
	embeddings, err := e.store.FetchEmbeddings(ctx, store.EmbeddingFilter{Model: modelName, Language: language, Kind: kind})
	if err != nil {
		return nil, err
	}
	type scored struct {
		symbolID   int64
		similarity float64
	}
	var hits []scored
	for _, emb := range embeddings {
		if emb.Dimension != len(queryVector) {
			continue
		}
		vec, err := storesqlite.UnpackEmbedding(emb.Payload)
		if err != nil {
			continue
		}
		sim := dotProductSimilarity(queryVector, vec)
		if sim < minSimilarity {
			continue
		}
		hits = append(hits, scored{symbolID: emb.Symbol, similarity: sim})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].similarity > hits[j].similarity })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]model.SemanticHit, 0, len(hits))
	for _, h := range hits {
		sym, err := e.store.GetSymbol(ctx, h.symbolID)
		if err != nil {
			if errors.Is(err, store.ErrSymbolNotFound) {
				continue
			}
			return nil, err
		}
		loc, err := e.store.SymbolLocation(ctx, h.symbolID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.SemanticHit{Symbol: *sym, Location: loc, Similarity: h.similarity})
	}
	return out, nil
}

func dotProductSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return (dot + 1) / 2
}
