// Package model defines the data types persisted and returned by the
// indexer, store, and query engine.
package model

// SymbolKind is the closed set of entity kinds an extractor may emit.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindProperty  SymbolKind = "property"
	KindField     SymbolKind = "field"
	KindModule    SymbolKind = "module"
	KindNamespace SymbolKind = "namespace"
	KindType      SymbolKind = "type"
)

// ReferenceKind classifies a non-call use of a name.
type ReferenceKind string

const (
	RefRead      ReferenceKind = "read"
	RefWrite     ReferenceKind = "write"
	RefImport    ReferenceKind = "import"
	RefExport    ReferenceKind = "export"
	RefExtend    ReferenceKind = "extend"
	RefImplement ReferenceKind = "implement"
	RefCall      ReferenceKind = "call"
)

// Language is a grammar tag recognized by the registry.
type Language string

const (
	LangJS         Language = "js"
	LangJSX        Language = "jsx"
	LangTS         Language = "ts"
	LangTSX        Language = "tsx"
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangHTML       Language = "html"
)

// File is a tracked source file.
type File struct {
	ID          int64
	Path        string // relative to root, forward-slashed, case-sensitive
	Language    Language
	ContentHash string // hex SHA-256 of raw bytes
	ModTime     int64  // unix nanos
	Size        int64
	IndexedAt   int64 // unix nanos
}

// Span is an inclusive source range, 1-based lines, 0-based columns.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Contains reports whether line (1-based) falls within the span.
func (s Span) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// Size returns the number of lines the span covers.
func (s Span) Size() int {
	return s.EndLine - s.StartLine + 1
}

// Symbol is a named entity produced by an extractor.
type Symbol struct {
	ID            int64
	File          int64
	Language      Language
	Kind          SymbolKind
	Name          string
	QualifiedName string
	Span          Span
	Signature     string // first up to 3 lines, trimmed to <=200 bytes
	Exported      bool

	SummaryHash      string
	SummaryText      string
	SummaryTokens    int
	SummarizedAt     int64
	HasSummary       bool
}

// Call is a directed edge between two symbols located at a call site.
type Call struct {
	ID         int64
	Caller     int64
	Callee     int64
	SiteFile   int64
	SiteSpan   Span
}

// Reference is a non-call use of a name.
type Reference struct {
	ID         int64
	SourceFile int64
	Span       Span
	Target     int64
	Kind       ReferenceKind
}

// Embedding is a unit-length vector attached to a symbol for a model.
type Embedding struct {
	Symbol    int64
	Model     string
	Dimension int
	Payload   []byte // little-endian packed float32, len == Dimension*4
	ChunkHash string
	CreatedAt int64
	UpdatedAt int64
}

// Location resolves a symbol or reference anchor to a file path and span.
type Location struct {
	Path string
	Span Span
}

// SymbolLocation pairs a symbol with its resolved file location.
type SymbolLocation struct {
	Symbol   Symbol
	Location Location
}

// CallChainNode is one node of a buildCallChain result tree.
type CallChainNode struct {
	SymbolID      int64
	Name          string
	QualifiedName string
	Location      Location
	Depth         int
	Children      []*CallChainNode
}

// Direction controls which edge orientation buildCallChain walks.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// SemanticHit is one ranked result of a semantic search.
type SemanticHit struct {
	Symbol     Symbol
	Location   Location
	Similarity float64
}

// IndexStage names a phase of a progress-reporting index run.
type IndexStage string

const (
	StageScan    IndexStage = "scan"
	StageParse   IndexStage = "parse"
	StageExtract IndexStage = "extract"
	StageStore   IndexStage = "store"
	StageCompact IndexStage = "compact"
	StageDone    IndexStage = "done"
)

// IndexProgress is a streaming progress update emitted during indexAll/rebuild.
type IndexProgress struct {
	Stage       IndexStage
	TotalFiles  int
	DoneFiles   int
	CurrentFile string
	Percent     float32
}
