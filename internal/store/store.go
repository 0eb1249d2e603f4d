// Package store defines the narrow, typed persistence operations the
// indexer and query engine run against. internal/store/sqlite provides the
// concrete implementation.
package store

import (
	"context"
	"errors"

	"github.com/codeindex-dev/codeindex/internal/model"
)

var (
	// ErrSymbolNotFound is returned by lookups that address a single symbol
	// by identifier.
	ErrSymbolNotFound = errors.New("store: symbol not found")
	// ErrFileNotIndexed is returned when an operation addresses a file path
	// the store has no row for.
	ErrFileNotIndexed = errors.New("store: file not indexed")
)

// SymbolFilter narrows FindSymbolsByName results.
type SymbolFilter struct {
	Language model.Language // empty: any
	InFile   string         // empty: any; substring match on file path
	Kind     model.SymbolKind
}

// EmbeddingFilter narrows FetchEmbeddings.
type EmbeddingFilter struct {
	Model    string
	Language model.Language
	Kind     model.SymbolKind
}

// FileRow is a stored file plus its database identifier.
type FileRow = model.File

// Store is the persistence surface shared by the indexer and query engine.
// Implementations must serialize writes: callers assume exactly one
// writer at a time, with concurrent reads tolerated by WAL.
type Store interface {
	// UpsertFile inserts or updates a file row by path, refreshing hash,
	// mtime, and size, and returns its identifier.
	UpsertFile(ctx context.Context, f model.File) (int64, error)
	GetFileByPath(ctx context.Context, path string) (*model.File, error)
	ListFiles(ctx context.Context) ([]model.File, error)

	// DeleteFile removes the file row and cascades to its symbols, calls,
	// references, and embeddings.
	DeleteFile(ctx context.Context, fileID int64) error
	DeleteFilesByPathPrefix(ctx context.Context, prefix string) error

	// ReindexFile runs the full per-file replace inside one transaction:
	// delete the file's prior symbols/calls/references, upsert the file
	// row, insert the new symbols, then resolve and insert calls/refs
	// against the whole symbol table. Returns the new file ID and the
	// inserted symbol IDs in extraction order.
	ReindexFile(ctx context.Context, f model.File, symbols []model.Symbol, calls []PendingCall, refs []PendingRef) (fileID int64, symbolIDs []int64, err error)

	InsertSymbol(ctx context.Context, s model.Symbol) (int64, error)
	DeleteSymbolsByFile(ctx context.Context, fileID int64) error
	GetSymbol(ctx context.Context, id int64) (*model.Symbol, error)
	FindSymbolsByName(ctx context.Context, name string, filter SymbolFilter) ([]model.Symbol, error)
	FindSymbolsByQualifiedPrefix(ctx context.Context, prefix string, kinds []model.SymbolKind) ([]model.Symbol, error)
	FindSymbolsByQualifiedContains(ctx context.Context, substrings []string, kinds []model.SymbolKind, language model.Language) ([]model.Symbol, error)
	ListAllSymbols(ctx context.Context) ([]model.Symbol, error)
	SymbolLocation(ctx context.Context, id int64) (model.Location, error)

	InsertCall(ctx context.Context, c model.Call) (int64, error)
	OutgoingCalls(ctx context.Context, callerID int64) ([]model.Call, error)
	IncomingCalls(ctx context.Context, calleeID int64) ([]model.Call, error)

	InsertReference(ctx context.Context, r model.Reference) (int64, error)
	ReferencesTo(ctx context.Context, symbolID int64) ([]model.Reference, error)

	UpsertEmbedding(ctx context.Context, e model.Embedding) error
	FetchEmbeddings(ctx context.Context, filter EmbeddingFilter) ([]model.Embedding, error)

	UpdateSummary(ctx context.Context, symbolID int64, chunkHash, summary string, tokens int, summarizedAt int64) error
	SymbolsNeedingSummary(ctx context.Context, limit int) ([]model.Symbol, error)
	SymbolsMissingEmbedding(ctx context.Context, modelName string, limit int) ([]model.Symbol, error)

	Clear(ctx context.Context) error
	Compact(ctx context.Context) error
	Close() error

	// WriteVersion returns a counter that increments on every write
	// that adds, replaces, or deletes files, symbols, calls, or
	// references (summary and embedding updates leave it unchanged).
	// Callers use it to
	// key caches derived from the call/reference graph without needing
	// fine-grained invalidation.
	WriteVersion() int64
}

// PendingCall/PendingRef are the indexer's unresolved extraction output,
// defined here (rather than imported from internal/extract) to keep the
// store package free of a dependency on the extraction framework; the
// indexer adapts extract.RawCall/RawReference into these before calling
// ReindexFile.
type PendingCall struct {
	CalleeName string
	Site       model.Span
}

type PendingRef struct {
	TargetName string
	Kind       model.ReferenceKind
	Site       model.Span
}
