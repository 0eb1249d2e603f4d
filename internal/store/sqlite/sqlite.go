// Package sqlite is the modernc.org/sqlite-backed implementation of
// internal/store.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "modernc.org/sqlite"

	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/store"
)

// Store is a *sql.DB-backed store.Store. Embeddings are packed with
// sqlite-vec's float32 codec (little-endian) but similarity ranking
// happens in the query engine, not in a vec0 virtual table: every
// candidate row is scanned and ranked in process.
type Store struct {
	db *sql.DB

	// version bumps on every write that can change the symbol/call/
	// reference graph, so callers that cache graph-derived results (the
	// query engine's call-chain cache) can key on it instead of caching
	// forever.
	version atomic.Int64
}

// WriteVersion returns a counter that increments on every write that
// adds, replaces, or deletes files, symbols, calls, or references.
// Summary and embedding updates leave it unchanged.
func (s *Store) WriteVersion() int64 {
	return s.version.Load()
}

// New opens (creating if absent) the database at path and migrates it.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	pragmas := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
		`PRAGMA foreign_keys = ON`,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		language TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL,
		indexed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_content_hash ON files(content_hash);

	CREATE TABLE IF NOT EXISTS symbols (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		language TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL,
		signature TEXT,
		exported INTEGER NOT NULL,
		summary_hash TEXT NOT NULL DEFAULT '',
		chunk_summary TEXT NOT NULL DEFAULT '',
		summary_tokens INTEGER NOT NULL DEFAULT 0,
		summarized_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
	CREATE INDEX IF NOT EXISTS idx_symbols_qualified_name ON symbols(qualified_name);
	CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);
	CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);

	CREATE TABLE IF NOT EXISTS calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		caller INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
		callee INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
		site_file INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		start_line INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(caller);
	CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls(callee);
	CREATE INDEX IF NOT EXISTS idx_calls_site_file ON calls(site_file);

	CREATE TABLE IF NOT EXISTS refs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_file INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		start_line INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL,
		target INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
		kind TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target);
	CREATE INDEX IF NOT EXISTS idx_refs_source_file ON refs(source_file);

	CREATE TABLE IF NOT EXISTS embeddings (
		symbol INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		payload BLOB NOT NULL,
		chunk_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (symbol, model)
	);
	CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
	CREATE INDEX IF NOT EXISTS idx_embeddings_chunk_hash ON embeddings(chunk_hash);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return addMissingSummaryColumns(db)
}

// addMissingSummaryColumns handles the one online schema evolution
// supported: a symbols table created before the summary columns existed
// gets them added in a single transaction, nothing else.
func addMissingSummaryColumns(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(symbols)`)
	if err != nil {
		return err
	}
	existing := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			_ = rows.Close()
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	missing := []string{}
	for _, col := range []string{"summary_hash", "chunk_summary", "summary_tokens", "summarized_at"} {
		if !existing[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, col := range missing {
		ddl := fmt.Sprintf(`ALTER TABLE symbols ADD COLUMN %s TEXT NOT NULL DEFAULT ''`, col)
		if col == "summary_tokens" || col == "summarized_at" {
			ddl = fmt.Sprintf(`ALTER TABLE symbols ADD COLUMN %s INTEGER NOT NULL DEFAULT 0`, col)
		}
		if _, err := tx.Exec(ddl); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: add column %s: %w", col, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) UpsertFile(ctx context.Context, f model.File) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files(path, language, content_hash, mod_time, size, indexed_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET
			language=excluded.language,
			content_hash=excluded.content_hash,
			mod_time=excluded.mod_time,
			size=excluded.size,
			indexed_at=excluded.indexed_at`,
		f.Path, string(f.Language), f.ContentHash, f.ModTime, f.Size, f.IndexedAt)
	if err != nil {
		return 0, err
	}
	// LastInsertId is left unchanged when the upsert takes the UPDATE
	// path, so the identifier is always read back by path.
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, f.Path).Scan(&id); err != nil {
		return 0, err
	}
	s.version.Add(1)
	return id, nil
}

func (s *Store) GetFileByPath(ctx context.Context, path string) (*model.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, path, language, content_hash, mod_time, size, indexed_at FROM files WHERE path = ?`, path)
	var f model.File
	var lang string
	if err := row.Scan(&f.ID, &f.Path, &lang, &f.ContentHash, &f.ModTime, &f.Size, &f.IndexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrFileNotIndexed
		}
		return nil, err
	}
	f.Language = model.Language(lang)
	return &f, nil
}

func (s *Store) ListFiles(ctx context.Context) ([]model.File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, language, content_hash, mod_time, size, indexed_at FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.File
	for rows.Next() {
		var f model.File
		var lang string
		if err := rows.Scan(&f.ID, &f.Path, &lang, &f.ContentHash, &f.ModTime, &f.Size, &f.IndexedAt); err != nil {
			return nil, err
		}
		f.Language = model.Language(lang)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteFile(ctx context.Context, fileID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return err
	}
	s.version.Add(1)
	return nil
}

func (s *Store) DeleteFilesByPathPrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ? OR path LIKE ?`, prefix, prefix+"/%")
	if err != nil {
		return err
	}
	s.version.Add(1)
	return nil
}

// ReindexFile is the single-transaction per-file replace: wipe this
// file's prior symbols/calls/refs, upsert the file row, insert the new
// symbols, then resolve calls/refs. Each call's caller is resolved by
// span against this file's new symbols (the smallest span containing
// the call site); callees and reference targets are resolved by name
// against the whole table.
func (s *Store) ReindexFile(ctx context.Context, f model.File, symbols []model.Symbol, calls []store.PendingCall, refs []store.PendingRef) (int64, []int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	var fileID int64
	row := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, f.Path)
	if err := row.Scan(&fileID); err == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file = ?`, fileID); err != nil {
			return 0, nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM calls WHERE site_file = ?`, fileID); err != nil {
			return 0, nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE source_file = ?`, fileID); err != nil {
			return 0, nil, err
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files(path, language, content_hash, mod_time, size, indexed_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET
			language=excluded.language,
			content_hash=excluded.content_hash,
			mod_time=excluded.mod_time,
			size=excluded.size,
			indexed_at=excluded.indexed_at`,
		f.Path, string(f.Language), f.ContentHash, f.ModTime, f.Size, f.IndexedAt)
	if err != nil {
		return 0, nil, err
	}
	// LastInsertId is left unchanged when the upsert takes the UPDATE
	// path, so the file's identifier is always read back by path.
	if err := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, f.Path).Scan(&fileID); err != nil {
		return 0, nil, err
	}

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols(file, language, kind, name, qualified_name, start_line, start_col, end_line, end_col, signature, exported)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = symStmt.Close() }()

	symbolIDs := make([]int64, len(symbols))
	for i, sym := range symbols {
		r, err := symStmt.ExecContext(ctx, fileID, string(sym.Language), string(sym.Kind), sym.Name, sym.QualifiedName,
			sym.Span.StartLine, sym.Span.StartCol, sym.Span.EndLine, sym.Span.EndCol, sym.Signature, boolToInt(sym.Exported))
		if err != nil {
			return 0, nil, err
		}
		id, err := r.LastInsertId()
		if err != nil {
			return 0, nil, err
		}
		symbolIDs[i] = id
	}

	// caller-by-span: the innermost (smallest-span) symbol of this file
	// whose span contains the call site's start line.
	callerFor := func(site model.Span) int64 {
		best := int64(-1)
		bestSize := -1
		for i, sym := range symbols {
			if sym.Span.Contains(site.StartLine) {
				size := sym.Span.Size()
				if bestSize == -1 || size < bestSize {
					bestSize = size
					best = symbolIDs[i]
				}
			}
		}
		return best
	}

	callStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calls(caller, callee, site_file, start_line, start_col, end_line, end_col)
		VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = callStmt.Close() }()

	for _, c := range calls {
		caller := callerFor(c.Site)
		if caller < 0 {
			continue
		}
		calleeID, found, err := firstSymbolByName(ctx, tx, c.CalleeName)
		if err != nil {
			return 0, nil, err
		}
		if !found {
			continue
		}
		if _, err := callStmt.ExecContext(ctx, caller, calleeID, fileID,
			c.Site.StartLine, c.Site.StartCol, c.Site.EndLine, c.Site.EndCol); err != nil {
			return 0, nil, err
		}
	}

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO refs(source_file, start_line, start_col, end_line, end_col, target, kind)
		VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = refStmt.Close() }()

	for _, r := range refs {
		targetID, found, err := firstSymbolByName(ctx, tx, r.TargetName)
		if err != nil {
			return 0, nil, err
		}
		if !found {
			continue
		}
		if _, err := refStmt.ExecContext(ctx, fileID, r.Site.StartLine, r.Site.StartCol, r.Site.EndLine, r.Site.EndCol,
			targetID, string(r.Kind)); err != nil {
			return 0, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	commit = true
	s.version.Add(1)
	return fileID, symbolIDs, nil
}

func firstSymbolByName(ctx context.Context, tx *sql.Tx, name string) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM symbols WHERE name = ? ORDER BY id LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) InsertSymbol(ctx context.Context, sym model.Symbol) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO symbols(file, language, kind, name, qualified_name, start_line, start_col, end_line, end_col, signature, exported)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		sym.File, string(sym.Language), string(sym.Kind), sym.Name, sym.QualifiedName,
		sym.Span.StartLine, sym.Span.StartCol, sym.Span.EndLine, sym.Span.EndCol, sym.Signature, boolToInt(sym.Exported))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.version.Add(1)
	return id, nil
}

func (s *Store) DeleteSymbolsByFile(ctx context.Context, fileID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM symbols WHERE file = ?`, fileID)
	if err != nil {
		return err
	}
	s.version.Add(1)
	return nil
}

const symbolColumns = `id, file, language, kind, name, qualified_name, start_line, start_col, end_line, end_col, signature, exported, summary_hash, chunk_summary, summary_tokens, summarized_at`

func scanSymbol(row interface{ Scan(...any) error }) (model.Symbol, error) {
	var sym model.Symbol
	var lang, kind string
	var exported int
	if err := row.Scan(&sym.ID, &sym.File, &lang, &kind, &sym.Name, &sym.QualifiedName,
		&sym.Span.StartLine, &sym.Span.StartCol, &sym.Span.EndLine, &sym.Span.EndCol,
		&sym.Signature, &exported, &sym.SummaryHash, &sym.SummaryText, &sym.SummaryTokens, &sym.SummarizedAt); err != nil {
		return sym, err
	}
	sym.Language = model.Language(lang)
	sym.Kind = model.SymbolKind(kind)
	sym.Exported = exported != 0
	sym.HasSummary = sym.SummaryText != ""
	return sym, nil
}

func (s *Store) GetSymbol(ctx context.Context, id int64) (*model.Symbol, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+symbolColumns+` FROM symbols WHERE id = ?`, id)
	sym, err := scanSymbol(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSymbolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sym, nil
}

func (s *Store) FindSymbolsByName(ctx context.Context, name string, filter store.SymbolFilter) ([]model.Symbol, error) {
	q := `SELECT ` + symbolColumns + ` FROM symbols s WHERE name = ?`
	args := []any{name}
	if filter.Language != "" {
		q += ` AND language = ?`
		args = append(args, string(filter.Language))
	}
	if filter.Kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.InFile != "" {
		q += ` AND file IN (SELECT id FROM files WHERE path LIKE ?)`
		args = append(args, "%"+filter.InFile+"%")
	}
	q += ` ORDER BY qualified_name`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectSymbols(rows)
}

func collectSymbols(rows *sql.Rows) ([]model.Symbol, error) {
	var out []model.Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *Store) FindSymbolsByQualifiedPrefix(ctx context.Context, prefix string, kinds []model.SymbolKind) ([]model.Symbol, error) {
	q := `SELECT ` + symbolColumns + ` FROM symbols WHERE qualified_name LIKE ?`
	args := []any{escapeLike(prefix) + "%"}
	if len(kinds) > 0 {
		q += ` AND kind IN (` + placeholders(len(kinds)) + `)`
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	q += ` ORDER BY qualified_name`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectSymbols(rows)
}

func (s *Store) FindSymbolsByQualifiedContains(ctx context.Context, substrings []string, kinds []model.SymbolKind, language model.Language) ([]model.Symbol, error) {
	if len(substrings) == 0 {
		return nil, nil
	}
	q := `SELECT ` + symbolColumns + ` FROM symbols WHERE (`
	args := []any{}
	for i, sub := range substrings {
		if i > 0 {
			q += ` OR `
		}
		q += `qualified_name LIKE ?`
		args = append(args, "%"+escapeLike(sub)+"%")
	}
	q += `)`
	if len(kinds) > 0 {
		q += ` AND kind IN (` + placeholders(len(kinds)) + `)`
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	if language != "" {
		q += ` AND language = ?`
		args = append(args, string(language))
	}
	q += ` ORDER BY qualified_name`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectSymbols(rows)
}

func (s *Store) ListAllSymbols(ctx context.Context) ([]model.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+symbolColumns+` FROM symbols ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectSymbols(rows)
}

func (s *Store) SymbolLocation(ctx context.Context, id int64) (model.Location, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT f.path, s.start_line, s.start_col, s.end_line, s.end_col
		FROM symbols s JOIN files f ON f.id = s.file WHERE s.id = ?`, id)
	var loc model.Location
	if err := row.Scan(&loc.Path, &loc.Span.StartLine, &loc.Span.StartCol, &loc.Span.EndLine, &loc.Span.EndCol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return loc, store.ErrSymbolNotFound
		}
		return loc, err
	}
	return loc, nil
}

func (s *Store) InsertCall(ctx context.Context, c model.Call) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calls(caller, callee, site_file, start_line, start_col, end_line, end_col)
		VALUES(?,?,?,?,?,?,?)`,
		c.Caller, c.Callee, c.SiteFile, c.SiteSpan.StartLine, c.SiteSpan.StartCol, c.SiteSpan.EndLine, c.SiteSpan.EndCol)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.version.Add(1)
	return id, nil
}

func scanCalls(rows *sql.Rows) ([]model.Call, error) {
	var out []model.Call
	for rows.Next() {
		var c model.Call
		if err := rows.Scan(&c.ID, &c.Caller, &c.Callee, &c.SiteFile,
			&c.SiteSpan.StartLine, &c.SiteSpan.StartCol, &c.SiteSpan.EndLine, &c.SiteSpan.EndCol); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const callColumns = `id, caller, callee, site_file, start_line, start_col, end_line, end_col`

func (s *Store) OutgoingCalls(ctx context.Context, callerID int64) ([]model.Call, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+callColumns+` FROM calls WHERE caller = ? ORDER BY id`, callerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanCalls(rows)
}

func (s *Store) IncomingCalls(ctx context.Context, calleeID int64) ([]model.Call, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+callColumns+` FROM calls WHERE callee = ? ORDER BY id`, calleeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanCalls(rows)
}

func (s *Store) InsertReference(ctx context.Context, r model.Reference) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO refs(source_file, start_line, start_col, end_line, end_col, target, kind)
		VALUES(?,?,?,?,?,?,?)`,
		r.SourceFile, r.Span.StartLine, r.Span.StartCol, r.Span.EndLine, r.Span.EndCol, r.Target, string(r.Kind))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.version.Add(1)
	return id, nil
}

func (s *Store) ReferencesTo(ctx context.Context, symbolID int64) ([]model.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, start_line, start_col, end_line, end_col, target, kind
		FROM refs WHERE target = ? ORDER BY id`, symbolID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Reference
	for rows.Next() {
		var r model.Reference
		var kind string
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.Span.StartLine, &r.Span.StartCol, &r.Span.EndLine, &r.Span.EndCol, &r.Target, &kind); err != nil {
			return nil, err
		}
		r.Kind = model.ReferenceKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpsertEmbedding(ctx context.Context, e model.Embedding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings(symbol, model, dimension, payload, chunk_hash, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(symbol, model) DO UPDATE SET
			dimension=excluded.dimension,
			payload=excluded.payload,
			chunk_hash=excluded.chunk_hash,
			updated_at=excluded.updated_at`,
		e.Symbol, e.Model, e.Dimension, e.Payload, e.ChunkHash, e.CreatedAt, e.UpdatedAt)
	return err
}

func (s *Store) FetchEmbeddings(ctx context.Context, filter store.EmbeddingFilter) ([]model.Embedding, error) {
	q := `SELECT e.symbol, e.model, e.dimension, e.payload, e.chunk_hash, e.created_at, e.updated_at
	      FROM embeddings e JOIN symbols s ON s.id = e.symbol WHERE e.model = ?`
	args := []any{filter.Model}
	if filter.Language != "" {
		q += ` AND s.language = ?`
		args = append(args, string(filter.Language))
	}
	if filter.Kind != "" {
		q += ` AND s.kind = ?`
		args = append(args, string(filter.Kind))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Embedding
	for rows.Next() {
		var e model.Embedding
		if err := rows.Scan(&e.Symbol, &e.Model, &e.Dimension, &e.Payload, &e.ChunkHash, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSummary(ctx context.Context, symbolID int64, chunkHash, summary string, tokens int, summarizedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE symbols SET summary_hash = ?, chunk_summary = ?, summary_tokens = ?, summarized_at = ?
		WHERE id = ?`, chunkHash, summary, tokens, summarizedAt, symbolID)
	return err
}

func (s *Store) SymbolsNeedingSummary(ctx context.Context, limit int) ([]model.Symbol, error) {
	q := `SELECT ` + symbolColumns + ` FROM symbols WHERE chunk_summary = '' ORDER BY id`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectSymbols(rows)
}

func (s *Store) SymbolsMissingEmbedding(ctx context.Context, modelName string, limit int) ([]model.Symbol, error) {
	q := `SELECT ` + symbolColumns + ` FROM symbols s WHERE NOT EXISTS (
		SELECT 1 FROM embeddings e WHERE e.symbol = s.id AND e.model = ? AND e.chunk_hash = s.summary_hash
	) ORDER BY s.id`
	args := []any{modelName}
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectSymbols(rows)
}

func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, table := range []string{"embeddings", "refs", "calls", "symbols", "files"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.version.Add(1)
	return nil
}

func (s *Store) Compact(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `VACUUM`)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// PackEmbedding serializes a float32 vector into the packed
// little-endian payload sqlite-vec uses for its BLOB columns.
func PackEmbedding(v []float32) ([]byte, error) {
	return sqlitevec.SerializeFloat32(v)
}

// UnpackEmbedding is the inverse of PackEmbedding.
func UnpackEmbedding(payload []byte) ([]float32, error) {
	return sqlitevec.DeserializeFloat32(payload)
}
