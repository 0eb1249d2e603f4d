// Package watch observes a project tree with fsnotify and drives
// incremental reindexing through a debounce/batch pipeline.
package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/codeindex-dev/codeindex/internal/langregistry"
	"github.com/codeindex-dev/codeindex/internal/store"
)

const (
	defaultDebounce      = 500 * time.Millisecond
	defaultBatchWindow   = 10 * time.Minute
	defaultMinChangeLine = 5
)

// Reindexer is the subset of *indexer.Indexer the watcher needs; kept as
// an interface so tests can stub it.
type Reindexer interface {
	IndexFile(ctx context.Context, relPath string) error
}

// Options configures one Watcher.
type Options struct {
	RootDir        string
	Include        []string
	Exclude        []string
	Debounce       time.Duration
	BatchWindow    time.Duration
	MinChangeLines int
}

func (o *Options) setDefaults() {
	if len(o.Include) == 0 {
		o.Include = []string{"**/*"}
	}
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.BatchWindow <= 0 {
		o.BatchWindow = defaultBatchWindow
	}
	if o.MinChangeLines <= 0 {
		o.MinChangeLines = defaultMinChangeLine
	}
}

type snapshot struct {
	modTime int64
	size    int64
	lines   int
}

// Watcher debounces filesystem events per path and batches reindex work
// behind a single timer armed by the first enqueue in a window.
type Watcher struct {
	opt   Options
	fsw   *fsnotify.Watcher
	idx   Reindexer
	store store.Store
	log   *slog.Logger

	debounceMu sync.Mutex
	debounce   map[string]*time.Timer

	batchMu   sync.Mutex
	pending   map[string]bool
	batchTmr  *time.Timer

	snapMu sync.Mutex
	snaps  map[string]snapshot

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Watcher; call Start to begin watching.
func New(opt Options, idx Reindexer, st store.Store, log *slog.Logger) (*Watcher, error) {
	opt.setDefaults()
	if log == nil {
		log = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: new fsnotify watcher: %w", err)
	}
	return &Watcher{
		opt:      opt,
		fsw:      fsw,
		idx:      idx,
		store:    st,
		log:      log,
		debounce: map[string]*time.Timer{},
		pending:  map[string]bool{},
		snaps:    map[string]snapshot{},
		stopCh:   make(chan struct{}),
	}, nil
}

// Start adds the root subtree to the fsnotify watch and launches the
// event loop goroutine.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.opt.RootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("watch: add directory failed", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk root: %w", err)
	}
	go w.loop()
	return nil
}

// Stop flushes the pending set synchronously, then releases the fsnotify
// handle. Safe to call once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.flushPending()
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.opt.RootDir, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if ev.Op&fsnotify.Create != 0 {
				if err := w.fsw.Add(ev.Name); err != nil {
					w.log.Warn("watch: add new directory failed", "path", ev.Name, "error", err)
				}
			}
			return
		}
		if !w.matchesGlobs(rel) {
			return
		}
		w.debounceReindex(rel)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleRemoval(rel)
	}
}

func (w *Watcher) matchesGlobs(rel string) bool {
	if _, ok := langregistry.LanguageForExtension(rel); !ok {
		return false
	}
	matched := false
	for _, pat := range w.opt.Include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, pat := range w.opt.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	return true
}

func (w *Watcher) debounceReindex(rel string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if t, ok := w.debounce[rel]; ok {
		t.Stop()
	}
	w.debounce[rel] = time.AfterFunc(w.opt.Debounce, func() {
		w.onDebounceFire(rel)
		w.debounceMu.Lock()
		delete(w.debounce, rel)
		w.debounceMu.Unlock()
	})
}

// onDebounceFire measures the line delta against the last observed
// snapshot; below-threshold changes on an already-known file are
// dropped.
func (w *Watcher) onDebounceFire(rel string) {
	abs := filepath.Join(w.opt.RootDir, rel)
	info, err := os.Stat(abs)
	if err != nil {
		return
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return
	}
	lines := bytes.Count(content, []byte("\n")) + 1

	w.snapMu.Lock()
	old, known := w.snaps[rel]
	w.snaps[rel] = snapshot{modTime: info.ModTime().UnixNano(), size: info.Size(), lines: lines}
	w.snapMu.Unlock()

	if known {
		delta := lines - old.lines
		if delta < 0 {
			delta = -delta
		}
		if delta < w.opt.MinChangeLines {
			return
		}
	}
	w.enqueue(rel)
}

// enqueue adds rel to the pending set and arms the batch timer exactly
// once per window: a path added after the timer fires starts a new
// window rather than resetting the current one.
func (w *Watcher) enqueue(rel string) {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.pending[rel] = true
	if w.batchTmr == nil {
		w.batchTmr = time.AfterFunc(w.opt.BatchWindow, w.onBatchFire)
	}
}

func (w *Watcher) onBatchFire() {
	w.batchMu.Lock()
	drained := w.pending
	w.pending = map[string]bool{}
	w.batchTmr = nil
	w.batchMu.Unlock()

	ctx := context.Background()
	for rel := range drained {
		if err := w.idx.IndexFile(ctx, rel); err != nil {
			w.log.Error("watch: reindex failed", "path", rel, "error", err)
		}
	}
}

func (w *Watcher) flushPending() {
	w.batchMu.Lock()
	if w.batchTmr != nil {
		w.batchTmr.Stop()
	}
	drained := w.pending
	w.pending = map[string]bool{}
	w.batchTmr = nil
	w.batchMu.Unlock()

	ctx := context.Background()
	for rel := range drained {
		if err := w.idx.IndexFile(ctx, rel); err != nil {
			w.log.Error("watch: flush reindex failed", "path", rel, "error", err)
		}
	}
}

func (w *Watcher) handleRemoval(rel string) {
	ctx := context.Background()
	f, err := w.store.GetFileByPath(ctx, rel)
	if err == nil {
		if delErr := w.store.DeleteFile(ctx, f.ID); delErr != nil {
			w.log.Error("watch: delete file failed", "path", rel, "error", delErr)
		}
		return
	}
	if !errors.Is(err, store.ErrFileNotIndexed) {
		w.log.Error("watch: lookup file failed", "path", rel, "error", err)
		return
	}
	// Not a tracked file: treat as a directory removal and cascade to
	// every stored file under it.
	if err := w.store.DeleteFilesByPathPrefix(ctx, rel); err != nil {
		w.log.Error("watch: directory cascade delete failed", "path", rel, "error", err)
	}
}
