// Package watcher reports batches of changed requirement documents under a
// directory tree.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/casegen/source"
	"github.com/c360studio/casegen/source/parser"
	"github.com/fsnotify/fsnotify"
)

const batchBuffer = 16

// Config configures document watching.
type Config struct {
	// Debounce is how long the tree must be quiet before a batch is emitted.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`

	// Extensions lists file extensions to watch. Empty means every
	// extension the parser registry supports.
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`

	// Include restricts watched files to those matching a glob, relative
	// to the root. Empty includes everything.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `json:"exclude_dirs,omitempty" yaml:"exclude_dirs,omitempty"`
}

// DefaultConfig returns default watch configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:    500 * time.Millisecond,
		Extensions:  parser.SupportedExtensions(),
		ExcludeDirs: []string{".git", "node_modules", "vendor"},
	}
}

// Op is the kind of change to a document.
type Op string

const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Event is a change to one document.
type Event struct {
	// Path is relative to the watched root, with forward slashes.
	Path string
	// AbsPath is the absolute file path.
	AbsPath string
	Op      Op
}

// Watcher watches a directory tree and emits debounced batches of document
// changes. Files whose content hash is unchanged are not reported.
type Watcher struct {
	config   Config
	root     string
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	excludes map[string]bool

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.Mutex
	hashes map[string]string

	batches chan []Event
	dropped atomic.Int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, config Config, opts ...Option) (*Watcher, error) {
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if len(config.Extensions) == 0 {
		config.Extensions = parser.SupportedExtensions()
	}
	if err := source.ValidatePatterns(config.Include); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		config:   config,
		root:     abs,
		fsw:      fsw,
		logger:   slog.Default(),
		excludes: make(map[string]bool),
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		batches:  make(chan []Event, batchBuffer),
	}
	for _, dir := range config.ExcludeDirs {
		w.excludes[dir] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Batches returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Batches() <-chan []Event {
	return w.batches
}

// Start records the current content of every watched file, so that only
// later changes are reported, and begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", w.root)
	}

	if err := w.addTree(w.root, true); err != nil {
		return err
	}

	go w.run(ctx)

	w.logger.Info("Document watcher started",
		"root", w.root,
		"debounce", w.config.Debounce,
		"extensions", w.config.Extensions)
	return nil
}

// Stop stops the watcher. The batch channel is closed by the event loop.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// Snapshot returns every watched file currently known, sorted. Useful for
// an initial full run.
func (w *Watcher) Snapshot() []string {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()

	paths := make([]string, 0, len(w.hashes))
	for p := range w.hashes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Dropped returns the number of batches dropped because the consumer fell behind.
func (w *Watcher) Dropped() int64 {
	return w.dropped.Load()
}

// addTree watches every directory under dir. When seed is set the hashes
// of existing files are recorded without emitting events.
func (w *Watcher) addTree(dir string, seed bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.root && w.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				w.logger.Warn("Failed to watch directory", "path", path, "error", err)
			}
			return nil
		}
		if seed && w.wanted(path) {
			if content, err := os.ReadFile(path); err == nil {
				w.setHash(path, parser.ContentHash(content))
			}
		}
		return nil
	})
}

func (w *Watcher) skipDir(name string) bool {
	return w.excludes[name] || strings.HasPrefix(name, ".")
}

// wanted reports whether path is a document this watcher reports on.
func (w *Watcher) wanted(path string) bool {
	if !source.HasExtension(path, w.config.Extensions) {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if part != "." && w.skipDir(part) {
			return false
		}
	}
	return len(w.config.Include) == 0 || source.MatchAny(w.config.Include, rel)
}

// run collects fsnotify events and flushes once the tree has been quiet
// for the debounce delay.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.batches)

	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handle(event) {
				timer.Reset(w.config.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-timer.C:
			if batch := w.flush(); len(batch) > 0 {
				w.send(batch)
			}
		}
	}
}

// handle records a pending change and reports whether the event was relevant.
func (w *Watcher) handle(event fsnotify.Event) bool {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(filepath.Base(path)) {
				// Files created before the watch was added are picked up as creates.
				if err := w.addTree(path, false); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
				w.queueExisting(path)
				return true
			}
			return false
		}
	}

	if !w.wanted(path) {
		return false
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()
	return true
}

func (w *Watcher) queueExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.wanted(path) {
			w.pendingMu.Lock()
			w.pending[path] |= fsnotify.Create
			w.pendingMu.Unlock()
		}
		return nil
	})
}

// flush turns pending changes into events, dropping files whose content is
// unchanged since the last report.
func (w *Watcher) flush() []Event {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var batch []Event
	for path := range pending {
		event := Event{AbsPath: path, Path: w.rel(path)}

		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			if w.deleteHash(path) {
				event.Op = OpDelete
				batch = append(batch, event)
			}
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to read changed document", "path", event.Path, "error", err)
			continue
		}

		hash := parser.ContentHash(content)
		old, known := w.swapHash(path, hash)
		switch {
		case !known:
			event.Op = OpCreate
		case old != hash:
			event.Op = OpModify
		default:
			continue
		}
		batch = append(batch, event)
	}

	slices.SortFunc(batch, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })
	return batch
}

func (w *Watcher) send(batch []Event) {
	select {
	case w.batches <- batch:
		w.logger.Debug("Document changes detected", "files", len(batch))
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("Batch channel full, dropping changes",
			"files", len(batch),
			"total_dropped", dropped)
	}
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) swapHash(path, hash string) (string, bool) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	old, ok := w.hashes[path]
	w.hashes[path] = hash
	return old, ok
}

func (w *Watcher) deleteHash(path string) bool {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	_, ok := w.hashes[path]
	delete(w.hashes, path)
	return ok
}
