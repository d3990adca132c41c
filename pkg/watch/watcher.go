// Package watch monitors a directory of EUR-Lex HTML documents and
// re-parses files as they appear or change, with debouncing so that a burst
// of writes to one file triggers a single parse.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/lexparse/pkg/parse"
)

// DefaultDebounce is the default quiet period after the last write to a
// file before it is parsed.
const DefaultDebounce = 500 * time.Millisecond

// Config holds configuration for a directory watcher.
type Config struct {
	// Dir is the directory to watch.
	Dir string `yaml:"dir"`

	// Patterns are glob patterns matched against file base names.
	// Default: *.html, *.htm.
	Patterns []string `yaml:"patterns"`

	// Debounce is the quiet period after the last write before parsing.
	Debounce time.Duration `yaml:"debounce"`

	// InitialScan parses all matching files already present when the
	// watcher starts.
	InitialScan bool `yaml:"initial_scan"`
}

// Event is delivered to the handler once per settled file change.
// Err is non-nil when the file could not be read or carries no
// recognizable document structure; Result is nil in that case.
type Event struct {
	Path   string
	Result *parse.Result
	Err    error
}

// Handler receives parse events. It is called from the watcher's own
// goroutine; slow handlers delay subsequent events.
type Handler func(Event)

// Watcher monitors one directory and re-parses changed documents.
type Watcher struct {
	config  Config
	handler Handler

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	stopOnce sync.Once

	pendingMu sync.Mutex
	pending   map[string]time.Time
}

// NewWatcher creates a watcher for the configured directory.
// The handler must not be nil.
func NewWatcher(config Config, handler Handler) (*Watcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("watch directory not configured")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if len(config.Patterns) == 0 {
		config.Patterns = []string{"*.html", "*.htm"}
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	return &Watcher{
		config:  config,
		handler: handler,
		pending: make(map[string]time.Time),
	}, nil
}

// Start begins watching. When InitialScan is set, files already present are
// parsed synchronously before the event loop starts.
func (w *Watcher) Start() error {
	info, err := os.Stat(w.config.Dir)
	if err != nil {
		return fmt.Errorf("checking watch directory %s: %w", w.config.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", w.config.Dir)
	}

	if w.config.InitialScan {
		if err := w.scanExisting(); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	w.watcher = watcher
	w.stopChan = make(chan struct{})

	go w.watchLoop()

	if err := watcher.Add(w.config.Dir); err != nil {
		w.watcher.Close()
		return fmt.Errorf("watching directory %s: %w", w.config.Dir, err)
	}
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.stopChan != nil {
			close(w.stopChan)
		}
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

// scanExisting parses every matching file already in the directory.
func (w *Watcher) scanExisting() error {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return fmt.Errorf("reading watch directory %s: %w", w.config.Dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !w.matchesPatterns(entry.Name()) {
			continue
		}
		w.parseFile(filepath.Join(w.config.Dir, entry.Name()))
	}
	return nil
}

// watchLoop handles file system events. Writes and creates are recorded as
// pending; a file is parsed once it has been quiet for the debounce period.
func (w *Watcher) watchLoop() {
	ticker := time.NewTicker(w.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matchesPatterns(filepath.Base(event.Name)) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Write == fsnotify.Write:
				w.markPending(event.Name)

			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				w.clearPending(event.Name)
			}

		case <-ticker.C:
			for _, path := range w.settled() {
				w.parseFile(path)
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) markPending(path string) {
	w.pendingMu.Lock()
	w.pending[path] = time.Now()
	w.pendingMu.Unlock()
}

func (w *Watcher) clearPending(path string) {
	w.pendingMu.Lock()
	delete(w.pending, path)
	w.pendingMu.Unlock()
}

// settled returns and removes the pending paths whose last event is at
// least the debounce period old.
func (w *Watcher) settled() []string {
	threshold := time.Now().Add(-w.config.Debounce)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	var paths []string
	for path, lastEvent := range w.pending {
		if lastEvent.Before(threshold) {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	return paths
}

// parseFile parses one document and delivers the outcome to the handler.
func (w *Watcher) parseFile(path string) {
	file, err := os.Open(path)
	if err != nil {
		w.handler(Event{Path: path, Err: fmt.Errorf("opening %s: %w", path, err)})
		return
	}
	defer file.Close()

	result, err := parse.ParseReader(file)
	if err != nil {
		w.handler(Event{Path: path, Err: err})
		return
	}
	w.handler(Event{Path: path, Result: result})
}

// matchesPatterns reports whether a file base name matches any configured
// glob pattern.
func (w *Watcher) matchesPatterns(baseName string) bool {
	for _, pattern := range w.config.Patterns {
		if matched, err := filepath.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}
