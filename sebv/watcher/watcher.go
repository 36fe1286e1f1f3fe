// Package watcher re-runs a callback when files below an installation
// change. Events are debounced into batches and the callback runs serially
// on the watch loop.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/common"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

// Config holds configuration for the watcher
type Config struct {
	// DebounceDelay is the quiet period before a batch is delivered
	DebounceDelay time.Duration
	// MaxDebounceDelay bounds how long a busy directory can postpone a batch
	MaxDebounceDelay time.Duration
	// IgnorePatterns drops events for matching paths, gitignore syntax
	IgnorePatterns []string
}

// DefaultConfig returns a default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceDelay:    750 * time.Millisecond,
		MaxDebounceDelay: 5 * time.Second,
	}
}

// Handler receives each debounced batch.
type Handler func(ctx context.Context, batch []Event)

// Watcher watches a directory tree with fsnotify.
type Watcher struct {
	root    string
	config  Config
	ignore  *ignore.GitIgnore
	fs      *fsnotify.Watcher
	paths   *common.PathUtils
	logger  *slog.Logger
	watched map[string]bool
}

// New creates a watcher for root. Run starts it.
func New(root string, config Config) (*Watcher, error) {
	if err := common.NewValidationUtils().ValidateDirectoryExists(root); err != nil {
		return nil, common.NewBuildError("watch", root, err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultConfig().DebounceDelay
	}
	if config.MaxDebounceDelay <= 0 {
		config.MaxDebounceDelay = DefaultConfig().MaxDebounceDelay
	}

	paths := common.NewPathUtils()
	w := &Watcher{
		root:    paths.NormalizePath(root),
		config:  config,
		fs:      fsWatcher,
		paths:   paths,
		logger:  slog.Default(),
		watched: make(map[string]bool),
	}
	if len(config.IgnorePatterns) > 0 {
		w.ignore = ignore.CompileIgnoreLines(config.IgnorePatterns...)
	}
	return w, nil
}

// WithLogger sets the logger used for diagnostics.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	w.logger = logger
	return w
}

// Close releases the fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// WatchedDirectories returns the number of directories being watched.
func (w *Watcher) WatchedDirectories() int {
	return len(w.watched)
}

// Run watches until ctx is done, calling handle for every batch. It returns
// nil on cancellation.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	if err := w.addRecursive(w.root); err != nil {
		return common.NewBuildError("watch", w.root, err)
	}
	w.logger.Info("Watcher started", "root", w.root, "directories", len(w.watched))

	debouncer := NewDebouncer(w.config.DebounceDelay, w.config.MaxDebounceDelay)
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			converted, ok := convertEvent(event, time.Now())
			if !ok || w.ignored(converted.Path) {
				continue
			}
			if converted.Type == EventCreate {
				w.watchIfDirectory(converted.Path)
			}
			if converted.Type == EventRemove || converted.Type == EventRename {
				delete(w.watched, converted.Path)
			}
			debouncer.Add(converted)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("Event queue overflowed, forcing a re-run")
				debouncer.Add(Event{Type: EventWrite, Path: w.root, Timestamp: time.Now()})
				continue
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-debouncer.Ready():
			batch := debouncer.Flush()
			w.logger.Debug("Delivering change batch", "events", len(batch))
			handle(ctx, batch)
		}
	}
}

func (w *Watcher) ignored(path string) bool {
	if w.ignore == nil {
		return false
	}
	rel, err := w.paths.RelativeSlashPath(w.root, path)
	if err != nil || rel == "" {
		return false
	}
	if w.ignore.MatchesPath(rel) {
		return true
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return w.ignore.MatchesPath(rel + "/")
	}
	return false
}

func (w *Watcher) watchIfDirectory(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addRecursive(path); err != nil {
		w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
	}
}

// addRecursive adds a path and all its subdirectories to the watcher
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("Skipping unreadable directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return fs.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			if path == root {
				return fmt.Errorf("failed to add root path %s: %w", path, err)
			}
			w.logger.Warn("Failed to add subdirectory to watcher", "path", path, "error", err)
			return nil
		}
		w.watched[path] = true
		return nil
	})
}
