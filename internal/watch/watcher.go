// Package watch reruns tests when Ruby sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"rtp/internal/config"
)

// Watcher calls a handler once per burst of changes to .rb files under its
// roots. Handlers never overlap.
type Watcher struct {
	roots    []string
	skipDirs map[string]bool
	debounce time.Duration
	ready    chan struct{}

	dirs  []string
	files map[string]bool
}

// New creates a Watcher over roots. Directories are watched recursively; a
// file root reports changes to that file only.
func New(cfg *config.Config, roots ...string) *Watcher {
	skip := make(map[string]bool)
	for _, dir := range cfg.PathsToIgnore {
		skip[dir] = true
	}
	debounce := time.Duration(cfg.WatchDebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = time.Duration(config.DefaultWatchDebounceMs) * time.Millisecond
	}
	return &Watcher{
		roots:    roots,
		skipDirs: skip,
		debounce: debounce,
		ready:    make(chan struct{}),
		files:    make(map[string]bool),
	}
}

// Ready is closed once every root is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled, calling onChange with the last changed
// file of each debounced burst.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, path string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	for _, root := range w.roots {
		if err := w.addRoot(fw, root); err != nil {
			return err
		}
	}
	close(w.ready)

	var timer *time.Timer
	var fire <-chan time.Time
	var pending string

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.watched(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
					}
					continue
				}
			}
			if !relevant(event) {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			pending = event.Name
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			onChange(ctx, pending)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// addRoot watches a directory tree, or the directory holding a single file.
func (w *Watcher) addRoot(fw *fsnotify.Watcher, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if info.IsDir() {
		w.dirs = append(w.dirs, abs)
		return w.addTree(fw, abs)
	}

	w.files[abs] = true
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	return nil
}

// watched reports whether path is a file root or lies under a directory root.
func (w *Watcher) watched(path string) bool {
	path = filepath.Clean(path)
	if w.files[path] {
		return true
	}
	for _, dir := range w.dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || w.skipDirs[name]) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func relevant(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".rb" {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
