// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patterns

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
)

// RegistryFile is the on-disk YAML shape of a pattern pack.
type RegistryFile struct {
	Patterns []Definition `yaml:"patterns"`
}

// LoadFile reads pattern definitions from a YAML registry file.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("patterns: read registry: %w", err)
	}
	var file RegistryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("patterns: parse registry %s: %w", path, err)
	}
	return file.Patterns, nil
}

// Watcher hot-reloads a registry file into a matcher when it changes.
type Watcher struct {
	matcher *Matcher
	path    string

	fsw      *fsnotify.Watcher
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	logger *log.Entry
}

// NewWatcher starts watching path and applies changes to matcher. The file
// must exist and parse at startup.
func NewWatcher(matcher *Matcher, path string) (*Watcher, error) {
	defs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := matcher.Register(def); err != nil {
			return nil, err
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("patterns: watcher: %w", err)
	}
	// Watch the directory: editors replace files rather than write in place.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("patterns: watch %s: %w", path, err)
	}

	w := &Watcher{
		matcher: matcher,
		path:    path,
		fsw:     fsw,
		stopCh:  make(chan struct{}),
		logger:  log.WithField("component", "patterns"),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of write events.
			pending = time.After(200 * time.Millisecond)
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("registry watch error: %v", err)
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	defs, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warnf("registry reload skipped: %v", err)
		return
	}
	applied := 0
	for _, def := range defs {
		if err := w.matcher.Register(def); err != nil {
			w.logger.Warnf("registry reload: %v", err)
			continue
		}
		applied++
	}
	w.logger.Infof("reloaded pattern registry %s (%d patterns)", w.path, applied)
}

// Close stops the watcher.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.fsw.Close()
	})
	w.wg.Wait()
}
