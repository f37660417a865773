package config

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/polyscan/internal/debug"
)

// Watcher notifies on changes to the reloadable data directory
// (language tables, pattern catalogs) so the engine can replace its
// tables without a rebuild.
type Watcher struct {
	inner   *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	onApply func(path string)
}

// Watch starts watching dir; onApply runs for every created or
// modified data file (.toml, .kdl, .json).
func Watch(dir string, onApply func(path string)) (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := inner.Add(dir); err != nil {
		inner.Close()
		return nil, err
	}

	w := &Watcher{inner: inner, done: make(chan struct{}), onApply: onApply}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isDataFile(event.Name) {
				continue
			}
			debug.Config("data file changed", "path", event.Name)
			w.onApply(event.Name)
		case err, ok := <-w.inner.Errors:
			if !ok {
				return
			}
			debug.Config("watch error", "error", err)
		}
	}
}

func isDataFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".kdl", ".json":
		return true
	}
	return false
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.inner.Close()
	w.wg.Wait()
	return err
}
