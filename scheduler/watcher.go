package scheduler

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/giygas/spl-labels-api/logging"
)

// watcher feeds newly created or rewritten .xml files of a directory to a handler
type watcher struct {
	fs     *fsnotify.Watcher
	handle func(path string)
	wg     sync.WaitGroup
}

func newWatcher(dir string, handle func(path string)) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &watcher{fs: fsw, handle: handle}
	w.wg.Add(1)
	go w.loop()
	logging.Info("Watching data directory", "dir", dir)
	return w, nil
}

func (w *watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".xml") {
				continue
			}
			w.handle(event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warn("Data directory watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for the event loop to exit
func (w *watcher) Close() {
	if err := w.fs.Close(); err != nil {
		logging.Warn("Failed to close data directory watcher", "error", err)
	}
	w.wg.Wait()
}
