package registry

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads worker definitions when the definition file changes,
// so edits take effect without a restart. Reload replaces definitions via
// Replace, which keeps availability semantics (fresh workers start
// available with a clean failure count).
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the given worker-definition file. On every write
// or create event for that file, reload is invoked. Errors from reload
// are logged and the watch continues; a bad intermediate save must not
// kill the watcher.
func Watch(path string, reload func() error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors often replace files via rename, which
	// drops a watch placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	target := filepath.Clean(path)

	go func() {
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := reload(); err != nil {
					log.Printf("[registry] reload %s: %v", path, err)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Printf("[registry] watch error: %v", err)
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
