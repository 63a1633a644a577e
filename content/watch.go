package content

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates caches when index files change on disk outside the
// process (manual edits, deploy scripts). The files are the source of
// truth, so a stale cache after an out-of-band edit is a bug.
type Watcher struct {
	fw   *fsnotify.Watcher
	done chan struct{}
}

// WatchFiles watches the parent directories of paths and calls onChange
// with the affected path whenever one of the named files is written,
// created, or removed. Directories are watched rather than the files
// themselves so atomic rename-into-place edits are still seen.
func WatchFiles(paths []string, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watched := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		watched[filepath.Clean(p)] = struct{}{}
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	w := &Watcher{fw: fw, done: make(chan struct{})}
	go func() {
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if _, ok := watched[filepath.Clean(ev.Name)]; ok {
					onChange(ev.Name)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Printf("content: watch: %v", err)
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
	return w.fw.Close()
}
