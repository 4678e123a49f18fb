// Package watcher signals when the indexed document changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a single document file and emits a signal when its
// content changes, debounced so editors that write in several bursts trigger
// one re-index.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

func New() (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{watcher: w, debounce: 500 * time.Millisecond}, nil
}

// Watch monitors the file at path until ctx is cancelled. Each debounced
// write/create of the file produces one value on the returned channel.
//
// The parent directory is watched rather than the file itself: many editors
// replace files on save, which would silently drop a direct watch.
func (w *FileWatcher) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return nil, err
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(w.debounce)
					timerC = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(w.debounce)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				select {
				case changes <- struct{}{}:
				default:
				}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return changes, nil
}

// Stop closes the underlying watcher.
func (w *FileWatcher) Stop() error {
	return w.watcher.Close()
}
