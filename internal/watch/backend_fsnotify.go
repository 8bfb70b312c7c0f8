package watch

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type fsnotifyBackend struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func newFSNotifyBackend() *fsnotifyBackend {
	return &fsnotifyBackend{done: make(chan struct{})}
}

func (b *fsnotifyBackend) Watch(dir string, out chan<- Event) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	b.watcher = watcher

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				ev := Event{Path: event.Name, Flags: fsnotifyFlags(event.Op)}
				select {
				case out <- ev:
				case <-b.done:
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("fsnotify error", "dir", dir, "error", err)
			}
		}
	}()

	return nil
}

func (b *fsnotifyBackend) Close() error {
	close(b.done)
	var err error
	if b.watcher != nil {
		err = b.watcher.Close()
	}
	b.wg.Wait()
	return err
}

func fsnotifyFlags(op fsnotify.Op) Flags {
	var f Flags
	if op.Has(fsnotify.Create) {
		f |= FlagCreated
	}
	if op.Has(fsnotify.Remove) {
		f |= FlagRemoved
	}
	if op.Has(fsnotify.Write) {
		f |= FlagModified
	}
	if op.Has(fsnotify.Rename) {
		f |= FlagRenamed
	}
	if op.Has(fsnotify.Chmod) {
		f |= FlagAttrib
	}
	return f
}
