package watch

import (
	"sync"

	"github.com/rjeczalik/notify"
)

type notifyBackend struct {
	raw  chan notify.EventInfo
	done chan struct{}
	wg   sync.WaitGroup
}

func newNotifyBackend() *notifyBackend {
	return &notifyBackend{done: make(chan struct{})}
}

func (b *notifyBackend) Watch(dir string, out chan<- Event) error {
	b.raw = make(chan notify.EventInfo, eventBufferSize)

	// no "/..." suffix: the mirrored directories are flat
	if err := notify.Watch(dir, b.raw, notify.Create, notify.Remove, notify.Write, notify.Rename); err != nil {
		return err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.done:
				return
			case ei := <-b.raw:
				ev := Event{Path: ei.Path(), Flags: notifyFlags(ei.Event())}
				select {
				case out <- ev:
				case <-b.done:
					return
				}
			}
		}
	}()

	return nil
}

func (b *notifyBackend) Close() error {
	if b.raw != nil {
		notify.Stop(b.raw)
	}
	close(b.done)
	b.wg.Wait()
	return nil
}

func notifyFlags(e notify.Event) Flags {
	var f Flags
	if e&notify.Create != 0 {
		f |= FlagCreated
	}
	if e&notify.Remove != 0 {
		f |= FlagRemoved
	}
	if e&notify.Write != 0 {
		f |= FlagModified
	}
	if e&notify.Rename != 0 {
		f |= FlagRenamed
	}
	return f
}
