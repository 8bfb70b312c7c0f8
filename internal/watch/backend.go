package watch

import (
	"fmt"
	"strings"
)

const eventBufferSize = 64

// Backend names an OS notification implementation.
type Backend string

const (
	BackendNotify   Backend = "notify"
	BackendFSNotify Backend = "fsnotify"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BackendNotify:
		return BackendNotify, nil
	case BackendFSNotify:
		return BackendFSNotify, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// backend watches a single directory, non-recursively, and forwards every raw
// notification to out until Close is called.
type backend interface {
	Watch(dir string, out chan<- Event) error
	Close() error
}

func newBackend(b Backend) backend {
	if b == BackendFSNotify {
		return newFSNotifyBackend()
	}
	return newNotifyBackend()
}
