package watch

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openmined/snipsync/internal/utils"
)

// DefaultLatency is the coalescing window: changes seen for the same path
// within it are folded into a single event.
const DefaultLatency = 500 * time.Millisecond

type Option func(*Source)

func WithLatency(latency time.Duration) Option {
	return func(s *Source) {
		if latency >= 0 {
			s.latency = latency
		}
	}
}

func WithBackend(b Backend) Option {
	return func(s *Source) {
		s.backendName = b
	}
}

// Source delivers coalesced change batches for one directory to a single
// subscriber. A Source cannot be restarted once stopped.
type Source struct {
	dir         string
	filter      *Filter
	latency     time.Duration
	backendName Backend
	backend     backend

	handler Handler
	raw     chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewSource(dir string, filter *Filter, opts ...Option) *Source {
	s := &Source{
		dir:         dir,
		filter:      filter,
		latency:     DefaultLatency,
		backendName: BackendNotify,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Dir() string {
	return s.dir
}

// Subscribe registers the consumer, replacing any previous one.
func (s *Source) Subscribe(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Unsubscribe drops the consumer; batches flushed afterwards are discarded.
func (s *Source) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = nil
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.done != nil {
		return ErrSourceRunning
	}
	if s.handler == nil {
		return ErrNoSubscriber
	}
	if !utils.DirExists(s.dir) {
		return fmt.Errorf("%w: %s: %w", ErrWatchRegistration, s.dir, ErrDirNotExist)
	}

	s.raw = make(chan Event, eventBufferSize)
	s.done = make(chan struct{})
	s.backend = newBackend(s.backendName)
	if err := s.backend.Watch(s.dir, s.raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWatchRegistration, s.dir, err)
	}

	slog.Debug("event source start", "dir", s.dir, "filter", s.filter.Pattern(), "backend", s.backendName, "latency", s.latency)

	s.running = true
	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop unregisters from the OS and waits for the delivery goroutine to exit.
// Changes still sitting in the coalescing window are dropped.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	if err := s.backend.Close(); err != nil {
		slog.Warn("event source close", "dir", s.dir, "error", err)
	}
	s.wg.Wait()
	slog.Debug("event source stopped", "dir", s.dir)
}

func (s *Source) run() {
	defer s.wg.Done()

	pending := newCoalescer()
	var timer *time.Timer
	var flush <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-s.done:
			if n := pending.len(); n > 0 {
				slog.Debug("event source dropping pending events", "dir", s.dir, "count", n)
			}
			return

		case ev := <-s.raw:
			if !s.filter.Match(ev.Path) {
				continue
			}
			pending.add(ev)
			if flush == nil {
				timer = time.NewTimer(s.latency)
				flush = timer.C
			}

		case <-flush:
			flush = nil
			s.deliver(pending.drain())
		}
	}
}

func (s *Source) deliver(batch []Event) {
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	if h == nil {
		slog.Debug("event source has no subscriber, dropping batch", "dir", s.dir, "count", len(batch))
		return
	}
	h(batch)
}

// coalescer folds events per path, keeping the order in which paths were
// first seen within the window.
type coalescer struct {
	order []string
	flags map[string]Flags
}

func newCoalescer() *coalescer {
	return &coalescer{flags: make(map[string]Flags)}
}

func (c *coalescer) add(ev Event) {
	if _, ok := c.flags[ev.Path]; !ok {
		c.order = append(c.order, ev.Path)
	}
	c.flags[ev.Path] |= ev.Flags
}

func (c *coalescer) len() int {
	return len(c.order)
}

func (c *coalescer) drain() []Event {
	batch := make([]Event, 0, len(c.order))
	for _, path := range c.order {
		batch = append(batch, Event{Path: path, Flags: c.flags[path]})
	}
	c.order = c.order[:0]
	clear(c.flags)
	return batch
}
