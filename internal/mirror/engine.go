package mirror

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/snipsync/internal/utils"
	"github.com/openmined/snipsync/internal/watch"
)

// EventSource is the push-based producer the engine consumes. watch.Source
// is the production implementation.
type EventSource interface {
	Subscribe(h watch.Handler)
	Start() error
	Stop()
}

// SourceFactory builds the event source for one watched directory.
type SourceFactory func(dir WatchedDirectory) EventSource

func WatchSourceFactory(opts ...watch.Option) SourceFactory {
	return func(dir WatchedDirectory) EventSource {
		return watch.NewSource(dir.Path, dir.Filter, opts...)
	}
}

type EngineOption func(*Engine)

func WithSourceFactory(factory SourceFactory) EngineOption {
	return func(e *Engine) {
		e.factory = factory
	}
}

func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Engine mirrors changes between a primary and a mirror directory. One mutex
// serializes both sides' echo sets and every filesystem mutation it performs.
type Engine struct {
	mu       sync.Mutex
	primary  *side
	mirror   *side
	factory  SourceFactory
	recorder Recorder
	stats    Stats
	started  bool
	stopped  bool
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		factory:  WatchSourceFactory(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start validates both directories, then starts watching them. An engine can
// be started once.
func (e *Engine) Start(primaryDir, mirrorDir string, filter *watch.Filter) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return ErrEngineStarted
	}

	if !utils.DirExists(primaryDir) {
		return fmt.Errorf("%w: primary directory %q does not exist", ErrConfiguration, primaryDir)
	}
	if !utils.DirExists(mirrorDir) {
		return fmt.Errorf("%w: mirror directory %q does not exist", ErrConfiguration, mirrorDir)
	}

	e.primary, e.mirror = newSidePair(
		WatchedDirectory{Path: utils.CanonicalDir(primaryDir), Filter: filter},
		WatchedDirectory{Path: utils.CanonicalDir(mirrorDir), Filter: filter},
	)

	for _, s := range []*side{e.primary, e.mirror} {
		s.source = e.factory(s.dir)
		s.source.Subscribe(e.handler(s))
	}

	if err := e.primary.source.Start(); err != nil {
		return fmt.Errorf("start %s watch: %w", Primary, err)
	}
	if err := e.mirror.source.Start(); err != nil {
		e.primary.source.Stop()
		return fmt.Errorf("start %s watch: %w", Mirror, err)
	}

	e.started = true
	slog.Info("sync engine start", "primary", e.primary.dir.Path, "mirror", e.mirror.dir.Path, "filter", filter.Pattern())
	return nil
}

// Stop stops both event sources. Events still in flight are dropped.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	// sources wait for their delivery goroutine, which may be blocked on e.mu
	e.primary.source.Stop()
	e.mirror.source.Stop()

	pending := e.PendingEchoes()
	for s, names := range pending {
		if len(names) > 0 {
			slog.Warn("sync engine stopped with unmatched echoes", "side", s, "names", names)
		}
	}
	slog.Info("sync engine stop", "stats", e.Stats())
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// PendingEchoes returns, per side, the names still waiting for their echo.
func (e *Engine) PendingEchoes() map[Side][]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := make(map[Side][]string, 2)
	for _, s := range []*side{e.primary, e.mirror} {
		if s != nil {
			pending[s.id] = s.expected.pending()
		}
	}
	return pending
}

func (e *Engine) handler(s *side) watch.Handler {
	return func(batch []watch.Event) {
		for _, ev := range batch {
			e.onEvent(s, ClassifyEvent(ev))
		}
	}
}

func (e *Engine) onEvent(s *side, ev ChangeEvent) {
	activity, ok := e.handle(s, ev)
	if !ok {
		return
	}
	e.recorder.Record(activity)
}

func (e *Engine) handle(s *side, ev ChangeEvent) (Activity, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return Activity{}, false
	}

	name := filepath.Base(ev.Path)
	activity := Activity{
		Time:   time.Now(),
		Phase:  PhaseWatch,
		Origin: s.id,
		Name:   name,
		Kind:   ev.Kind,
	}
	defer func() { e.stats.count(activity) }()

	if ev.Kind == KindUnknown {
		activity.Action = ActionIgnored
		return activity, true
	}

	if s.expected.consume(name) {
		slog.Debug("echo suppressed", "side", s.id, "name", name, "kind", ev.Kind)
		activity.Action = ActionEcho
		return activity, true
	}

	target := s.peer
	slog.Info("sync", "from", s.id, "to", target.id, "name", name, "kind", ev.Kind)

	added := target.expected.expect(name)
	out := applyChange(ev.Kind, s.dir.Join(name), target.dir.Join(name))
	if !out.mutated && added {
		// the entry is kept only when the peer was actually written; no write, no echo
		target.expected.withdraw(name)
	}

	activity.Action = out.action
	activity.Bytes = out.bytes
	activity.Err = out.err

	switch {
	case out.err != nil:
		slog.Error("sync failed", "from", s.id, "name", name, "kind", ev.Kind, "error", out.err)
	case out.action == ActionSkipped:
		slog.Info("file exists at target, skipping", "side", target.id, "name", name)
	case out.action == ActionCopied || out.action == ActionReplaced:
		slog.Info("sync done", "action", out.action, "name", name, "size", humanize.Bytes(uint64(out.bytes)))
	default:
		slog.Info("sync done", "action", out.action, "name", name)
	}
	return activity, true
}

type outcome struct {
	action  Action
	bytes   int64
	mutated bool
	err     error
}

func (o outcome) fail(op, path string, err error) outcome {
	o.action = ActionFailed
	o.err = &ActionError{Op: op, Path: path, Err: err}
	return o
}

// applyChange performs the mirrored filesystem action for kind. source is the
// file on the side that changed, target its counterpart on the other side.
func applyChange(kind Kind, source, target string) outcome {
	var out outcome

	switch kind {
	case KindCreated:
		if pathExists(target) {
			out.action = ActionSkipped
			return out
		}
		n, err := utils.CopyFile(source, target)
		if err != nil {
			out.mutated = pathExists(target)
			return out.fail("copy", source, err)
		}
		out.action, out.bytes, out.mutated = ActionCopied, n, true

	case KindRemoved:
		if !pathExists(target) {
			out.action = ActionNone
			return out
		}
		if err := utils.RemoveFile(target); err != nil {
			return out.fail("delete", target, err)
		}
		out.action, out.mutated = ActionDeleted, true

	case KindModified:
		replaced := pathExists(target)
		if replaced {
			if err := utils.RemoveFile(target); err != nil {
				return out.fail("delete", target, err)
			}
			out.mutated = true
		}
		n, err := utils.CopyFile(source, target)
		if err != nil {
			out.mutated = out.mutated || pathExists(target)
			return out.fail("copy", source, err)
		}
		out.action, out.bytes, out.mutated = ActionCopied, n, true
		if replaced {
			out.action = ActionReplaced
		}

	case KindRenamed:
		deleted := false
		if pathExists(target) {
			if err := utils.RemoveFile(target); err != nil {
				return out.fail("delete", target, err)
			}
			deleted, out.mutated = true, true
		}
		// moving a file to the trash is also reported as a rename, so the
		// source may be gone
		if !pathExists(source) {
			out.action = ActionNone
			if deleted {
				out.action = ActionDeleted
			}
			return out
		}
		n, err := utils.CopyFile(source, target)
		if err != nil {
			out.mutated = out.mutated || pathExists(target)
			return out.fail("copy", source, err)
		}
		out.action, out.bytes, out.mutated = ActionCopied, n, true
		if deleted {
			out.action = ActionReplaced
		}

	default:
		out.action = ActionIgnored
	}

	return out
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
