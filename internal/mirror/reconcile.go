package mirror

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/openmined/snipsync/internal/utils"
)

// ReconcileResult lists the names a seed pass copied, skipped and failed on.
type ReconcileResult struct {
	Copied  []string
	Skipped []string
	Failed  []string
}

type ReconcileOption func(*Reconciler)

func WithReconcileRecorder(r Recorder) ReconcileOption {
	return func(rc *Reconciler) {
		if r != nil {
			rc.recorder = r
		}
	}
}

// Reconciler performs the one-shot initial copies between the two directories
// before live mirroring starts. Names seeded in one direction are not seeded
// back in the other direction by the same Reconciler.
type Reconciler struct {
	primary  *side
	mirror   *side
	handled  mapset.Set[string]
	recorder Recorder
}

func NewReconciler(primary, mirror WatchedDirectory, opts ...ReconcileOption) *Reconciler {
	p, m := newSidePair(primary, mirror)
	r := &Reconciler{
		primary:  p,
		mirror:   m,
		handled:  mapset.NewThreadUnsafeSet[string](),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeedMirrorFromPrimary copies matching primary files into the mirror. Files
// already present in the mirror are replaced only when overwrite is set.
func (r *Reconciler) SeedMirrorFromPrimary(overwrite bool) (*ReconcileResult, error) {
	return r.seed(r.primary, overwrite)
}

// SeedPrimaryFromMirror copies matching mirror files into the primary,
// skipping names SeedMirrorFromPrimary already handled.
func (r *Reconciler) SeedPrimaryFromMirror(overwrite bool) (*ReconcileResult, error) {
	return r.seed(r.mirror, overwrite)
}

func (r *Reconciler) seed(from *side, overwrite bool) (*ReconcileResult, error) {
	to := from.peer
	slog.Info("reconcile start", "from", from.id, "to", to.id, "overwrite", overwrite)

	names, err := listMatching(from.dir)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for _, name := range names {
		if r.handled.Contains(name) {
			continue
		}
		r.handled.Add(name)

		activity := r.seedOne(from, to, name, overwrite)
		switch activity.Action {
		case ActionCopied, ActionReplaced:
			result.Copied = append(result.Copied, name)
		case ActionFailed:
			result.Failed = append(result.Failed, name)
		default:
			result.Skipped = append(result.Skipped, name)
		}
		r.recorder.Record(activity)
	}

	slog.Info("reconcile done", "from", from.id, "to", to.id,
		"copied", len(result.Copied), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

func (r *Reconciler) seedOne(from, to *side, name string, overwrite bool) Activity {
	source, target := from.dir.Join(name), to.dir.Join(name)
	activity := Activity{
		Time:   time.Now(),
		Phase:  PhaseReconcile,
		Origin: from.id,
		Name:   name,
		Kind:   KindCreated,
		Action: ActionCopied,
	}

	if pathExists(target) {
		if !overwrite {
			slog.Info("file exists at target, skipping (use force to overwrite)", "side", to.id, "name", name)
			activity.Action = ActionSkipped
			return activity
		}
		if err := utils.RemoveFile(target); err != nil {
			activity.Action = ActionFailed
			activity.Err = &ActionError{Op: "delete", Path: target, Err: err}
			slog.Error("reconcile failed", "name", name, "error", activity.Err)
			return activity
		}
		activity.Action = ActionReplaced
	}

	n, err := utils.CopyFile(source, target)
	if err != nil {
		activity.Action = ActionFailed
		activity.Err = &ActionError{Op: "copy", Path: source, Err: err}
		slog.Error("reconcile failed", "name", name, "error", activity.Err)
		return activity
	}

	activity.Bytes = n
	slog.Info("reconcile copy", "to", to.id, "name", name, "size", humanize.Bytes(uint64(n)))
	return activity
}

// listMatching returns the sorted names of regular files in dir that pass its
// filter.
func listMatching(dir WatchedDirectory) ([]string, error) {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReconciliationList, dir.Path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !dir.Filter.Match(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}
