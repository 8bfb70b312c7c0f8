package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/snipsync/internal/config"
	"github.com/openmined/snipsync/internal/journal"
	"github.com/openmined/snipsync/internal/mirror"
	"github.com/openmined/snipsync/internal/watch"
	"github.com/openmined/snipsync/internal/workspace"
	"golang.org/x/sync/errgroup"
)

const statsInterval = time.Minute

// Daemon runs one mirroring session: workspace setup, initial reconciliation
// and the live engine until the context is cancelled.
type Daemon struct {
	cfg       *config.Config
	workspace *workspace.Workspace
	journal   *journal.Journal
	engine    *mirror.Engine
	ready     chan struct{}
}

func New(cfg *config.Config) (*Daemon, error) {
	ws, err := workspace.NewWorkspace(cfg.PrimaryDir, cfg.MirrorDir, cfg.StateDir)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:       cfg,
		workspace: ws,
		ready:     make(chan struct{}),
	}, nil
}

// Ready is closed once both directories are being watched.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("snipsync daemon start")

	if err := d.workspace.Setup(d.cfg.CreateMirror); err != nil {
		return err
	}
	defer func() {
		if err := d.workspace.Unlock(); err != nil {
			slog.Warn("workspace unlock", "error", err)
		}
	}()

	recorder := d.openJournal()
	defer d.closeJournal()

	filter, err := d.cfg.NameFilter()
	if err != nil {
		return fmt.Errorf("%w: %w", mirror.ErrConfiguration, err)
	}
	primary := mirror.WatchedDirectory{Path: d.workspace.PrimaryDir, Filter: filter}
	mirrorDir := mirror.WatchedDirectory{Path: d.workspace.MirrorDir, Filter: filter}

	if err := d.reconcile(primary, mirrorDir, recorder); err != nil {
		return err
	}

	d.engine = mirror.NewEngine(
		mirror.WithSourceFactory(mirror.WatchSourceFactory(
			watch.WithLatency(d.cfg.Latency),
			watch.WithBackend(d.cfg.WatchBackend()),
		)),
		mirror.WithRecorder(recorder),
	)

	if err := d.engine.Start(primary.Path, mirrorDir.Path, filter); err != nil {
		return fmt.Errorf("failed to start sync engine: %w", err)
	}
	close(d.ready)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
				slog.Debug("sync engine stats", "stats", d.engine.Stats())
			}
		}
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received interrupt signal, stopping daemon")
		d.engine.Stop()
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("snipsync daemon failure", "error", err)
		return err
	}

	slog.Info("snipsync daemon stopped", "stats", d.engine.Stats())
	return nil
}

func (d *Daemon) reconcile(primary, mirrorDir mirror.WatchedDirectory, recorder mirror.Recorder) error {
	if !d.cfg.SeedMirror && !d.cfg.SeedPrimary {
		return nil
	}

	r := mirror.NewReconciler(primary, mirrorDir, mirror.WithReconcileRecorder(recorder))
	if d.cfg.SeedMirror {
		if _, err := r.SeedMirrorFromPrimary(d.cfg.Force); err != nil {
			return err
		}
	}
	if d.cfg.SeedPrimary {
		if _, err := r.SeedPrimaryFromMirror(d.cfg.Force); err != nil {
			return err
		}
	}
	return nil
}

// openJournal returns the recorder to use. A journal that cannot be opened
// is logged and replaced by no recording at all.
func (d *Daemon) openJournal() mirror.Recorder {
	if !d.cfg.Journal {
		return nil
	}

	j := journal.NewJournal(d.cfg.JournalPath())
	if err := j.Open(); err != nil {
		slog.Warn("journal disabled", "path", d.cfg.JournalPath(), "error", err)
		return nil
	}
	d.journal = j
	return j
}

func (d *Daemon) closeJournal() {
	if d.journal == nil {
		return
	}
	if err := d.journal.Close(); err != nil {
		slog.Warn("journal close", "error", err)
	}
}
