package workspace

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/snipsync/internal/mirror"
	"github.com/openmined/snipsync/internal/utils"
)

const (
	logsDir     = "logs"
	locksDir    = "locks"
	lockPrefix  = "snipsync-"
	lockSuffix  = ".lock"
	lockKeySize = 12
)

var (
	ErrWorkspaceLocked = errors.New("directory pair is already mirrored by another process")
)

// Workspace is the directory pair being mirrored together with the state
// directory holding logs, the journal and lock files.
type Workspace struct {
	PrimaryDir string
	MirrorDir  string
	StateDir   string
	LogsDir    string
	LocksDir   string

	flock *flock.Flock
}

func NewWorkspace(primaryDir, mirrorDir, stateDir string) (*Workspace, error) {
	primary, err := utils.ResolvePath(primaryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", primaryDir, err)
	}
	mirrorPath, err := utils.ResolvePath(mirrorDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", mirrorDir, err)
	}
	state, err := utils.ResolvePath(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", stateDir, err)
	}

	return &Workspace{
		PrimaryDir: primary,
		MirrorDir:  mirrorPath,
		StateDir:   state,
		LogsDir:    filepath.Join(state, logsDir),
		LocksDir:   filepath.Join(state, locksDir),
	}, nil
}

// Setup checks the primary directory, creates the mirror directory when
// allowed, prepares the state directory and takes the pair lock.
func (w *Workspace) Setup(createMirror bool) error {
	if !utils.DirExists(w.PrimaryDir) {
		return fmt.Errorf("%w: source directory %q does not exist", mirror.ErrConfiguration, w.PrimaryDir)
	}

	if !utils.DirExists(w.MirrorDir) {
		if _, err := os.Stat(w.MirrorDir); err == nil {
			return fmt.Errorf("%w: output path %q is not a directory", mirror.ErrConfiguration, w.MirrorDir)
		}
		if !createMirror {
			return fmt.Errorf("%w: output directory %q does not exist, use --create-target to create it", mirror.ErrConfiguration, w.MirrorDir)
		}
		slog.Info("creating output directory", "path", w.MirrorDir)
		if err := os.MkdirAll(w.MirrorDir, 0o755); err != nil {
			return fmt.Errorf("%w: failed to create output directory %q: %w", mirror.ErrConfiguration, w.MirrorDir, err)
		}
	}

	w.PrimaryDir = utils.CanonicalDir(w.PrimaryDir)
	w.MirrorDir = utils.CanonicalDir(w.MirrorDir)
	if w.PrimaryDir == w.MirrorDir {
		return fmt.Errorf("%w: source and output are the same directory %q", mirror.ErrConfiguration, w.PrimaryDir)
	}

	for _, dir := range []string{w.StateDir, w.LogsDir, w.LocksDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "primary", w.PrimaryDir, "mirror", w.MirrorDir, "state", w.StateDir)
	return nil
}

// LockPath is the lock file for this directory pair.
func (w *Workspace) LockPath() string {
	sum := sha1.Sum([]byte(w.PrimaryDir + "|" + w.MirrorDir))
	key := hex.EncodeToString(sum[:])[:lockKeySize]
	return filepath.Join(w.LocksDir, lockPrefix+key+lockSuffix)
}

func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.LocksDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.LocksDir, err)
	}

	if w.flock == nil {
		w.flock = flock.New(w.LockPath())
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the pair, then don't delete the lock file
	if w.flock == nil || !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}
