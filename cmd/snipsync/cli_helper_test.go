package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/openmined/snipsync/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// runCLI executes a fresh root command and returns its combined output and
// exit code.
func runCLI(t *testing.T, args ...string) (string, int) {
	t.Helper()

	logger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(logger) })

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	code := execute(t.Context(), cmd)
	return stripANSI(out.String()), code
}

// parsedRoot returns a root command with args parsed, ready for loadConfig.
func parsedRoot(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

type testDirs struct {
	primary string
	mirror  string
	state   string
	config  string
}

func newTestDirs(t *testing.T) testDirs {
	t.Helper()
	// macos is funny =)
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return testDirs{
		primary: filepath.Join(root, "p"),
		mirror:  filepath.Join(root, "m"),
		state:   filepath.Join(root, "state"),
		config:  filepath.Join(root, "config.yaml"),
	}
}

func (d testDirs) args(extra ...string) []string {
	return append([]string{
		"--config", d.config,
		"--state-dir", d.state,
		"-l", d.primary,
		"-o", d.mirror,
	}, extra...)
}

func (d testDirs) loadSaved(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(d.config)
	require.NoError(t, err)
	return cfg
}
