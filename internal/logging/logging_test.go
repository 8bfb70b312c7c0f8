package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("handler failed")
}

func TestFanoutHandler_LevelsPerHandler(t *testing.T) {
	var info, debug bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h)

	assert.True(t, h.Enabled(t.Context(), slog.LevelDebug))
	logger.Debug("only debug")
	logger.Info("both")

	assert.NotContains(t, info.String(), "only debug")
	assert.Contains(t, info.String(), "both")
	assert.Contains(t, debug.String(), "only debug")
	assert.Contains(t, debug.String(), "both")
}

func TestFanoutHandler_AttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(NewFanoutHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	)).With("side", "primary").WithGroup("file")

	logger.Info("sync", "name", "a.snip")

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "side=primary")
		assert.Contains(t, out, "file.name=a.snip")
	}
}

func TestFanoutHandler_JoinsErrors(t *testing.T) {
	var out bytes.Buffer
	h := NewFanoutHandler(
		failingHandler{slog.NewTextHandler(&out, nil)},
		slog.NewTextHandler(&out, nil),
	)

	err := h.Handle(t.Context(), slog.Record{Level: slog.LevelInfo, Message: "x"})
	assert.ErrorContains(t, err, "handler failed")
	assert.Contains(t, out.String(), "msg=x")
}

func TestNew_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "snipsync.log")

	logger, closer := New(Options{Console: &console, FilePath: logFile})
	logger.Debug("debug line")
	logger.Info("info line", "name", "a.snip")
	require.NoError(t, closer.Close())

	assert.NotContains(t, console.String(), "debug line")
	assert.Contains(t, console.String(), "info line")
	assert.NotContains(t, console.String(), "\x1b[", "no color when not a terminal")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug line")
	assert.Contains(t, string(data), "name=a.snip")
}

func TestNew_Verbose(t *testing.T) {
	var console bytes.Buffer
	logger, closer := New(Options{Console: &console, Verbose: true})
	defer closer.Close()

	logger.Debug("debug line")
	assert.Contains(t, console.String(), "debug line")
}
