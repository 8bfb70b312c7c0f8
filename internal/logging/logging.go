package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	timeFormat    = "2006-01-02T15:04:05.000Z07:00"
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

type Options struct {
	// Console receives human readable output. Defaults to os.Stdout.
	Console io.Writer
	// Verbose enables debug output on the console.
	Verbose bool
	// FilePath enables a rotating debug log file when set.
	FilePath string
}

// New builds the process logger. The returned closer flushes the log file and
// must be called on exit.
func New(opts Options) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: timeFormat,
			NoColor:    !isTerminal(console),
		}),
	}

	var closer io.Closer = nopCloser{}
	if opts.FilePath != "" {
		file := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = file
	}

	return slog.New(NewFanoutHandler(handlers...)), closer
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
