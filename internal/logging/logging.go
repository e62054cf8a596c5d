package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 3
)

// Init configures the process default logger used for command-level errors.
// Only warnings and errors are shown unless verbose is set.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Options controls the run logger.
type Options struct {
	Verbose bool
	// File, when set, receives a copy of every record and is rotated.
	File   string
	Stderr io.Writer
}

// Logger is a run logger plus the resources backing it.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// New builds the logger threaded through a pass. Each logger carries a
// fresh run_id so records of one pass can be grouped in the log file.
func New(opts Options) *Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	out := opts.Stderr
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
		}
		out = io.MultiWriter(out, rotator)
		closer = rotator
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger: slog.New(handler).With(slog.String("run_id", uuid.NewString())),
		closer: closer,
	}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
