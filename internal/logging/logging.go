package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
	timeFormat        = "2006-01-02 15:04:05"
)

// Options configures the process logger.
type Options struct {
	// Verbosity raises the level: 0 info, 1 debug, 2 or more trace.
	Verbosity int

	// File, when set, receives a copy of every line through a rotating writer.
	File string

	// Out is the console destination; stderr when nil.
	Out io.Writer
}

// Setup builds the process logger once at start. The returned closer flushes
// and closes the log file, if any.
func Setup(opts Options) (zerolog.Logger, io.Closer) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	console := zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	logger := zerolog.New(console).Level(level(opts.Verbosity)).With().Timestamp().Logger()

	if opts.File == "" {
		return logger, nopCloser{}
	}

	if err := ensureLogDir(opts.File); err != nil {
		logger.Error().Err(err).Str("path", opts.File).Msg("Failed to prepare log directory; logging to console only")
		return logger, nopCloser{}
	}

	fileWriter := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}

	fileConsole := zerolog.ConsoleWriter{
		Out:        fileWriter,
		TimeFormat: timeFormat,
		NoColor:    true,
	}

	multi := zerolog.MultiLevelWriter(console, fileConsole)
	logger = zerolog.New(multi).Level(level(opts.Verbosity)).With().Timestamp().Logger()
	return logger, fileWriter
}

func level(verbosity int) zerolog.Level {
	switch {
	case verbosity >= 2:
		return zerolog.TraceLevel
	case verbosity == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
