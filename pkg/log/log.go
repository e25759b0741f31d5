package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log output goes and how much of it there is.
type Config struct {
	Verbose bool
	// File enables a rotated log file next to the console output.
	File string
	// Writer replaces the console writer, mainly for tests.
	Writer io.Writer
}

var logger = newLogger(Config{})

// Configure sets up zerolog for the application. Standard output carries
// event lines, so the console writer always targets standard error.
func Configure(cfg Config) {
	logger = newLogger(cfg)
}

func newLogger(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Writer
	if out == nil {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	if cfg.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		})
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

// Logger returns the configured logger.
func Logger() *zerolog.Logger {
	return &logger
}

func Debug() *zerolog.Event {
	return logger.Debug()
}

func Info() *zerolog.Event {
	return logger.Info()
}

func Warn() *zerolog.Event {
	return logger.Warn()
}

func Error() *zerolog.Event {
	return logger.Error()
}

// With starts a child logger context, e.g. for per-connection fields.
func With() zerolog.Context {
	return logger.With()
}
