// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and outputs.
type Options struct {
	Level string
	// Console switches stdout to zerolog's human readable writer.
	Console bool
	// File, when set, receives JSON logs rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Stdout     io.Writer
}

// New returns a zerolog.Logger writing to stdout and, if configured, a
// rotating log file. The returned closer releases the file.
func New(opts Options) (zerolog.Logger, io.Closer) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if opts.Console {
		stdout = zerolog.ConsoleWriter{Out: stdout}
	}

	writers := []io.Writer{stdout}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	var w io.Writer = stdout
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(w).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", "opd-emr").
		Logger()
	return logger, closer
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
