// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const TimeFormat = "2006-01-02T15:04:05.000"

// Options selects level, console style and an optional log file.
type Options struct {
	Level  string
	Pretty bool
	File   string
	// Out overrides the console destination; stderr when nil.
	Out io.Writer
}

// Setup installs the global logger. The returned closer flushes the log file
// and must be called once logging is no longer needed.
func Setup(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stderr
		if runtime.GOOS == "windows" {
			out = colorable.NewColorableStderr()
		}
	}

	console := out
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: TimeFormat}
	}

	var closer io.Closer = nopCloser{}
	writers := []io.Writer{console}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return closer, nil
}

// ParseLevel maps a level name to a zerolog level; empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
