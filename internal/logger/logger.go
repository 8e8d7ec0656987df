package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Level    string
	Format   string // console or json
	Output   string // stdout, stderr or file
	FilePath string

	// Writer overrides Output when set.
	Writer io.Writer
}

// New builds the process logger and installs it as the zerolog global.
// The returned closer releases the log file, if one was opened.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level '%s': %w", opts.Level, err)
		}
		level = l
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var closer io.Closer = nopCloser{}
	output := opts.Writer
	if output == nil {
		switch strings.ToLower(opts.Output) {
		case "", "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		case "file":
			if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
				return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
			}
			f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return zerolog.Nop(), nil, fmt.Errorf("failed to open log file '%s': %w", opts.FilePath, err)
			}
			output, closer = f, f
		default:
			return zerolog.Nop(), nil, fmt.Errorf("unknown log output: %s", opts.Output)
		}
	}

	switch strings.ToLower(opts.Format) {
	case "", "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.DateTime, NoColor: opts.Writer != nil}
	case "json":
	default:
		_ = closer.Close()
		return zerolog.Nop(), nil, fmt.Errorf("unknown log format: %s", opts.Format)
	}

	l := zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = l
	return l, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
