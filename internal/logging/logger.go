package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const ServiceName = "shop-service"

type Options struct {
	Dir        string
	Level      string
	Production bool
}

type closers []io.Closer

func (c closers) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Setup configures the global zerolog logger: every event goes to
// combined.log, error and above also to error.log, and outside production
// a console writer is added. The returned closer flushes the log files.
func Setup(opts Options) (io.Closer, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var writers []io.Writer
	var files closers

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		combined, err := openLogFile(filepath.Join(opts.Dir, "combined.log"))
		if err != nil {
			return nil, err
		}
		errorsOnly, err := openLogFile(filepath.Join(opts.Dir, "error.log"))
		if err != nil {
			combined.Close()
			return nil, err
		}
		files = append(files, combined, errorsOnly)
		writers = append(writers,
			combined,
			&zerolog.FilteredLevelWriter{
				Writer: zerolog.LevelWriterAdapter{Writer: errorsOnly},
				Level:  zerolog.ErrorLevel,
			},
		)
	}

	if !opts.Production {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	log.Logger = New(zerolog.MultiLevelWriter(writers...))
	return files, nil
}

// New returns a logger with the service defaults writing to w.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", ServiceName).Logger()
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
