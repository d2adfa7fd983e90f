// Package log provides context-aware logging for skillsync.
//
// Foreground commands log human-readable lines to stderr. The detached
// background refresh has no terminal and logs JSON lines to a file under
// the XDG state directory instead.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type ctxKey struct{}

// Logger wraps a zerolog.Logger with plain diagnostic output.
type Logger struct {
	zerolog.Logger
	out     io.Writer
	verbose bool
	quiet   bool
}

// New creates a console logger writing to out.
// verbose enables debug events, quiet disables everything.
func New(out io.Writer, verbose, quiet bool) *Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.Disabled
	}

	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(out),
	}

	return &Logger{
		Logger:  zerolog.New(cw).Level(level).With().Timestamp().Logger(),
		out:     out,
		verbose: verbose,
		quiet:   quiet,
	}
}

// NewJSON creates a logger that writes JSON lines to w at debug level.
func NewJSON(w io.Writer) *Logger {
	return &Logger{
		Logger:  zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger(),
		out:     io.Discard,
		verbose: true,
	}
}

// FilePath returns the background log file path, creating its directory.
func FilePath() (string, error) {
	return xdg.StateFile("skillsync/skillsync.log")
}

// OpenFile opens the background log file in append mode and returns a JSON
// logger on it. The caller closes the returned file.
func OpenFile(path string) (*Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewJSON(f), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: zerolog.Nop(), out: io.Discard, quiet: true}
}

// WithField returns a copy of the logger carrying key=value on every event.
func (l *Logger) WithField(key, value string) *Logger {
	c := *l
	c.Logger = l.Logger.With().Str(key, value).Logger()
	return &c
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Discard()
}

// Printf writes formatted diagnostic output. Suppressed when quiet.
func (l *Logger) Printf(format string, args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}

// Println writes a line of diagnostic output. Suppressed when quiet.
func (l *Logger) Println(args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintln(l.out, args...)
}

// Verbose returns true if verbose mode is enabled.
func (l *Logger) Verbose() bool {
	return l.verbose
}

// Writer returns the underlying writer.
func (l *Logger) Writer() io.Writer {
	return l.out
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
