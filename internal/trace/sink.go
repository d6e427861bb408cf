// Package trace provides the process-wide diagnostic sink.
//
// A Sink is resolved lazily on its first write and exactly once: the
// overwrite path is tried first, then the append path, then standard output.
// A configured path that cannot be opened degrades to standard output with a
// warning on standard error. Writing never reports errors to the caller.
package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/osdep/internal/config"
)

// Tracer is the write surface components depend on.
type Tracer interface {
	// Trace writes msg verbatim.
	Trace(msg string)
	// TraceStr writes format with one string argument.
	TraceStr(format, value string)
	// TraceInt writes format with one integer argument.
	TraceInt(format string, value int64)
	// TracePtr writes format with one pointer argument.
	TracePtr(format string, value any)
}

// Destination names where a resolved sink writes.
type Destination string

const (
	// DestinationUnresolved means no write has happened yet.
	DestinationUnresolved Destination = ""
	// DestinationStdout is the default and the fallback.
	DestinationStdout Destination = "stdout"
	// DestinationOverwrite is a truncated trace file.
	DestinationOverwrite Destination = "overwrite"
	// DestinationAppend is an appended trace file.
	DestinationAppend Destination = "append"
	// DestinationRotating is an appended trace file with size rotation.
	DestinationRotating Destination = "rotating"
)

// output is the resolved stream. It is published once and never replaced.
type output struct {
	w    io.Writer
	c    io.Closer
	dest Destination
	path string
}

// Sink is a lazily resolved trace stream. The zero value is not usable;
// construct with New.
type Sink struct {
	cfg    config.TraceConfig
	stdout io.Writer
	stderr io.Writer

	initMu sync.Mutex
	out    atomic.Pointer[output]
	closed atomic.Bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithStdout replaces the standard output stream used as default and fallback.
func WithStdout(w io.Writer) Option {
	return func(s *Sink) { s.stdout = w }
}

// WithStderr replaces the stream that receives open-failure warnings.
func WithStderr(w io.Writer) Option {
	return func(s *Sink) { s.stderr = w }
}

// New creates an unresolved sink for cfg. No file is touched until the
// first write.
func New(cfg config.TraceConfig, opts ...Option) *Sink {
	s := &Sink{
		cfg:    cfg,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolve returns the sink's stream, creating it on first use. Concurrent
// first writers serialize on initMu and observe the same stream.
func (s *Sink) resolve() *output {
	if o := s.out.Load(); o != nil {
		return o
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	if o := s.out.Load(); o != nil {
		return o
	}
	o := s.open()
	s.out.Store(o)
	return o
}

// open applies the resolution order. Only called under initMu.
func (s *Sink) open() *output {
	if path := s.cfg.File; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) // #nosec G302 G304 -- operator-chosen trace path
		if err != nil {
			return s.fallback(path)
		}
		return &output{w: f, c: f, dest: DestinationOverwrite, path: path}
	}

	if path := s.cfg.AppendFile; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) // #nosec G302 G304 -- operator-chosen trace path
		if err != nil {
			return s.fallback(path)
		}
		if s.cfg.MaxSizeMB <= 0 {
			return &output{w: f, c: f, dest: DestinationAppend, path: path}
		}
		// lumberjack opens lazily; the open above proved the path is writable.
		_ = f.Close()
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    s.cfg.MaxSizeMB,
			MaxBackups: s.cfg.MaxBackups,
		}
		return &output{w: lj, c: lj, dest: DestinationRotating, path: path}
	}

	return &output{w: s.stdout, dest: DestinationStdout}
}

func (s *Sink) fallback(path string) *output {
	_, _ = fmt.Fprintf(s.stderr, "%s: Unable to open file %s, %s.\n",
		"trace", path, "producing log to standard output")
	return &output{w: s.stdout, dest: DestinationStdout}
}

// Write implements io.Writer on the resolved stream so the sink can back a
// zerolog logger. Errors are swallowed; the full length is always reported.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return len(p), nil
	}
	_, _ = s.resolve().w.Write(p)
	return len(p), nil
}

// Trace writes msg verbatim.
func (s *Sink) Trace(msg string) {
	_, _ = io.WriteString(s, msg)
}

// TraceStr writes format with one string argument. format should contain one %s.
func (s *Sink) TraceStr(format, value string) {
	_, _ = fmt.Fprintf(s, format, value)
}

// TraceInt writes format with one integer argument. format should contain one %d.
func (s *Sink) TraceInt(format string, value int64) {
	_, _ = fmt.Fprintf(s, format, value)
}

// TracePtr writes format with one pointer argument. format should contain one %p.
func (s *Sink) TracePtr(format string, value any) {
	_, _ = fmt.Fprintf(s, format, value)
}

// Logger returns a zerolog logger writing JSON lines into the same stream.
func (s *Sink) Logger() zerolog.Logger {
	return zerolog.New(s).With().Timestamp().Logger()
}

// Destination reports where the sink writes, resolving it if needed.
func (s *Sink) Destination() (Destination, string) {
	o := s.resolve()
	return o.dest, o.path
}

// Resolved reports whether the first write has happened.
func (s *Sink) Resolved() bool {
	return s.out.Load() != nil
}

// Close is the teardown hook. It closes a trace file if one was opened and
// drops every later write. Standard output is never closed.
func (s *Sink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	o := s.out.Load()
	if o == nil || o.c == nil {
		return nil
	}
	return o.c.Close()
}

// Ensure Sink implements Tracer and io.Writer.
var (
	_ Tracer    = (*Sink)(nil)
	_ io.Writer = (*Sink)(nil)
)
