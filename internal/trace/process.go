package trace

import (
	"sync"

	"github.com/mrz1836/osdep/internal/config"
)

// process holds the process-wide sink. It is built at most once and
// resolved from the environment on its first write.
//
//nolint:gochecknoglobals // The engine expects exactly one trace stream per process
var process struct {
	once sync.Once
	sink *Sink
}

// Configure builds the process-wide sink from cfg unless it already exists,
// and returns it. Only the first of Configure and Process decides the
// configuration; every later call returns the same sink.
func Configure(cfg config.TraceConfig, opts ...Option) *Sink {
	process.once.Do(func() {
		process.sink = New(cfg, opts...)
	})
	return process.sink
}

// Process returns the process-wide sink. Every caller receives the same
// *Sink, so loggers created before the first write share one stream.
//
// Configuration is read from the environment only. A configuration error
// never surfaces here; the sink falls back to standard output.
func Process() *Sink {
	process.once.Do(func() {
		var cfg config.TraceConfig
		if loaded, err := config.LoadFromEnv(); err == nil {
			cfg = loaded.Trace
		}
		process.sink = New(cfg)
	})
	return process.sink
}

// discard is a Tracer that drops everything.
type discard struct{}

func (discard) Trace(string)            {}
func (discard) TraceStr(string, string) {}
func (discard) TraceInt(string, int64)  {}
func (discard) TracePtr(string, any)    {}

// Discard is a Tracer that drops all output. Tests and callers that have
// not resolved a sink yet use it.
var Discard Tracer = discard{} //nolint:gochecknoglobals // Stateless sentinel value
