// Package platform opens and closes every platform component as one unit.
//
// Components open in a fixed order (trace, time, mutex, entropy) and close
// in reverse. If one fails to open, those already opened are closed again
// before the error is returned.
//
// Every Platform in a process writes to the same trace sink. Closing a
// Platform never closes that sink.
//
// Builds tagged haltonerror treat every error a Platform reports as fatal:
// it is traced and handed to the mutex FatalHandler, which aborts by default.
package platform

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/osdep/internal/clock"
	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/entropy"
	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/fileload"
	"github.com/mrz1836/osdep/internal/mempool"
	"github.com/mrz1836/osdep/internal/mutex"
	"github.com/mrz1836/osdep/internal/trace"
)

// Platform is an opened set of components.
type Platform struct {
	// Trace is the diagnostic sink every component writes to. It is shared
	// and outlives the Platform.
	Trace *trace.Sink

	// Time is the build-selected clock.
	Time clock.TimeSource

	// Mutexes creates engine locks.
	Mutexes *mutex.Primitive

	// Entropy is safe for concurrent use.
	Entropy *Entropy

	// Pool backs file buffers.
	Pool mempool.Pool

	// Files loads whole files from Pool.
	Files *fileload.Loader

	halt      *halter
	closeOnce sync.Once
}

type options struct {
	sink   *trace.Sink
	time   clock.TimeSource
	policy *entropy.Policy
	fatal  mutex.FatalHandler
	halt   *bool
}

// Option customizes Open.
type Option func(*options)

// WithTraceSink replaces the process-wide trace sink. The caller keeps
// ownership and closes it.
func WithTraceSink(s *trace.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithTimeSource replaces the build-selected clock.
func WithTimeSource(src clock.TimeSource) Option {
	return func(o *options) { o.time = src }
}

// WithEntropyPolicy replaces the policy derived from configuration.
func WithEntropyPolicy(p entropy.Policy) Option {
	return func(o *options) { o.policy = &p }
}

// WithFatalHandler replaces the mutex fatal handler. It also receives
// reported errors when halting on errors is enabled.
func WithFatalHandler(h mutex.FatalHandler) Option {
	return func(o *options) { o.fatal = h }
}

// WithHaltOnError overrides the build's haltonerror setting.
func WithHaltOnError(enabled bool) Option {
	return func(o *options) { o.halt = &enabled }
}

// Open opens every component described by cfg.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Platform, error) {
	if cfg == nil {
		return nil, errors.ErrConfigNil
	}
	log := zerolog.Ctx(ctx)

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Platform{Trace: o.sink}
	if p.Trace == nil {
		p.Trace = trace.Configure(cfg.Trace)
	}
	p.halt = newHalter(o, p.Trace)

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	log.Debug().Str("component", "trace").Msg("opened")

	p.Time = o.time
	if p.Time == nil {
		p.Time = clock.New()
	}
	if err := p.Time.Open(); err != nil {
		rollback()
		return nil, p.halt.report(errors.Wrap(err, "open time source"))
	}
	undo = append(undo, p.Time.Close)
	log.Debug().Str("component", "time").Str("kind", p.Time.Kind().String()).Msg("opened")

	p.Mutexes = mutex.New(cfg.Mutex, p.Trace, o.fatal)
	if err := p.Mutexes.Open(); err != nil {
		rollback()
		return nil, p.halt.report(errors.Wrap(err, "open mutex primitive"))
	}
	undo = append(undo, p.Mutexes.Close)
	log.Debug().Str("component", "mutex").Str("dir", p.Mutexes.Dir()).Msg("opened")

	policy := entropy.DefaultPolicy(cfg.Entropy)
	if o.policy != nil {
		policy = *o.policy
	}
	src := entropy.New(policy, p.Trace)
	if err := src.Open(); err != nil {
		rollback()
		return nil, p.halt.report(errors.Wrap(err, "open entropy source"))
	}
	p.Entropy = &Entropy{src: src, halt: p.halt}
	log.Debug().Str("component", "entropy").Bool("aliased", src.Aliased()).Msg("opened")

	p.Pool = mempool.New(cfg.FileLoad.PoolLimit)
	p.Files = fileload.New(cfg.FileLoad, p.Trace)
	return p, nil
}

// Close closes every component in reverse open order. The trace sink stays
// open. Only the first call has an effect.
func (p *Platform) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.Entropy.Close()
		p.Mutexes.Close()
		p.Time.Close()
	})
	return err
}

// Load reads path into a buffer from the platform pool.
func (p *Platform) Load(path string) (*fileload.Buffer, error) {
	buf, err := p.Files.Load(p.Pool, path)
	if err != nil {
		return nil, p.halt.report(err)
	}
	return buf, nil
}

// Entropy serializes access to an entropy source.
type Entropy struct {
	mu   sync.Mutex
	src  *entropy.Source
	halt *halter
}

// Fill fills buf from the underlying source.
func (e *Entropy) Fill(buf []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.src.Fill(buf)
	return n, e.halt.report(err)
}

// Read implements io.Reader.
func (e *Entropy) Read(p []byte) (int, error) {
	return e.Fill(p)
}

// Aliased reports whether the source runs on its guaranteed handle only.
func (e *Entropy) Aliased() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src.Aliased()
}

// Close closes the underlying source.
func (e *Entropy) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src.Close()
}
