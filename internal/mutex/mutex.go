// Package mutex provides the lock primitive used by the engine.
//
// A Mutex is strictly paired: every Acquire is followed by exactly one
// Release from the same holder, and it is not reentrant. Acquire and Release
// never return an error. If the underlying primitive malfunctions the
// failure is traced and handed to the FatalHandler, which by default ends
// the process with the abort exit status.
//
// A Shared mutex also holds an exclusive advisory lock on a file so that
// cooperating processes serialize on it.
package mutex

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/constants"
	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/flock"
	"github.com/mrz1836/osdep/internal/trace"
)

// Flags select mutex behavior at creation.
type Flags uint32

const (
	// Private is an in-process mutex.
	Private Flags = 0

	// Shared makes the mutex visible to other processes through a lock file.
	Shared Flags = 1 << 0
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// FatalHandler receives a FatalCorruption error. The default handler exits
// the process; a handler that returns leaves the mutex in its prior state.
type FatalHandler func(err error)

// Abort is the default FatalHandler.
func Abort(_ error) {
	os.Exit(constants.AbortExitCode)
}

// Primitive creates mutexes and tracks whether the lock subsystem is open.
type Primitive struct {
	tracer trace.Tracer
	dir    string
	fatal  FatalHandler
	opened atomic.Bool
}

// New returns a Primitive whose shared mutexes live in cfg's lock directory.
// A nil tracer discards output and a nil fatal handler means Abort.
func New(cfg config.MutexConfig, tracer trace.Tracer, fatal FatalHandler) *Primitive {
	if tracer == nil {
		tracer = trace.Discard
	}
	if fatal == nil {
		fatal = Abort
	}
	return &Primitive{tracer: tracer, dir: cfg.SharedLockDir(), fatal: fatal}
}

// Open marks the lock subsystem ready. It cannot fail.
func (p *Primitive) Open() error {
	p.opened.Store(true)
	return nil
}

// Close marks the lock subsystem closed. Existing mutexes keep working.
func (p *Primitive) Close() {
	p.opened.Store(false)
}

// Opened reports whether Open has been called without a matching Close.
func (p *Primitive) Opened() bool {
	return p.opened.Load()
}

// Dir returns the directory holding shared lock files.
func (p *Primitive) Dir() string {
	return p.dir
}

type createOptions struct {
	name string
}

// Option configures Create.
type Option func(*createOptions)

// WithName sets the lock file name of a shared mutex. Processes that create
// a shared mutex with the same name in the same directory exclude each other.
func WithName(name string) Option {
	return func(o *createOptions) { o.name = name }
}

// Create returns a new unlocked mutex. Only the Shared flag is recognized.
func (p *Primitive) Create(flags Flags, opts ...Option) (*Mutex, error) {
	if flags&^Shared != 0 {
		p.tracer.TraceInt("mutex create: unsupported flag %d\n", int64(flags))
		return nil, errors.Wrapf(errors.Classify(errors.ErrPlatformFailure, errors.ErrUnsupportedFlag),
			"flags %#x", uint32(flags))
	}

	m := &Mutex{p: p}
	if flags&Shared == 0 {
		return m, nil
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = uuid.NewString()
		m.anonymous = true
	}
	if o.name != filepath.Base(o.name) || o.name == "." || o.name == ".." {
		return nil, errors.Wrapf(errors.ErrArgumentFailure, "shared mutex name %q", o.name)
	}

	if err := os.MkdirAll(p.dir, dirPerm); err != nil {
		p.tracer.TraceStr("mutex create: lock directory failed: %s\n", err.Error())
		return nil, errors.Wrap(errors.Classify(errors.ErrPlatformFailure, err), "create lock directory")
	}
	m.path = filepath.Join(p.dir, o.name+constants.LockFileExt)
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_RDWR, filePerm) //#nosec G304 -- name is a validated base name
	if err != nil {
		p.tracer.TraceStr("mutex create: open lock file failed: %s\n", err.Error())
		return nil, errors.Wrap(errors.Classify(errors.ErrPlatformFailure, err), "open lock file")
	}
	m.file = f
	return m, nil
}

// Mutex is a paired, non-reentrant lock.
type Mutex struct {
	p *Primitive

	mu        sync.Mutex
	held      atomic.Bool
	destroyed atomic.Bool

	file      *os.File
	path      string
	anonymous bool
}

// Acquire blocks until the caller holds m.
func (m *Mutex) Acquire() {
	if m.destroyed.Load() {
		m.fail("acquire", errors.ErrMutexDestroyed)
		return
	}

	m.mu.Lock()
	if m.file != nil {
		if err := flock.Wait(m.file.Fd()); err != nil {
			m.mu.Unlock()
			m.fail("acquire", err)
			return
		}
	}
	m.held.Store(true)
}

// Release gives up m. Releasing a mutex that is not held is fatal.
func (m *Mutex) Release() {
	if m.destroyed.Load() {
		m.fail("release", errors.ErrMutexDestroyed)
		return
	}
	if !m.held.CompareAndSwap(true, false) {
		m.fail("release", errors.ErrMutexNotHeld)
		return
	}

	var err error
	if m.file != nil {
		err = flock.Unlock(m.file.Fd())
	}
	m.mu.Unlock()
	if err != nil {
		m.fail("release", err)
	}
}

// Shared reports whether m is backed by a lock file.
func (m *Mutex) Shared() bool {
	return m.file != nil
}

// Path returns the lock file of a shared mutex, or "" for a private one.
func (m *Mutex) Path() string {
	return m.path
}

// Destroy releases the resources behind m. It must only be called when no
// goroutine holds or waits on m. The lock file of an unnamed shared mutex is
// removed; named lock files stay for other processes.
func (m *Mutex) Destroy() {
	if m.held.Load() {
		m.fail("destroy", errors.ErrMutexBusy)
		return
	}
	if m.destroyed.Swap(true) || m.file == nil {
		return
	}
	_ = m.file.Close()
	if m.anonymous {
		_ = os.Remove(m.path)
	}
}

func (m *Mutex) fail(op string, cause error) {
	err := errors.Wrapf(errors.Classify(errors.ErrFatalCorruption, cause), "mutex %s", op)
	m.p.tracer.TraceStr("%s\n", err.Error())
	m.p.fatal(err)
}
