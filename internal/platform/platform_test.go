package platform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/osdep/internal/clock"
	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/entropy"
	osdeperrors "github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/mutex"
	"github.com/mrz1836/osdep/internal/trace"
)

var errNoClock = errors.New("no clock")

// trackedClock wraps a TimeSource and counts Open and Close.
type trackedClock struct {
	clock.TimeSource

	openErr error
	opens   int
	closes  int
}

func (c *trackedClock) Open() error {
	c.opens++
	if c.openErr != nil {
		return osdeperrors.Classify(osdeperrors.ErrPlatformFailure, c.openErr)
	}
	return c.TimeSource.Open()
}

func (c *trackedClock) Close() {
	c.closes++
	c.TimeSource.Close()
}

// bytesHandle serves an endless run of one byte.
type bytesHandle struct{ b byte }

func (h bytesHandle) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = h.b
	}
	return len(p), nil
}

func (bytesHandle) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Mutex.SharedDir = t.TempDir()
	return cfg
}

func testSink(t *testing.T, w io.Writer) *trace.Sink {
	t.Helper()
	s := trace.New(config.TraceConfig{}, trace.WithStdout(w))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_AllComponents(t *testing.T) {
	var stdout bytes.Buffer
	cfg := testConfig(t)

	p, err := Open(context.Background(), cfg,
		WithTraceSink(testSink(t, &stdout)),
		WithFatalHandler(func(err error) { t.Errorf("unexpected fatal: %v", err) }),
	)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	var then clock.Timestamp
	_, err = p.Time.Sample(&then)
	require.NoError(t, err)
	assert.Equal(t, p.Time.Kind(), then.Kind())

	buf := make([]byte, 48)
	n, err := p.Entropy.Fill(buf)
	require.NoError(t, err)
	assert.Equal(t, 48, n)

	m, err := p.Mutexes.Create(mutex.Shared, mutex.WithName("platform-test"))
	require.NoError(t, err)
	m.Acquire()
	m.Release()
	m.Destroy()
	assert.True(t, p.Mutexes.Opened())

	path := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o600))
	fb, err := p.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), fb.Bytes())
	fb.Release()

	p.Trace.Trace("platform ready\n")
	assert.Equal(t, "platform ready\n", stdout.String())
}

func TestOpen_NilConfig(t *testing.T) {
	_, err := Open(context.Background(), nil)
	require.ErrorIs(t, err, osdeperrors.ErrConfigNil)
}

func TestOpen_TimeFailure(t *testing.T) {
	tc := &trackedClock{TimeSource: clock.NewWallClock(), openErr: errNoClock}

	_, err := Open(context.Background(), testConfig(t),
		WithTraceSink(testSink(t, io.Discard)),
		WithTimeSource(tc),
		WithHaltOnError(false),
	)
	require.ErrorIs(t, err, osdeperrors.ErrPlatformFailure)
	require.ErrorIs(t, err, errNoClock)
	assert.Equal(t, 1, tc.opens)
	assert.Equal(t, 0, tc.closes, "a clock that failed to open is not closed")
}

func TestOpen_EntropyFailureUndoesEarlierComponents(t *testing.T) {
	var stdout bytes.Buffer
	tc := &trackedClock{TimeSource: clock.NewWallClock()}
	refuse := func() (entropy.Handle, error) { return nil, os.ErrPermission }

	_, err := Open(context.Background(), testConfig(t),
		WithTraceSink(testSink(t, &stdout)),
		WithTimeSource(tc),
		WithEntropyPolicy(entropy.Policy{Preferred: refuse, Guaranteed: refuse}),
		WithHaltOnError(false),
	)
	require.ErrorIs(t, err, osdeperrors.ErrPlatformFailure)
	require.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, 1, tc.closes)
	assert.Contains(t, stdout.String(), "open of guaranteed source failed")
}

func TestOpen_BoundedPool(t *testing.T) {
	cfg := testConfig(t)
	cfg.FileLoad.PoolLimit = 4

	p, err := Open(context.Background(), cfg,
		WithTraceSink(testSink(t, io.Discard)),
		WithHaltOnError(false),
	)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	path := filepath.Join(t.TempDir(), "big.pem")
	require.NoError(t, os.WriteFile(path, []byte("more than four"), 0o600))
	_, err = p.Load(path)
	require.ErrorIs(t, err, osdeperrors.ErrMemoryFailure)
}

func TestOpen_DebugLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	p, err := Open(ctx, testConfig(t), WithTraceSink(testSink(t, io.Discard)))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	for _, component := range []string{"trace", "time", "mutex", "entropy"} {
		assert.Contains(t, logs.String(), `"component":"`+component+`"`)
	}
}

func TestClose_Idempotent(t *testing.T) {
	tc := &trackedClock{TimeSource: clock.NewWallClock()}
	p, err := Open(context.Background(), testConfig(t),
		WithTraceSink(testSink(t, io.Discard)),
		WithTimeSource(tc),
	)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, tc.closes)
	assert.False(t, p.Mutexes.Opened())
}

func TestEntropy_ConcurrentFill(t *testing.T) {
	p, err := Open(context.Background(), testConfig(t),
		WithTraceSink(testSink(t, io.Discard)),
		WithEntropyPolicy(entropy.Policy{
			Preferred:  func() (entropy.Handle, error) { return bytesHandle{b: 1}, nil },
			Guaranteed: func() (entropy.Handle, error) { return bytesHandle{b: 2}, nil },
		}),
	)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()
	assert.False(t, p.Entropy.Aliased())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 256)
			_, err := io.ReadFull(p.Entropy, buf)
			assert.NoError(t, err)
			assert.Equal(t, bytes.Repeat([]byte{1}, 256), buf)
		}()
	}
	wg.Wait()
}

// Only this test opens platforms on the process sink.
func TestOpen_SharesProcessSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	cfg := testConfig(t)
	cfg.Trace.File = path

	first, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	first.Trace.Trace("from first platform\n")

	second, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	assert.Same(t, first.Trace, second.Trace)
	assert.Same(t, trace.Process(), first.Trace)

	require.NoError(t, first.Close())
	second.Trace.Trace("from second platform\n")

	data, err := os.ReadFile(path) // #nosec G304 -- test temp file
	require.NoError(t, err)
	assert.Equal(t, "from first platform\nfrom second platform\n", string(data))
}

func TestClose_LeavesCallerSinkOpen(t *testing.T) {
	var stdout bytes.Buffer
	sink := testSink(t, &stdout)

	p, err := Open(context.Background(), testConfig(t), WithTraceSink(sink))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	sink.Trace("still open\n")
	assert.Equal(t, "still open\n", stdout.String())
}

func TestHaltOnError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pem")

	tests := []struct {
		name    string
		halt    bool
		wantHit int
	}{
		{"enabled hands errors to the fatal handler", true, 1},
		{"disabled only returns them", false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout bytes.Buffer
			var fatal []error

			p, err := Open(context.Background(), testConfig(t),
				WithTraceSink(testSink(t, &stdout)),
				WithFatalHandler(func(err error) { fatal = append(fatal, err) }),
				WithHaltOnError(tc.halt),
			)
			require.NoError(t, err)
			defer func() { _ = p.Close() }()

			_, err = p.Load(missing)
			require.ErrorIs(t, err, osdeperrors.ErrPlatformFailure)
			require.Len(t, fatal, tc.wantHit)
			if tc.halt {
				require.ErrorIs(t, fatal[0], osdeperrors.ErrPlatformFailure)
				assert.Contains(t, stdout.String(), "halting on error")
			}

			_, err = p.Entropy.Fill(make([]byte, 16))
			require.NoError(t, err)
			assert.Len(t, fatal, tc.wantHit, "successful calls are never reported")
		})
	}
}

func TestHaltOnError_OpenFailure(t *testing.T) {
	var fatal []error
	refuse := func() (entropy.Handle, error) { return nil, os.ErrPermission }

	_, err := Open(context.Background(), testConfig(t),
		WithTraceSink(testSink(t, io.Discard)),
		WithEntropyPolicy(entropy.Policy{Preferred: refuse, Guaranteed: refuse}),
		WithFatalHandler(func(err error) { fatal = append(fatal, err) }),
		WithHaltOnError(true),
	)
	require.ErrorIs(t, err, os.ErrPermission)
	require.Len(t, fatal, 1)
	assert.ErrorIs(t, fatal[0], os.ErrPermission)
}

func TestHaltOnError_BuildDefault(t *testing.T) {
	p, err := Open(context.Background(), testConfig(t), WithTraceSink(testSink(t, io.Discard)))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, haltOnError, p.halt.enabled)
}
