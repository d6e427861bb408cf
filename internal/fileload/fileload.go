// Package fileload reads whole files into pool-allocated buffers.
//
// A loaded buffer is one byte longer than the file and that byte is always
// zero, so callers that expect a terminated string can use it directly.
package fileload

import (
	stderrors "errors"
	"io"
	"math"
	"os"

	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/constants"
	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/mempool"
	"github.com/mrz1836/osdep/internal/trace"
)

// Buffer holds a loaded file. Release hands the memory back to its pool.
type Buffer struct {
	pool mempool.Pool
	raw  []byte
	n    int
}

// Bytes returns the loaded contents without the trailing zero byte.
func (b *Buffer) Bytes() []byte {
	return b.raw[:b.n]
}

// Len returns the number of bytes loaded.
func (b *Buffer) Len() int {
	return b.n
}

// Raw returns the whole allocation, including the trailing zero byte.
func (b *Buffer) Raw() []byte {
	return b.raw
}

// Release returns the allocation to its pool. Later calls are no-ops.
func (b *Buffer) Release() {
	if b.raw == nil {
		return
	}
	b.pool.Free(b.raw)
	b.raw, b.n = nil, 0
}

// Loader loads files with a fixed chunk size.
type Loader struct {
	chunk  int
	tracer trace.Tracer
}

// New returns a Loader for cfg. A nil tracer discards output.
func New(cfg config.FileLoadConfig, tracer trace.Tracer) *Loader {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = constants.FileChunkSize
	}
	if tracer == nil {
		tracer = trace.Discard
	}
	return &Loader{chunk: chunk, tracer: tracer}
}

// Load opens path read-only and loads it. An empty path is an argument
// failure and an open failure is a platform failure.
func (l *Loader) Load(pool mempool.Pool, path string) (*Buffer, error) {
	if path == "" {
		return nil, errors.Wrap(errors.ErrArgumentFailure, "file name is empty")
	}
	f, err := os.Open(path) // #nosec G304 -- loading caller-named files is the purpose of this package
	if err != nil {
		l.tracer.TraceStr("Unable to open %s\n", path)
		return nil, errors.Wrapf(errors.Classify(errors.ErrPlatformFailure, err), "open %s", path)
	}
	return l.LoadFile(pool, f)
}

// LoadFile loads an already opened file. f is closed on every path.
func (l *Loader) LoadFile(pool mempool.Pool, f *os.File) (*Buffer, error) {
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		l.tracer.TraceStr("Unable to stat %s\n", f.Name())
		return nil, errors.Wrapf(errors.Classify(errors.ErrPlatformFailure, err), "stat %s", f.Name())
	}
	if info.IsDir() {
		l.tracer.TraceStr("Unable to load directory %s\n", f.Name())
		return nil, errors.Wrapf(errors.ErrPlatformFailure, "%s is a directory", f.Name())
	}
	size := info.Size()
	if size < 0 || size >= math.MaxInt {
		return nil, errors.Wrapf(errors.ErrMemoryFailure, "file %s too large (%d bytes)", f.Name(), size)
	}

	raw, err := pool.Alloc(int(size) + 1)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d bytes for %s", size+1, f.Name())
	}
	clear(raw)

	buf := &Buffer{pool: pool, raw: raw}
	if err := l.readChunks(f, buf, int(size)); err != nil {
		buf.Release()
		l.tracer.TraceStr("Unable to read %s\n", f.Name())
		return nil, errors.Wrapf(errors.Classify(errors.ErrPlatformFailure, err), "read %s", f.Name())
	}
	return buf, nil
}

// readChunks fills buf up to size bytes, stopping early at end of file.
func (l *Loader) readChunks(r io.Reader, buf *Buffer, size int) error {
	for buf.n < size {
		end := min(buf.n+l.chunk, size)
		n, err := r.Read(buf.raw[buf.n:end])
		buf.n += n
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}
