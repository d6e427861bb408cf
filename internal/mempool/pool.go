// Package mempool provides the allocator that file buffers are drawn from.
//
// The engine hands a pool to the loader; every buffer the loader allocates
// is returned to that same pool when the caller releases it.
package mempool

import (
	"sync"

	"github.com/mrz1836/osdep/internal/errors"
)

// Pool allocates zero-filled byte slices.
type Pool interface {
	// Alloc returns size zeroed bytes or an error wrapping ErrMemoryFailure.
	Alloc(size int) ([]byte, error)

	// Free returns a slice obtained from Alloc.
	Free(buf []byte)
}

// Heap is an unbounded pool backed by the Go heap.
type Heap struct{}

// Alloc returns size zeroed bytes.
func (Heap) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(errors.ErrMemoryFailure, "negative allocation %d", size)
	}
	return make([]byte, size), nil
}

// Free is a no-op; the garbage collector reclaims the slice.
func (Heap) Free([]byte) {}

// Bounded is a pool with a byte budget. It is safe for concurrent use.
type Bounded struct {
	limit int64

	mu    sync.Mutex
	inUse int64
}

// NewBounded returns a pool that refuses allocations once limit bytes are
// outstanding.
func NewBounded(limit int64) *Bounded {
	return &Bounded{limit: limit}
}

// Alloc returns size zeroed bytes if the budget allows it.
func (b *Bounded) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(errors.ErrMemoryFailure, "negative allocation %d", size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inUse+int64(size) > b.limit {
		return nil, errors.Wrapf(errors.ErrMemoryFailure,
			"allocation of %d bytes exceeds pool budget (%d of %d in use)", size, b.inUse, b.limit)
	}
	b.inUse += int64(size)
	return make([]byte, size), nil
}

// Free returns buf's capacity to the budget.
func (b *Bounded) Free(buf []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inUse -= int64(cap(buf))
	if b.inUse < 0 {
		b.inUse = 0
	}
}

// InUse returns the bytes currently allocated.
func (b *Bounded) InUse() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inUse
}

// Limit returns the byte budget.
func (b *Bounded) Limit() int64 {
	return b.limit
}

// New returns a Bounded pool when limit is positive and a Heap otherwise.
func New(limit int64) Pool {
	if limit > 0 {
		return NewBounded(limit)
	}
	return Heap{}
}

// Ensure both pools implement Pool.
var (
	_ Pool = Heap{}
	_ Pool = (*Bounded)(nil)
)
