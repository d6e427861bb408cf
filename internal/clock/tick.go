package clock

import (
	"fmt"
	"sync"

	"github.com/mrz1836/osdep/internal/constants"
	"github.com/mrz1836/osdep/internal/errors"
)

// TickCounter is a raw monotonic counter whose ticks convert to nanoseconds
// by the ratio numer/denom.
type TickCounter interface {
	// Ticks returns the current counter value.
	Ticks() uint64

	// Timebase returns the tick to nanosecond ratio.
	Timebase() (numer, denom uint32, err error)
}

// TickClock is the high-resolution strategy for platforms that only expose
// a tick counter. The frequency ratio is sampled once in Open so that
// millisecond and microsecond differences are platform-independent.
type TickClock struct {
	counter TickCounter

	mu    sync.RWMutex
	numer int64
	denom int64
}

// NewTickClock returns a TickClock over counter. Open must succeed before
// Sample is used.
func NewTickClock(counter TickCounter) *TickClock {
	return &TickClock{counter: counter}
}

// Open samples the frequency ratio.
func (c *TickClock) Open() error {
	numer, denom, err := c.counter.Timebase()
	if err != nil {
		return clockFailure(err, "tick timebase unavailable")
	}
	if numer == 0 || denom == 0 {
		return clockFailure(fmt.Errorf("timebase %d/%d", numer, denom), "invalid tick timebase")
	}

	c.mu.Lock()
	c.numer, c.denom = int64(numer), int64(denom)
	c.mu.Unlock()
	return nil
}

// Close is a no-op. The sampled ratio is kept so outstanding Timestamps
// can still be subtracted.
func (c *TickClock) Close() {}

func (c *TickClock) ratio() (numer, denom int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.numer, c.denom
}

// Sample returns elapsed counter seconds and optionally the raw tick sample.
func (c *TickClock) Sample(out *Timestamp) (int64, error) {
	numer, denom := c.ratio()
	if denom == 0 {
		return 0, errors.Wrap(errors.Classify(errors.ErrPlatformFailure, errors.ErrNotOpen), "tick clock")
	}

	ticks := c.counter.Ticks()
	if out != nil {
		*out = Timestamp{kind: KindTick, ticks: ticks}
	}
	return scale(int64(ticks), numer, denom) / constants.NanosPerSecond, nil
}

// DiffMillis returns now - then in milliseconds.
func (c *TickClock) DiffMillis(then, now Timestamp) int64 {
	return c.diffNanos(then, now) / constants.NanosPerMilli
}

// DiffMicros returns now - then in microseconds.
func (c *TickClock) DiffMicros(then, now Timestamp) int64 {
	return c.diffNanos(then, now) / constants.NanosPerMicro
}

// diffNanos converts the signed tick delta to nanoseconds. The unsigned
// subtraction wraps, so a counter rollover still yields a small delta.
func (c *TickClock) diffNanos(then, now Timestamp) int64 {
	numer, denom := c.ratio()
	if denom == 0 {
		return 0
	}
	return scale(int64(now.ticks-then.ticks), numer, denom)
}

// Compare reports whether a <= b. It uses the same wrapping delta as the
// diff functions, so a sample taken after a counter rollover still orders
// after one taken before it.
func (c *TickClock) Compare(a, b Timestamp) bool {
	return int64(b.ticks-a.ticks) >= 0
}

// Kind returns KindTick.
func (c *TickClock) Kind() Kind {
	return KindTick
}

// scale computes ticks*numer/denom without overflowing for large tick counts.
func scale(ticks, numer, denom int64) int64 {
	return ticks/denom*numer + ticks%denom*numer/denom
}

// Ensure TickClock implements TimeSource.
var _ TimeSource = (*TickClock)(nil)
