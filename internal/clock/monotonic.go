package clock

import "github.com/mrz1836/osdep/internal/constants"

// MonoReader reads a monotonic clock as seconds and nanoseconds.
type MonoReader func() (sec, nsec int64, err error)

// MonotonicClock is the high-resolution strategy for platforms with a
// nanosecond monotonic clock. Samples never run backward within a process.
type MonotonicClock struct {
	read MonoReader
}

// NewMonotonicClock returns a MonotonicClock backed by the platform clock.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{read: readMonotonic}
}

// NewMonotonicClockWithReader returns a MonotonicClock backed by read.
func NewMonotonicClockWithReader(read MonoReader) *MonotonicClock {
	return &MonotonicClock{read: read}
}

// Open checks that the monotonic clock can be read.
func (c *MonotonicClock) Open() error {
	if _, _, err := c.read(); err != nil {
		return clockFailure(err, "monotonic clock unavailable")
	}
	return nil
}

// Close is a no-op.
func (c *MonotonicClock) Close() {}

// Sample returns monotonic seconds and optionally the full sample.
func (c *MonotonicClock) Sample(out *Timestamp) (int64, error) {
	sec, nsec, err := c.read()
	if err != nil {
		return 0, clockFailure(err, "read monotonic clock")
	}
	if out != nil {
		*out = Timestamp{kind: KindMonotonic, sec: sec, sub: nsec}
	}
	return sec, nil
}

// DiffMillis returns now - then in milliseconds.
func (c *MonotonicClock) DiffMillis(then, now Timestamp) int64 {
	secs, nsecs := splitDiff(then, now, constants.NanosPerSecond)
	return secs*constants.MillisPerSecond + nsecs/constants.NanosPerMilli
}

// DiffMicros returns now - then in microseconds.
func (c *MonotonicClock) DiffMicros(then, now Timestamp) int64 {
	secs, nsecs := splitDiff(then, now, constants.NanosPerSecond)
	return secs*constants.MicrosPerSecond + nsecs/constants.NanosPerMicro
}

// Compare reports whether a <= b.
func (c *MonotonicClock) Compare(a, b Timestamp) bool {
	return splitCompare(a, b)
}

// Kind returns KindMonotonic.
func (c *MonotonicClock) Kind() Kind {
	return KindMonotonic
}

// Ensure MonotonicClock implements TimeSource.
var _ TimeSource = (*MonotonicClock)(nil)
