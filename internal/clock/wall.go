package clock

import "github.com/mrz1836/osdep/internal/constants"

// WallReader reads the wall clock as seconds and microseconds since the epoch.
type WallReader func() (sec, usec int64, err error)

// WallClock is the low-resolution strategy: wall-clock seconds with a
// microsecond remainder.
type WallClock struct {
	read WallReader
}

// NewWallClock returns a WallClock backed by the platform wall clock.
func NewWallClock() *WallClock {
	return &WallClock{read: readWall}
}

// NewWallClockWithReader returns a WallClock backed by read.
func NewWallClockWithReader(read WallReader) *WallClock {
	return &WallClock{read: read}
}

// Open checks that the wall clock can be read.
func (c *WallClock) Open() error {
	if _, _, err := c.read(); err != nil {
		return clockFailure(err, "wall clock unavailable")
	}
	return nil
}

// Close is a no-op.
func (c *WallClock) Close() {}

// Sample returns wall-clock seconds and optionally the full sample.
func (c *WallClock) Sample(out *Timestamp) (int64, error) {
	sec, usec, err := c.read()
	if err != nil {
		return 0, clockFailure(err, "read wall clock")
	}
	if out != nil {
		*out = Timestamp{kind: KindWall, sec: sec, sub: usec}
	}
	return sec, nil
}

// DiffMillis returns now - then in milliseconds.
func (c *WallClock) DiffMillis(then, now Timestamp) int64 {
	secs, usecs := splitDiff(then, now, constants.MicrosPerSecond)
	return secs*constants.MillisPerSecond + usecs/constants.MicrosPerMilli
}

// DiffMicros returns now - then in microseconds.
func (c *WallClock) DiffMicros(then, now Timestamp) int64 {
	secs, usecs := splitDiff(then, now, constants.MicrosPerSecond)
	return secs*constants.MicrosPerSecond + usecs
}

// Compare reports whether a <= b.
func (c *WallClock) Compare(a, b Timestamp) bool {
	return splitCompare(a, b)
}

// Kind returns KindWall.
func (c *WallClock) Kind() Kind {
	return KindWall
}

// Ensure WallClock implements TimeSource.
var _ TimeSource = (*WallClock)(nil)
