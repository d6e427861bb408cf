//go:build !linux

package clock

import "time"

// epoch anchors the runtime monotonic reading for this process.
var epoch = time.Now() //nolint:gochecknoglobals // Process start reference

func readWall() (sec, usec int64, err error) {
	now := time.Now()
	return now.Unix(), int64(now.Nanosecond() / 1000), nil
}

func readMonotonic() (sec, nsec int64, err error) {
	d := time.Since(epoch)
	return int64(d / time.Second), int64(d % time.Second), nil
}

// runtimeCounter counts nanoseconds of the Go runtime monotonic clock.
type runtimeCounter struct{}

func (runtimeCounter) Ticks() uint64 {
	return uint64(time.Since(epoch)) //nolint:gosec // monotonic elapsed time is non-negative
}

func (runtimeCounter) Timebase() (numer, denom uint32, err error) {
	return 1, 1, nil
}

// DefaultTickCounter returns the platform tick counter.
func DefaultTickCounter() TickCounter {
	return runtimeCounter{}
}
