//go:build linux

package clock

import "golang.org/x/sys/unix"

func readWall() (sec, usec int64, err error) {
	var tv unix.Timeval
	if err := unix.Gettimeofday(&tv); err != nil {
		return 0, 0, err
	}
	return int64(tv.Sec), int64(tv.Usec), nil //nolint:unconvert // int32 on 32-bit targets
}

func readMonotonic() (sec, nsec int64, err error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, 0, err
	}
	return int64(ts.Sec), int64(ts.Nsec), nil //nolint:unconvert // int32 on 32-bit targets
}

// rawCounter counts CLOCK_MONOTONIC_RAW nanoseconds, which are not slewed
// by NTP. Its timebase is 1/1.
type rawCounter struct{}

func (rawCounter) Ticks() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1_000_000_000 + uint64(ts.Nsec) //nolint:gosec // clock values are non-negative
}

func (rawCounter) Timebase() (numer, denom uint32, err error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0, 0, err
	}
	return 1, 1, nil
}

// DefaultTickCounter returns the platform tick counter.
func DefaultTickCounter() TickCounter {
	return rawCounter{}
}
