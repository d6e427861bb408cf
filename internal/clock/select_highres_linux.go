//go:build highres && linux

package clock

// Mode names the timer mode compiled into this binary.
const Mode = "highres"

// New returns the build-selected TimeSource: CLOCK_MONOTONIC.
func New() TimeSource {
	return NewMonotonicClock()
}
