//go:build highres && !linux

package clock

// Mode names the timer mode compiled into this binary.
const Mode = "highres"

// New returns the build-selected TimeSource: the platform tick counter.
func New() TimeSource {
	return NewTickClock(DefaultTickCounter())
}
