//go:build !highres

package clock

// Mode names the timer mode compiled into this binary.
const Mode = "lowres"

// New returns the build-selected TimeSource: the wall clock.
func New() TimeSource {
	return NewWallClock()
}
