// Package clock provides the time source the TLS engine samples for
// timeouts and session expiry.
//
// Three strategies implement TimeSource: WallClock (seconds and
// microseconds), MonotonicClock (seconds and nanoseconds) and TickClock (a
// raw tick counter scaled by a frequency ratio). New returns the strategy
// selected at build time with the highres tag. Callers only ever see
// Timestamps and integer durations; the representation and the borrow
// arithmetic stay inside each strategy.
package clock

import (
	"fmt"

	"github.com/mrz1836/osdep/internal/errors"
)

// Kind identifies the strategy that produced a Timestamp.
type Kind uint8

// Clock kinds.
const (
	KindUnset Kind = iota
	KindWall
	KindMonotonic
	KindTick
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindWall:
		return "wall"
	case KindMonotonic:
		return "monotonic"
	case KindTick:
		return "tick"
	default:
		return "unset"
	}
}

// Timestamp is an opaque clock sample. Two Timestamps may only be compared
// or subtracted when they come from the same TimeSource.
type Timestamp struct {
	kind  Kind
	sec   int64
	sub   int64 // microseconds for KindWall, nanoseconds for KindMonotonic
	ticks uint64
}

// Kind reports which strategy produced the sample.
func (t Timestamp) Kind() Kind {
	return t.kind
}

// String renders the sample for diagnostics.
func (t Timestamp) String() string {
	switch t.kind {
	case KindWall:
		return fmt.Sprintf("%d.%06ds", t.sec, t.sub)
	case KindMonotonic:
		return fmt.Sprintf("%d.%09ds", t.sec, t.sub)
	case KindTick:
		return fmt.Sprintf("%d ticks", t.ticks)
	default:
		return "unset"
	}
}

// TimeSource samples a clock and does interval arithmetic on its samples.
type TimeSource interface {
	// Open verifies the clock is functional.
	Open() error

	// Close releases clock resources.
	Close()

	// Sample returns the current time in whole seconds and, when out is
	// non-nil, stores the full sample in it.
	Sample(out *Timestamp) (int64, error)

	// DiffMillis returns now - then in milliseconds.
	DiffMillis(then, now Timestamp) int64

	// DiffMicros returns now - then in microseconds.
	DiffMicros(then, now Timestamp) int64

	// Compare reports whether a is less than or equal to b.
	Compare(a, b Timestamp) bool

	// Kind reports which strategy this source implements.
	Kind() Kind
}

// Elapsed samples src and returns the milliseconds elapsed since an earlier
// sample from the same source.
func Elapsed(src TimeSource, since Timestamp) (int64, error) {
	var now Timestamp
	if _, err := src.Sample(&now); err != nil {
		return 0, err
	}
	return src.DiffMillis(since, now), nil
}

// splitDiff subtracts two (seconds, sub-unit) samples. When the sub-unit of
// now is smaller than that of then, one whole second is borrowed from now
// first, so the returned sub-unit difference is never negative.
func splitDiff(then, now Timestamp, perSecond int64) (secs, subs int64) {
	if now.sub < then.sub {
		now.sec--
		now.sub += perSecond
	}
	return now.sec - then.sec, now.sub - then.sub
}

// splitCompare orders (seconds, sub-unit) samples: seconds first, then the
// sub-unit as tie-break.
func splitCompare(a, b Timestamp) bool {
	if a.sec < b.sec {
		return true
	}
	return a.sec == b.sec && a.sub <= b.sub
}

func clockFailure(err error, what string) error {
	return errors.Wrap(errors.Classify(errors.ErrPlatformFailure, err), what)
}
