// Package entropy fills caller buffers with cryptographic-quality random bytes.
//
// A Source holds two handles. The preferred handle is read first and may
// legitimately report that it would block; the guaranteed handle always
// satisfies a read eventually and finishes whatever the preferred one left.
// Transient OS errors are retried within a fixed bound, and a descriptor
// that went bad is reopened at most once per fill phase.
//
// A Source is not safe for concurrent use.
package entropy

import (
	"fmt"
	"io"

	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/constants"
	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/trace"
)

// Handle is an open randomness capability. Read must report OS errors
// unchanged so the fill protocol can tell EINTR, EAGAIN and EBADF apart.
type Handle interface {
	io.ReadCloser
}

// Opener opens a Handle.
type Opener func() (Handle, error)

// Policy is the fallback policy of a Source.
type Policy struct {
	// MaxReads bounds the interrupted reads tolerated in each phase. Exactly
	// MaxReads interrupts are retried; the next one fails the fill.
	MaxReads int

	// Preferred opens the source read first.
	Preferred Opener

	// Guaranteed opens the source that completes the fill.
	Guaranteed Opener
}

// DefaultPolicy builds the platform policy for cfg.
func DefaultPolicy(cfg config.EntropyConfig) Policy {
	maxReads := cfg.MaxReads
	if maxReads <= 0 {
		maxReads = constants.MaxRandReads
	}
	guaranteed := cfg.Guaranteed
	if guaranteed == "" {
		guaranteed = constants.DefaultGuaranteedDevice
	}
	return Policy{
		MaxReads:   maxReads,
		Preferred:  preferredOpener(cfg.Preferred),
		Guaranteed: DeviceOpener(guaranteed, false),
	}
}

// Source is the dual-source entropy reader.
type Source struct {
	policy Policy
	tracer trace.Tracer

	preferred  Handle
	guaranteed Handle
	// aliased means preferred and guaranteed are the same handle.
	aliased bool
}

// New returns an unopened Source. A nil tracer discards output.
func New(policy Policy, tracer trace.Tracer) *Source {
	if tracer == nil {
		tracer = trace.Discard
	}
	if policy.MaxReads <= 0 {
		policy.MaxReads = constants.MaxRandReads
	}
	return &Source{policy: policy, tracer: tracer}
}

// Open opens the guaranteed handle, then the preferred one. A preferred
// source that cannot be opened is replaced by the guaranteed handle.
func (s *Source) Open() error {
	g, err := s.policy.Guaranteed()
	if err != nil {
		s.tracer.TraceStr("entropy: open of guaranteed source failed: %s\n", err.Error())
		return errors.Wrap(errors.Classify(errors.ErrPlatformFailure, err), "open guaranteed entropy source")
	}
	s.guaranteed = g

	if s.policy.Preferred == nil {
		s.alias()
		return nil
	}
	p, err := s.policy.Preferred()
	if err != nil {
		s.alias()
		return nil
	}
	s.preferred, s.aliased = p, false
	return nil
}

func (s *Source) alias() {
	s.preferred, s.aliased = s.guaranteed, true
}

// Aliased reports whether the preferred source is the guaranteed handle.
func (s *Source) Aliased() bool {
	return s.aliased
}

// Close closes both handles, closing an aliased handle only once.
func (s *Source) Close() error {
	var err error
	if s.preferred != nil && !s.aliased {
		err = s.preferred.Close()
	}
	if s.guaranteed != nil {
		if gerr := s.guaranteed.Close(); err == nil {
			err = gerr
		}
	}
	s.preferred, s.guaranteed, s.aliased = nil, nil, false
	if err != nil {
		return errors.Wrap(errors.Classify(errors.ErrPlatformFailure, err), "close entropy source")
	}
	return nil
}

// Fill writes len(buf) random bytes into buf and returns how many it wrote.
// Any result with n < len(buf) carries a non-nil error wrapping ErrShortFill.
// Fill may block on the guaranteed source.
func (s *Source) Fill(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if s.guaranteed == nil {
		return 0, errors.Wrap(errors.Classify(errors.ErrPlatformFailure, errors.ErrNotOpen), "entropy fill")
	}

	filled, err := s.fillPreferred(buf)
	if err != nil {
		return filled, shortFill(filled, len(buf), err)
	}
	if filled == len(buf) {
		return filled, nil
	}

	n, err := s.fillGuaranteed(buf[filled:])
	filled += n
	if err != nil {
		return filled, shortFill(filled, len(buf), err)
	}
	return filled, nil
}

// Read implements io.Reader.
func (s *Source) Read(p []byte) (int, error) {
	return s.Fill(p)
}

// fillPreferred reads from the preferred handle until buf is full or the
// handle stops cooperating. A nil error with a partial count means the
// guaranteed phase takes over.
func (s *Source) fillPreferred(buf []byte) (int, error) {
	var filled, interrupts int
	reopened := false

	for filled < len(buf) {
		n, err := s.preferred.Read(buf[filled:])
		if n > 0 {
			filled += n
		}
		if err == nil {
			if n <= 0 {
				return filled, nil
			}
			continue
		}

		switch {
		case isInterrupted(err):
			interrupts++
			if interrupts > s.policy.MaxReads {
				s.tracer.Trace("entropy: preferred source interrupt bound exceeded\n")
				return filled, errors.ErrRetryBoundExceeded
			}
		case wouldBlock(err):
			return filled, nil
		case isBadDescriptor(err) && !reopened:
			reopened = true
			if !s.reopenPreferred() {
				return filled, nil
			}
		default:
			return filled, nil
		}
	}
	return filled, nil
}

// reopenPreferred replaces a bad preferred handle. On failure the
// guaranteed handle takes its place and false is returned.
func (s *Source) reopenPreferred() bool {
	if !s.aliased {
		_ = s.preferred.Close()
	}
	if s.policy.Preferred != nil {
		if p, err := s.policy.Preferred(); err == nil {
			s.preferred, s.aliased = p, false
			return true
		}
	}
	s.alias()
	return false
}

// fillGuaranteed reads from the guaranteed handle until buf is full. Every
// stop short of that is a failure.
func (s *Source) fillGuaranteed(buf []byte) (int, error) {
	var filled, interrupts int
	reopened := false

	for filled < len(buf) {
		n, err := s.guaranteed.Read(buf[filled:])
		if n > 0 {
			filled += n
		}
		if err == nil {
			if n <= 0 {
				s.tracer.Trace("entropy: guaranteed source returned no data\n")
				return filled, io.ErrUnexpectedEOF
			}
			continue
		}

		switch {
		case isInterrupted(err):
			interrupts++
			if interrupts > s.policy.MaxReads {
				s.tracer.Trace("entropy: guaranteed source interrupt bound exceeded\n")
				return filled, errors.ErrRetryBoundExceeded
			}
		case isBadDescriptor(err) && !reopened:
			reopened = true
			if rerr := s.reopenGuaranteed(); rerr != nil {
				s.tracer.TraceStr("entropy: reopen of guaranteed source failed: %s\n", rerr.Error())
				return filled, rerr
			}
		default:
			s.tracer.TraceStr("entropy: guaranteed read failed: %s\n", err.Error())
			return filled, err
		}
	}
	return filled, nil
}

func (s *Source) reopenGuaranteed() error {
	_ = s.guaranteed.Close()
	g, err := s.policy.Guaranteed()
	if err != nil {
		s.guaranteed = nil
		if s.aliased {
			s.preferred = nil
		}
		return err
	}
	s.guaranteed = g
	if s.aliased {
		s.preferred = g
	}
	return nil
}

func shortFill(got, want int, cause error) error {
	return errors.Wrapf(
		errors.Classify(errors.ErrPlatformFailure, fmt.Errorf("%w: %w", errors.ErrShortFill, cause)),
		"filled %d of %d bytes", got, want)
}
