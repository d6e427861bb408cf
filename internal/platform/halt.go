package platform

import (
	"github.com/mrz1836/osdep/internal/mutex"
	"github.com/mrz1836/osdep/internal/trace"
)

// halter applies the halt-on-error policy to reported errors.
type halter struct {
	enabled bool
	fatal   mutex.FatalHandler
	tracer  trace.Tracer
}

func newHalter(o options, tracer trace.Tracer) *halter {
	h := &halter{enabled: haltOnError, fatal: o.fatal, tracer: tracer}
	if o.halt != nil {
		h.enabled = *o.halt
	}
	if h.fatal == nil {
		h.fatal = mutex.Abort
	}
	return h
}

// report returns err unchanged. When halting is enabled a non-nil err is
// traced and handed to the fatal handler first.
func (h *halter) report(err error) error {
	if err == nil || !h.enabled {
		return err
	}
	h.tracer.TraceStr("halting on error: %s\n", err.Error())
	h.fatal(err)
	return err
}
