//go:build !unix

package entropy

import (
	"crypto/rand"
	"syscall"
)

// randHandle reads the system CSPRNG where no random devices exist.
type randHandle struct {
	closed bool
}

// DeviceOpener ignores path and nonblock on this platform and opens the
// system CSPRNG.
func DeviceOpener(_ string, _ bool) Opener {
	return func() (Handle, error) {
		return &randHandle{}, nil
	}
}

func (h *randHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, syscall.EBADF
	}
	return rand.Read(p)
}

func (h *randHandle) Close() error {
	h.closed = true
	return nil
}
