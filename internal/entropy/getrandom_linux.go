package entropy

import (
	"golang.org/x/sys/unix"

	"github.com/mrz1836/osdep/internal/constants"
)

// getrandomHandle reads the kernel pool with getrandom(GRND_NONBLOCK). It
// reports EAGAIN until the pool is initialized.
type getrandomHandle struct {
	closed bool
}

func (h *getrandomHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, unix.EBADF
	}
	return unix.Getrandom(p, unix.GRND_NONBLOCK)
}

func (h *getrandomHandle) Close() error {
	h.closed = true
	return nil
}

// GetrandomOpener opens a non-blocking getrandom handle.
func GetrandomOpener() Opener {
	return func() (Handle, error) {
		return &getrandomHandle{}, nil
	}
}

func preferredOpener(name string) Opener {
	switch name {
	case "":
		return DeviceOpener(constants.DefaultPreferredDevice, true)
	case constants.PreferredGetrandom:
		return GetrandomOpener()
	default:
		return DeviceOpener(name, true)
	}
}
