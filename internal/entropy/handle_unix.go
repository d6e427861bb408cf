//go:build unix

package entropy

import (
	"golang.org/x/sys/unix"
)

// fdHandle reads a device through a raw descriptor. It bypasses *os.File so
// EAGAIN from a non-blocking device is returned instead of parked in the
// runtime poller.
type fdHandle struct {
	fd int
}

// DeviceOpener opens path read-only, optionally non-blocking.
func DeviceOpener(path string, nonblock bool) Opener {
	return func() (Handle, error) {
		flags := unix.O_RDONLY | unix.O_CLOEXEC
		if nonblock {
			flags |= unix.O_NONBLOCK
		}
		fd, err := unix.Open(path, flags, 0)
		if err != nil {
			return nil, &deviceError{path: path, err: err}
		}
		return &fdHandle{fd: fd}, nil
	}
}

// Read returns unix errors unchanged. A closed handle reports EBADF.
func (h *fdHandle) Read(p []byte) (int, error) {
	n, err := unix.Read(h.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the descriptor. Closing twice is a no-op.
func (h *fdHandle) Close() error {
	if h.fd < 0 {
		return nil
	}
	fd := h.fd
	h.fd = -1
	return unix.Close(fd)
}

type deviceError struct {
	path string
	err  error
}

func (e *deviceError) Error() string { return "open " + e.path + ": " + e.err.Error() }
func (e *deviceError) Unwrap() error { return e.err }
