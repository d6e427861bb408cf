package entropy

import (
	"errors"
	"os"
	"syscall"
)

func isInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

func wouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// isBadDescriptor also accepts os.ErrClosed so handles built on *os.File
// behave like raw descriptors.
func isBadDescriptor(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, os.ErrClosed)
}
