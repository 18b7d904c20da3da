package parexis

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// classifyIOErr maps a raw read/write error into the sentinel kinds the
// driver understands. io.EOF is treated as end-of-stream and a nil error
// maps to nil; a zero-byte read with a nil error is left to the caller.
func classifyIOErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return ErrEndOfStream
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN:
			return fmt.Errorf("%w: %v", ErrWouldBlock, err)
		case syscall.EINTR:
			return fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrFatalIO, err)
}
