package parexis

import "errors"

// IO-handle level errors. Concrete IOHandle implementations return these
// directly or wrap them with fmt.Errorf("...: %w", ...).
var (
	// ErrWouldBlock signals a transient, non-fatal read/write condition.
	ErrWouldBlock = errors.New("parexis: would block")
	// ErrInterrupted signals a transient, retryable interruption (EINTR-class).
	ErrInterrupted = errors.New("parexis: interrupted")
	// ErrEndOfStream signals the handle has no more data to give right now.
	// It is swallowed by the driver loop, not treated as fatal.
	ErrEndOfStream = errors.New("parexis: end of stream")
	// ErrFatalIO signals an unrecoverable IO failure that must propagate.
	ErrFatalIO = errors.New("parexis: fatal io error")
)

// ErrBadRegex is returned when an expectation's pattern fails to compile.
// The caller of a wait sees it directly; no further channels are checked
// in that match pass.
var ErrBadRegex = errors.New("parexis: bad regex")

// ErrTimeout is raised by the driver when a wait has no expectations to
// satisfy, or the head-of-deadline expires with no match.
var ErrTimeout = errors.New("parexis: timeout")

// ErrUnknownChannel names the condition of addressing a channel id that is
// not currently registered. No Driver method returns it: RemoveChannel
// ignores an unknown id and Channel reports it with ok == false.
var ErrUnknownChannel = errors.New("parexis: unknown channel")
