package pty

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout is returned when a read does not complete within its budget
// while the child is still running. The caller may retry.
var ErrTimeout = errors.New("read timed out")

// ErrClosed is returned when operating on a closed session.
var ErrClosed = errors.New("I/O operation on closed session")

// ErrDeadProcess is returned by Wait when the child was already reaped.
var ErrDeadProcess = errors.New("cannot wait for dead child process")

// ErrNoChild is returned when the kernel reports no such child while the
// session still believes it is running. Someone else reaped our pid.
var ErrNoChild = errors.New("no child process while session is not terminated; did someone else wait on our pid?")

// ErrStopped is returned when the child is stopped rather than terminated.
// Job control on the child is not supported.
var ErrStopped = errors.New("child process is stopped; is some other process attempting job control with our child pid?")

// ErrTerminationFailed is returned by Close when the child survives the
// termination escalation.
var ErrTerminationFailed = errors.New("could not terminate child process")

// SpawnError reports a failure to start the child program.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// NotFoundError is returned by Which when no executable matches.
type NotFoundError struct {
	Name       string
	SearchPath []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("failed to find command %q in path %s", e.Name, strings.Join(e.SearchPath, ":"))
}
