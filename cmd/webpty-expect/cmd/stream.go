package cmd

import (
	"errors"
	"io"
	"time"

	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

// drain copies session output to w until EOF, or until the child has been
// quiet for idle when idle is positive.
func drain(w io.Writer, s *pty.Session, idle time.Duration) error {
	quietSince := time.Now()
	for {
		buf, err := s.ReadNonBlocking(0, pty.DefaultTimeout)
		switch {
		case err == nil:
			if _, err := w.Write(buf); err != nil {
				return err
			}
			quietSince = time.Now()
		case errors.Is(err, pty.ErrTimeout):
			if idle > 0 && time.Since(quietSince) >= idle {
				return nil
			}
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

// exitCode turns a child's status into a shell-style exit code.
func exitCode(status pty.ExitStatus) int {
	if status.Signaled() {
		return 128 + int(status.Signal)
	}
	return status.Code
}
