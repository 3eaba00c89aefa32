package pty

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/sys/unix"
)

// poll is swapped out in tests to simulate interrupted waits.
var poll = unix.Poll

// ReadNonBlocking reads at most size bytes, waiting up to timeout for the
// child to produce output. A negative timeout (DefaultTimeout) uses the
// session's Timeout.
//
// It returns ErrTimeout when nothing arrived and the child is still
// running, and an error wrapping io.EOF once no more output can arrive.
// EOF does not imply Terminated: the child may close the terminal before
// it is reaped. A later IsAlive or Wait collects its status.
func (s *Session) ReadNonBlocking(size int, timeout time.Duration) ([]byte, error) {
	if timeout < 0 {
		timeout = s.opts.Timeout
	}
	if size <= 0 {
		size = defaultReadSize
	}
	if s.closed {
		return nil, ErrClosed
	}

	alive, err := s.IsAlive()
	if err != nil {
		return nil, err
	}
	if !alive {
		// Drain whatever the child left behind before reporting EOF.
		ready, err := waitReadable(s.fd, 0)
		if err != nil {
			return nil, err
		}
		if !ready {
			return nil, s.endOfFile("EOF encountered during read")
		}
	}

	ready, err := waitReadable(s.fd, timeout)
	if err != nil {
		return nil, err
	}
	if !ready {
		alive, err := s.IsAlive()
		if err != nil {
			return nil, err
		}
		if !alive {
			return nil, s.endOfFile("EOF encountered during read")
		}
		return nil, ErrTimeout
	}

	buf := make([]byte, size)
	n, err := readFd(s.fd, buf)
	if err != nil {
		return nil, s.endOfFile(fmt.Sprintf("EOF encountered during read: %v", err))
	}
	if n == 0 {
		return nil, s.endOfFile("EOF encountered, blank read")
	}
	return buf[:n], nil
}

// Read reads up to size bytes with the session's default timeout.
func (s *Session) Read(size int) ([]byte, error) {
	return s.ReadNonBlocking(size, DefaultTimeout)
}

// ReadLine accumulates single bytes until the buffer ends with delimiter or
// holds maxChars bytes. Empty delimiter and non-positive maxChars select
// DefaultDelimiter and DefaultMaxChars.
//
// A read timeout ends the line early without an error: the result is
// whatever arrived so far. The caller cannot tell a complete line from a
// timed-out partial one except by checking the delimiter suffix itself.
// End of file and fatal errors are returned along with the partial line.
func (s *Session) ReadLine(delimiter string, maxChars int) (string, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	delim := []byte(delimiter)

	var line []byte
	for len(line) < maxChars {
		b, err := s.ReadNonBlocking(1, DefaultTimeout)
		if errors.Is(err, ErrTimeout) {
			break
		}
		if err != nil {
			return string(line), err
		}
		line = append(line, b...)
		if bytes.HasSuffix(line, delim) {
			break
		}
	}
	return string(line), nil
}

func (s *Session) endOfFile(reason string) error {
	s.eof = true
	return fmt.Errorf("%s: %w", reason, io.EOF)
}

// waitReadable waits up to timeout for fd to become readable. A hang-up
// or error condition counts as readable so the following read reports it.
// Interrupted waits are resumed with whatever budget remains.
func waitReadable(fd int, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(timeout)
	for {
		n, err := poll(fds, pollMillis(timeout))
		if errors.Is(err, unix.EINTR) {
			timeout = time.Until(deadline)
			if timeout < 0 {
				return false, nil
			}
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll on pty: %w", err)
		}
		return n > 0 && fds[0].Revents != 0, nil
	}
}

// pollMillis rounds up so that a sub-millisecond budget still waits.
func pollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

func readFd(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}
