package pty

import (
	"fmt"
	"os"
	"os/exec"
	"time"
	"unicode"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	// DefaultTimeout passed to ReadNonBlocking selects the session's Timeout.
	DefaultTimeout time.Duration = -1

	// DefaultDelimiter and DefaultMaxChars are the ReadLine defaults.
	DefaultDelimiter = "\r\n"
	DefaultMaxChars  = 100

	lineTerminator  = "\n"
	defaultReadSize = 1024
)

// Options configures a Session. The timing values are fixed once the
// session is spawned.
type Options struct {
	// Timeout bounds reads that do not pass their own timeout (default: 100ms).
	Timeout time.Duration
	// DelayBeforeSend paces writes so the child's input is not overrun (default: 50ms).
	DelayBeforeSend time.Duration
	// DelayAfterClose lets the child notice the closed terminal (default: 100ms).
	DelayAfterClose time.Duration
	// DelayAfterTerminate is slept after every termination signal (default: 100ms).
	DelayAfterTerminate time.Duration
	// Rows is the number of terminal rows (default: 24).
	Rows uint16
	// Cols is the number of terminal columns (default: 80).
	Cols uint16
	// Dir is the working directory for the command.
	Dir string
	// Env is additional environment variables for the command.
	Env []string
}

// DefaultOptions returns the stock timing and a 24x80 window.
func DefaultOptions() *Options {
	return &Options{
		Timeout:             100 * time.Millisecond,
		DelayBeforeSend:     50 * time.Millisecond,
		DelayAfterClose:     100 * time.Millisecond,
		DelayAfterTerminate: 100 * time.Millisecond,
		Rows:                24,
		Cols:                80,
	}
}

// ExitStatus is the outcome of a terminated child: either an exit code or
// the signal that killed it, never both.
type ExitStatus struct {
	Code   int
	Signal unix.Signal
}

// Signaled reports whether the child died from a signal.
func (e ExitStatus) Signaled() bool {
	return e.Signal != 0
}

func (e ExitStatus) String() string {
	if e.Signaled() {
		return fmt.Sprintf("killed by signal %d (%s)", int(e.Signal), unix.SignalName(e.Signal))
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Session drives one child process attached to a pseudo-terminal.
//
// A Session is not safe for concurrent use. Callers that share one across
// goroutines must serialize access (see Manager).
type Session struct {
	ID   string
	Path string
	Args []string

	opts   Options
	cmd    *exec.Cmd
	pid    int
	master *os.File
	fd     int
	fds    descriptors

	closed     bool
	terminated bool
	eof        bool
	status     ExitStatus
}

// PID returns the child's process id.
func (s *Session) PID() int { return s.pid }

// Fd returns the pty master descriptor, or -1 once the session is closed.
func (s *Session) Fd() int {
	if s.closed || s.master == nil {
		return -1
	}
	return s.fd
}

// Options returns a copy of the session's configuration.
func (s *Session) Options() Options { return s.opts }

// Closed reports whether the master descriptor has been released.
func (s *Session) Closed() bool { return s.closed }

// EOF reports whether a read has observed the end of the child's output.
func (s *Session) EOF() bool { return s.eof }

// Terminated reports whether a wait has observed the child's death.
func (s *Session) Terminated() bool { return s.terminated }

// ExitStatus returns the child's outcome. ok is false until the child has
// been observed to terminate.
func (s *Session) ExitStatus() (status ExitStatus, ok bool) {
	return s.status, s.terminated
}

// IsATTY reports whether the master descriptor is a terminal.
func (s *Session) IsATTY() bool {
	if s.closed {
		return false
	}
	return term.IsTerminal(s.fd)
}

// Flush exists for io-style callers. Writes go straight to the descriptor,
// so there is nothing buffered to push.
func (s *Session) Flush() error {
	return nil
}

// Send writes text to the child after sleeping DelayBeforeSend.
func (s *Session) Send(text string) (int, error) {
	time.Sleep(s.opts.DelayBeforeSend)
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.master.Write([]byte(text))
	if err != nil {
		return n, fmt.Errorf("write to pty: %w", err)
	}
	return n, nil
}

// SendLine sends text followed by the line terminator.
func (s *Session) SendLine(text string) (int, error) {
	return s.Send(text + lineTerminator)
}

// controlCodes maps the non-letter symbols accepted by SendControl.
var controlCodes = map[rune]byte{
	'@': 0, '`': 0,
	'[': 27, '{': 27,
	'\\': 28, '|': 28,
	']': 29, '}': 29,
	'^': 30, '~': 30,
	'_': 31,
	'?': 127,
}

// SendControl sends the control code for char, so SendControl('c') is ^C.
// Symbols with no control code are ignored and report zero bytes written.
func (s *Session) SendControl(char rune) (int, error) {
	code, ok := controlCode(char)
	if !ok {
		return 0, nil
	}
	return s.Send(string([]byte{code}))
}

func controlCode(char rune) (byte, bool) {
	char = unicode.ToLower(char)
	if char >= 'a' && char <= 'z' {
		return byte(char-'a') + 1, true
	}
	code, ok := controlCodes[char]
	return code, ok
}

// SendEOF sends ^D, which the line discipline turns into end of input.
func (s *Session) SendEOF() (int, error) {
	return s.SendControl('d')
}

// SendIntr sends ^C.
func (s *Session) SendIntr() (int, error) {
	return s.SendControl('c')
}

// Write implements io.Writer on top of Send.
func (s *Session) Write(p []byte) (int, error) {
	return s.Send(string(p))
}

// WriteLines writes each element as is; no line terminators are added.
func (s *Session) WriteLines(lines []string) error {
	for _, l := range lines {
		if _, err := s.Send(l); err != nil {
			return err
		}
	}
	return nil
}

// SetWindowSize changes the terminal size seen by the child.
func (s *Session) SetWindowSize(rows, cols uint16) error {
	if s.closed {
		return ErrClosed
	}
	if err := setWindowSize(s.master, rows, cols); err != nil {
		return err
	}
	s.opts.Rows, s.opts.Cols = rows, cols
	return nil
}
