package pty

import (
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sys/unix"
)

// IsAlive polls the child without blocking and records its exit status if
// it has terminated.
//
// Once EOF has been seen the blocking form of wait is used instead, since
// some kernels only report a defunct child that way. Nothing else should
// be holding the child open at that point.
func (s *Session) IsAlive() (bool, error) {
	if s.terminated {
		return false, nil
	}

	options := unix.WNOHANG
	if s.eof {
		options = 0
	}

	var ws unix.WaitStatus
	pid, err := wait4(s.pid, &ws, options)
	if err != nil {
		if errors.Is(err, unix.ECHILD) {
			return false, ErrNoChild
		}
		return false, fmt.Errorf("wait on pid %d: %w", s.pid, err)
	}
	if pid == 0 {
		return true, nil
	}
	if err := s.record(ws); err != nil {
		return false, err
	}
	return !s.terminated, nil
}

// Wait blocks until the child exits and returns its status.
//
// It returns ErrDeadProcess if the child's death had already been observed
// before the call. If the liveness check made by Wait itself is the one
// that finds the child dead, that fresh status is returned.
func (s *Session) Wait() (ExitStatus, error) {
	wasTerminated := s.terminated
	alive, err := s.IsAlive()
	if err != nil {
		return ExitStatus{}, err
	}
	if !alive {
		if wasTerminated {
			return ExitStatus{}, ErrDeadProcess
		}
		return s.status, nil
	}

	var ws unix.WaitStatus
	if _, err := wait4(s.pid, &ws, 0); err != nil {
		if errors.Is(err, unix.ECHILD) {
			return ExitStatus{}, ErrNoChild
		}
		return ExitStatus{}, fmt.Errorf("wait on pid %d: %w", s.pid, err)
	}
	if err := s.record(ws); err != nil {
		return ExitStatus{}, err
	}
	return s.status, nil
}

// record decodes a wait status into the session.
func (s *Session) record(ws unix.WaitStatus) error {
	switch {
	case ws.Exited():
		s.status = ExitStatus{Code: ws.ExitStatus()}
		s.terminated = true
	case ws.Signaled():
		s.status = ExitStatus{Signal: ws.Signal()}
		s.terminated = true
	case ws.Stopped():
		// Only reported to waits made with WUNTRACED, which this package
		// never passes: Terminate relies on SIGCONT reviving a stopped
		// child, so stops stay invisible rather than fatal.
		return ErrStopped
	}
	if s.terminated {
		log.Printf("[PTY] Session %s: pid %d %s", s.ID, s.pid, s.status)
	}
	return nil
}

// kill is swapped out in tests to simulate signalling failures.
var kill = unix.Kill

// Kill sends sig to the child if it is still running.
func (s *Session) Kill(sig unix.Signal) error {
	alive, err := s.IsAlive()
	if err != nil {
		return err
	}
	if !alive {
		return nil
	}
	if err := kill(s.pid, sig); err != nil {
		return fmt.Errorf("send %s to pid %d: %w", unix.SignalName(sig), s.pid, err)
	}
	return nil
}

// escalation is the order in which Terminate asks the child to go away.
// SIGCONT wakes a stopped child so it can act on the hangup.
var escalation = []unix.Signal{unix.SIGHUP, unix.SIGCONT, unix.SIGINT}

// Terminate works through SIGHUP, SIGCONT and SIGINT, checking after each
// one, and finishes with SIGKILL when force is set. It reports whether the
// child is confirmed dead.
//
// An OS error while signalling is treated as a kernel bookkeeping race:
// one more delayed liveness check decides the result.
func (s *Session) Terminate(force bool) (bool, error) {
	dead, err := s.escalate(force)
	if err == nil || isFatal(err) {
		return dead, err
	}

	log.Printf("[PTY] Session %s: termination hit %v, rechecking", s.ID, err)
	time.Sleep(s.opts.DelayAfterTerminate)
	alive, err := s.IsAlive()
	if err != nil {
		return false, err
	}
	return !alive, nil
}

func (s *Session) escalate(force bool) (bool, error) {
	alive, err := s.IsAlive()
	if err != nil {
		return false, err
	}
	if !alive {
		return true, nil
	}

	signals := escalation
	if force {
		signals = append(signals[:len(signals):len(signals)], unix.SIGKILL)
	}
	for _, sig := range signals {
		if err := s.Kill(sig); err != nil {
			return false, err
		}
		time.Sleep(s.opts.DelayAfterTerminate)
		alive, err := s.IsAlive()
		if err != nil {
			return false, err
		}
		if !alive {
			log.Printf("[PTY] Session %s: pid %d ended after %s", s.ID, s.pid, unix.SignalName(sig))
			return true, nil
		}
	}
	return false, nil
}

// isFatal reports errors that describe a broken session rather than a
// transient OS condition.
func isFatal(err error) bool {
	return errors.Is(err, ErrNoChild) || errors.Is(err, ErrStopped)
}

func wait4(pid int, ws *unix.WaitStatus, options int) (int, error) {
	for {
		wpid, err := unix.Wait4(pid, ws, options, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return wpid, err
	}
}
