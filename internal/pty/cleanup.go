package pty

import (
	"fmt"
	"log"
	"time"
)

// Close releases the pty master and makes sure the child is gone. If the
// child outlives the closed terminal it is terminated, with SIGKILL as the
// last step when force is set; a survivor yields ErrTerminationFailed.
//
// Close is idempotent: later calls return nil and release nothing twice.
func (s *Session) Close(force bool) error {
	if s.closed {
		return nil
	}

	log.Printf("[PTY] Cleaning up session %s", s.ID)

	_ = s.Flush()
	var firstErr error
	if err := s.fds.release(s.master); err != nil {
		firstErr = fmt.Errorf("close pty: %w", err)
	}
	s.closed = true
	s.fd = -1
	defer s.releaseAll()

	time.Sleep(s.opts.DelayAfterClose)

	alive, err := s.IsAlive()
	if err != nil {
		return err
	}
	if alive {
		dead, err := s.Terminate(force)
		if err != nil {
			return err
		}
		if !dead {
			log.Printf("[PTY] Warning: session %s: pid %d survived termination", s.ID, s.pid)
			return ErrTerminationFailed
		}
	}

	log.Printf("[PTY] Session %s cleaned up", s.ID)
	return firstErr
}

// releaseAll drops every descriptor and handle the session still holds.
func (s *Session) releaseAll() {
	if err := s.fds.releaseAll(); err != nil {
		log.Printf("[PTY] Warning: session %s: failed to release descriptors: %v", s.ID, err)
	}
	s.master = nil
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Release()
	}
}
