package pty

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"syscall"

	ptylib "github.com/creack/pty"
	"github.com/google/uuid"
)

// Spawn starts path with args on a new pseudo-terminal and returns the
// session driving it. path is resolved through Which when it contains no
// slash, and is prepended to args unless args already starts with it.
func Spawn(path string, args []string, opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	resolved := path
	if !strings.ContainsRune(path, '/') {
		p, err := Which(path)
		if err != nil {
			return nil, &SpawnError{Path: path, Err: err}
		}
		resolved = p
	}

	argv := args
	if len(argv) == 0 || argv[0] != path {
		argv = append([]string{path}, args...)
	}

	var fds descriptors
	master, tty, err := ptylib.Open()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: fmt.Errorf("open pty: %w", err)}
	}
	fds.track(master)
	fds.track(tty)

	if err := setWindowSize(master, opts.Rows, opts.Cols); err != nil {
		fds.releaseAll()
		return nil, &SpawnError{Path: path, Err: err}
	}

	cmd := &exec.Cmd{
		Path:   resolved,
		Args:   argv,
		Dir:    opts.Dir,
		Stdin:  tty,
		Stdout: tty,
		Stderr: tty,
		SysProcAttr: &syscall.SysProcAttr{
			Setsid:  true,
			Setctty: true,
		},
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	if err := cmd.Start(); err != nil {
		fds.releaseAll()
		return nil, &SpawnError{Path: path, Err: err}
	}

	// The child holds its own copy of the slave side.
	if err := fds.release(tty); err != nil {
		log.Printf("[PTY] Warning: failed to close pty slave for %s: %v", path, err)
	}

	sess := &Session{
		ID:     uuid.New().String(),
		Path:   resolved,
		Args:   argv,
		opts:   *opts,
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		master: master,
		fd:     int(master.Fd()),
		fds:    fds,
	}

	log.Printf("[PTY] Spawned session %s: %s (pid %d)", sess.ID, resolved, sess.pid)
	return sess, nil
}

func setWindowSize(master *os.File, rows, cols uint16) error {
	err := ptylib.Setsize(master, &ptylib.Winsize{
		Rows: rows,
		Cols: cols,
		X:    0,
		Y:    0,
	})
	if err != nil {
		return fmt.Errorf("set window size: %w", err)
	}
	return nil
}

// descriptors records every descriptor opened on behalf of a session so
// each one is released exactly once, whichever path tears the session down.
type descriptors struct {
	files []*os.File
}

func (d *descriptors) track(f *os.File) {
	d.files = append(d.files, f)
}

// release closes f if it is still tracked.
func (d *descriptors) release(f *os.File) error {
	for i, tracked := range d.files {
		if tracked == f {
			d.files = append(d.files[:i], d.files[i+1:]...)
			return f.Close()
		}
	}
	return nil
}

func (d *descriptors) releaseAll() error {
	var firstErr error
	for _, f := range d.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.files = nil
	return firstErr
}

func (d *descriptors) count() int {
	return len(d.files)
}
