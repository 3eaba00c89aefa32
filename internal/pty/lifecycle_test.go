//go:build unix

package pty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func stubKill(t *testing.T, fn func(pid int, sig unix.Signal) error) {
	t.Helper()
	orig := kill
	kill = fn
	t.Cleanup(func() { kill = orig })
}

func TestIsAliveChildReapedElsewhere(t *testing.T) {
	s := spawn(t, "sleep", []string{"5"}, nil)
	require.NoError(t, unix.Kill(s.PID(), unix.SIGKILL))

	var ws unix.WaitStatus
	pid, err := unix.Wait4(s.PID(), &ws, 0, nil)
	require.NoError(t, err)
	require.Equal(t, s.PID(), pid)

	_, err = s.IsAlive()
	assert.ErrorIs(t, err, ErrNoChild)
	assert.False(t, s.Terminated())

	_, err = s.Terminate(true)
	assert.ErrorIs(t, err, ErrNoChild)
}

func TestTerminateRechecksAfterSignalError(t *testing.T) {
	t.Run("child still running", func(t *testing.T) {
		opts := testOptions()
		opts.DelayAfterTerminate = 150 * time.Millisecond
		s := spawn(t, "sleep", []string{"5"}, opts)

		calls := 0
		stubKill(t, func(pid int, sig unix.Signal) error {
			calls++
			return unix.EPERM
		})

		start := time.Now()
		dead, err := s.Terminate(true)
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.False(t, dead)
		assert.Equal(t, 1, calls, "escalation stops at the first failed signal")
		// One delayed recheck, not a second round of signals.
		assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
		assert.Less(t, elapsed, 300*time.Millisecond)
	})

	t.Run("recheck finds child gone", func(t *testing.T) {
		s := spawn(t, "sleep", []string{"5"}, nil)

		calls := 0
		stubKill(t, func(pid int, sig unix.Signal) error {
			calls++
			// The signal lands but the call reports a failure.
			_ = unix.Kill(pid, unix.SIGKILL)
			return unix.ESRCH
		})

		dead, err := s.Terminate(false)
		require.NoError(t, err)
		assert.True(t, dead)
		assert.Equal(t, 1, calls)

		status, ok := s.ExitStatus()
		require.True(t, ok)
		assert.Equal(t, unix.SIGKILL, status.Signal)
	})
}
