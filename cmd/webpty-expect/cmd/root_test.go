//go:build unix

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores the flag variables, which outlive a single Execute.
func resetFlags() {
	configPath, verbose = "", false
	connectCommands, connectIdle, connectNoWait = nil, 2*time.Second, false
	runTimeout, runSend, runRows, runCols = 100*time.Millisecond, nil, 24, 80
	socketPath = "~/.webpty/expect.sock"
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 3, ExitCode(&exitError{code: 3}))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := map[string]string{
		"":           "",
		"/abs/path":  "/abs/path",
		"~":          home,
		"~/x/y.sock": filepath.Join(home, "x/y.sock"),
		"~other":     "~other",
	}
	for in, want := range tests {
		got, err := expandPath(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestRunMirrorsExitStatus(t *testing.T) {
	out, err := execute(t, "run", "--", "sh", "-c", "printf hello; exit 3")
	assert.Equal(t, 3, ExitCode(err))
	assert.Equal(t, "hello", out)
}

func TestRunSendsLines(t *testing.T) {
	out, err := execute(t, "run", "--send", "ping", "--", "sh", "-c", "read x; echo got-$x")
	require.NoError(t, err)
	assert.Contains(t, out, "got-ping")

	// A later run without --send must not inherit the earlier lines.
	out, err = execute(t, "run", "--", "sh", "-c", "printf again")
	require.NoError(t, err)
	assert.Equal(t, "again", out)
}

func TestWhich(t *testing.T) {
	out, err := execute(t, "which", "sh")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "/sh"), "got %q", out)

	_, err = execute(t, "which", "doesnotexist12345")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	home := t.TempDir()
	cfgFile := filepath.Join(home, "token.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("auth:\n  secret: GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ\n"), 0600))

	out, err := execute(t, "token", "--config", cfgFile)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}\n$`, out)
}

func TestTokenWithoutSecret(t *testing.T) {
	_, err := execute(t, "token", "--config", "")
	assert.ErrorContains(t, err, "no auth.secret configured")
}
