//go:build unix

package connection

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiranhaCodes/webpty-expect/internal/auth"
	"github.com/PiranhaCodes/webpty-expect/internal/config"
)

// fakeLogin imitates a headnode's keyboard-interactive login.
const fakeLogin = `#!/bin/sh
printf 'Password: '
read pw
printf 'Verification code: '
read code
echo "welcome $pw $code"
`

func fakeConfig(t *testing.T, script string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ssh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	cfg := config.DefaultConfig()
	cfg.Headnode.Command = path
	cfg.Headnode.Timeout = config.Duration(300 * time.Millisecond)
	cfg.Auth.Password = "hunter2"
	cfg.Auth.Secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	return cfg
}

func TestConnectAuthenticates(t *testing.T) {
	client, err := Connect(fakeConfig(t, fakeLogin), Options{})
	require.NoError(t, err)
	defer client.Close(true)

	var out strings.Builder
	for i := 0; i < 10 && !strings.Contains(out.String(), "welcome"); i++ {
		line, err := client.ReadLine("", 0)
		require.NoError(t, err)
		out.WriteString(line)
	}
	assert.Regexp(t, regexp.MustCompile(`welcome hunter2 \d{6}`), out.String())
}

func TestConnectPromptsForMissingPassword(t *testing.T) {
	cfg := fakeConfig(t, fakeLogin)
	cfg.Auth.Password = ""

	var asked []string
	client, err := Connect(cfg, Options{Prompter: auth.Prompter(func(prompt string) (string, error) {
		asked = append(asked, prompt)
		return "typed", nil
	})})
	require.NoError(t, err)
	defer client.Close(true)

	assert.Equal(t, []string{"Password: "}, asked)
}

func TestConnectFailsWithoutPrompt(t *testing.T) {
	cfg := fakeConfig(t, "#!/bin/sh\necho 'Permission denied'\nsleep 5\n")
	cfg.Auth.MaxReadFails = 1

	_, err := Connect(cfg, Options{})
	assert.ErrorIs(t, err, auth.ErrPromptNotSeen)
}

func TestConnectInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Headnode.Host = ""
	_, err := Connect(cfg, Options{})
	assert.Error(t, err)
}
