// Package cmd implements the webpty-expect commands.
//
// webpty-expect drives interactive programs through a pseudo-terminal:
// it logs in to a headnode over ssh (password plus one-time token), runs
// arbitrary programs on a pty, and serves pty sessions over a UNIX socket.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PiranhaCodes/webpty-expect/internal/config"
)

var (
	cfg        *config.Config
	configPath string
	verbose    bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "webpty-expect",
	Short: "Drive interactive programs through a pseudo-terminal",
	Long: `webpty-expect spawns programs on a pseudo-terminal and talks to them the
way a user would.

  webpty-expect connect -c hostname     # log in to the headnode, run a command
  webpty-expect run -- python3 -i       # run a program on a pty
  webpty-expect serve                   # serve pty sessions on a UNIX socket

Settings are read from ~/.odyssey/odyssey.yaml, then --config, then
./odyssey.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			log.SetOutput(io.Discard)
		}

		local, err := expandPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(local)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an extra configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log session activity to stderr")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(whichCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// exitError carries a child's exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// expandPath expands the tilde (~) character to the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return homeDir, nil
	}
	if path[1] == '/' || path[1] == '\\' {
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}
