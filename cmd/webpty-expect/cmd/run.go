package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

var (
	runTimeout time.Duration
	runSend    []string
	runRows    uint16
	runCols    uint16
)

// runCmd runs a program on a pty and mirrors its exit status.
var runCmd = &cobra.Command{
	Use:   "run -- <program> [args...]",
	Short: "Run a program on a pseudo-terminal",
	Long: `Spawns the program on a fresh pty, types each --send line into it,
copies its output to stdout until it closes the terminal, and exits with
the program's exit status (128+N when killed by signal N).

Examples:
  webpty-expect run -- tty
  webpty-expect run --send 'print(1+1)' --send 'exit()' -- python3 -i`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pty.DefaultOptions()
		opts.Timeout = runTimeout
		opts.Rows, opts.Cols = runRows, runCols

		s, err := pty.Spawn(args[0], args[1:], opts)
		if err != nil {
			return err
		}
		defer s.Close(true)

		for _, line := range runSend {
			if _, err := s.SendLine(line); err != nil {
				return fmt.Errorf("send %q: %w", line, err)
			}
		}
		if err := drain(cmd.OutOrStdout(), s, 0); err != nil {
			return err
		}

		status, err := s.Wait()
		if errors.Is(err, pty.ErrDeadProcess) {
			status, _ = s.ExitStatus()
		} else if err != nil {
			return err
		}
		if code := exitCode(status); code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 100*time.Millisecond, "per-read timeout")
	runCmd.Flags().StringArrayVar(&runSend, "send", nil, "line to type into the program (repeatable)")
	runCmd.Flags().Uint16Var(&runRows, "rows", 24, "terminal rows")
	runCmd.Flags().Uint16Var(&runCols, "cols", 80, "terminal columns")
}
