package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PiranhaCodes/webpty-expect/internal/connection"
)

var (
	connectCommands []string
	connectIdle     time.Duration
	connectNoWait   bool
)

// connectCmd logs in to the headnode and runs commands there.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Log in to the configured headnode",
	Long: `Starts ssh to the configured headnode, answers the password and
verification code prompts, then sends each -c command and prints what comes
back. Output is considered complete once the remote side has been quiet for
--idle.

Examples:
  webpty-expect connect -c hostname -c 'squeue -u $USER'
  webpty-expect connect --config ./cluster.yaml -c uptime`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connection.Connect(cfg, connection.Options{NoWait: connectNoWait})
		if err != nil {
			return err
		}
		defer client.Close(true)

		out := cmd.OutOrStdout()
		if err := drain(out, client.Session, connectIdle); err != nil {
			return err
		}
		for _, c := range connectCommands {
			if _, err := client.SendLine(c); err != nil {
				return fmt.Errorf("send %q: %w", c, err)
			}
			if err := drain(out, client.Session, connectIdle); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	connectCmd.Flags().StringArrayVarP(&connectCommands, "command", "c", nil, "command to run on the headnode (repeatable)")
	connectCmd.Flags().DurationVar(&connectIdle, "idle", 2*time.Second, "quiet period that ends a command's output")
	connectCmd.Flags().BoolVar(&connectNoWait, "no-wait", false, "send credentials without waiting for the prompts")
}
