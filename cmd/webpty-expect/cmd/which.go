package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

// whichCmd resolves a command name against $PATH.
var whichCmd = &cobra.Command{
	Use:   "which <name>",
	Short: "Print the executable a command name resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pty.Which(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
