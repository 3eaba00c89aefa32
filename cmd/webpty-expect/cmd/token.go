package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PiranhaCodes/webpty-expect/internal/auth"
)

// tokenCmd prints the current one-time token.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the current verification code",
	Long: `Prints the time-based one-time token derived from auth.secret, the same
code connect sends at the verification prompt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.Secret == "" {
			return errors.New("no auth.secret configured")
		}
		code, err := auth.New(cfg.Auth).Token()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}
