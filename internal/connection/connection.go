// Package connection opens an authenticated ssh session to the configured
// headnode.
package connection

import (
	"fmt"
	"log"

	"github.com/PiranhaCodes/webpty-expect/internal/auth"
	"github.com/PiranhaCodes/webpty-expect/internal/config"
	"github.com/PiranhaCodes/webpty-expect/internal/pty"
	"github.com/PiranhaCodes/webpty-expect/internal/ssh"
)

// Options tweaks Connect.
type Options struct {
	// Prompter overrides the terminal prompter used for missing secrets.
	Prompter auth.Prompter
	// NoWait sends the credentials without waiting for the prompts.
	NoWait bool
}

// Connect spawns ssh for cfg.Headnode and logs in with cfg.Auth. The
// returned client is ready for commands; the caller closes it.
func Connect(cfg *config.Config, opts Options) (*ssh.Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ptyOpts := pty.DefaultOptions()
	ptyOpts.Timeout = cfg.Headnode.Timeout.Duration()

	client := ssh.NewClient(cfg.Headnode.Host, cfg.Headnode.Args, ptyOpts)
	client.Command = cfg.Headnode.Command

	log.Printf("[SSH] Creating SSH connection to %s", cfg.Headnode.Host)
	if err := client.Connect(); err != nil {
		return nil, err
	}

	authenticator := auth.New(cfg.Auth)
	if opts.Prompter != nil {
		authenticator.WithPrompter(opts.Prompter)
	}
	if err := authenticator.Authenticate(client, !opts.NoWait); err != nil {
		if cerr := client.Close(true); cerr != nil {
			log.Printf("[SSH] Warning: failed to close session after login failure: %v", cerr)
		}
		return nil, fmt.Errorf("authenticate to %s: %w", cfg.Headnode.Host, err)
	}
	return client, nil
}
