// Package ssh runs the system ssh client on a pseudo-terminal so that its
// interactive login can be scripted.
package ssh

import (
	"fmt"
	"log"
	"strings"

	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

// Client is an ssh invocation driven through a pty session. The session
// methods (SendLine, ReadLine, ...) are available once Connect succeeds.
type Client struct {
	*pty.Session

	Host string
	// Command is the ssh executable; empty means look up "ssh" on $PATH.
	Command string
	Args    []string
	Options *pty.Options
}

// NewClient returns an unconnected client for host.
func NewClient(host string, args []string, opts *pty.Options) *Client {
	return &Client{
		Host:    host,
		Args:    args,
		Options: opts,
	}
}

// ParseArgs splits a whitespace-separated argument string.
func ParseArgs(s string) []string {
	return strings.Fields(s)
}

// BuildCommand returns the executable and arguments: the host first, then
// the configured arguments.
func (c *Client) BuildCommand() (string, []string, error) {
	cmd := c.Command
	if cmd == "" {
		path, err := pty.Which("ssh")
		if err != nil {
			return "", nil, fmt.Errorf("locate ssh: %w", err)
		}
		cmd = path
	}
	args := append([]string{c.Host}, c.Args...)
	return cmd, args, nil
}

// Connect spawns the ssh client.
func (c *Client) Connect() error {
	if c.Session != nil {
		return fmt.Errorf("already connected to %s", c.Host)
	}
	cmd, args, err := c.BuildCommand()
	if err != nil {
		return err
	}
	log.Printf("[SSH] Connecting to %s: %s %s", c.Host, cmd, strings.Join(args, " "))
	sess, err := pty.Spawn(cmd, args, c.Options)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.Host, err)
	}
	c.Session = sess
	return nil
}

// Close closes the session if there is one.
func (c *Client) Close(force bool) error {
	if c.Session == nil {
		return nil
	}
	return c.Session.Close(force)
}
