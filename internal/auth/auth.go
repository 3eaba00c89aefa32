// Package auth answers the interactive login of a headnode: it waits for
// the password prompt, sends the password, waits for the verification
// code prompt and sends a one-time token.
package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/term"

	"github.com/PiranhaCodes/webpty-expect/internal/config"
	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

// ErrPromptNotSeen is returned when a prompt does not show up before the
// allowed number of empty reads is used up.
var ErrPromptNotSeen = errors.New("prompt not seen")

// Conn is the part of a session the authenticator drives.
type Conn interface {
	ReadLine(delimiter string, maxChars int) (string, error)
	SendLine(text string) (int, error)
}

// Prompter asks the local user for a secret.
type Prompter func(prompt string) (string, error)

// Authenticator performs the password + one-time token login.
type Authenticator struct {
	cfg    config.AuthConfig
	prompt Prompter
	now    func() time.Time
}

// New returns an Authenticator that prompts on the terminal for anything
// cfg leaves empty.
func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		cfg:    cfg,
		prompt: TerminalPrompter,
		now:    time.Now,
	}
}

// WithPrompter replaces the interactive prompter.
func (a *Authenticator) WithPrompter(p Prompter) *Authenticator {
	a.prompt = p
	return a
}

// Password returns the configured password or asks for one.
func (a *Authenticator) Password() (string, error) {
	if a.cfg.Password != "" {
		return a.cfg.Password, nil
	}
	return a.prompt("Password: ")
}

// Token returns the current TOTP code for the configured secret, or asks
// for a token when no secret is configured.
func (a *Authenticator) Token() (string, error) {
	if a.cfg.Secret == "" {
		return a.prompt("Verification code: ")
	}
	code, err := totp.GenerateCode(a.cfg.Secret, a.now())
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return code, nil
}

// Authenticate runs the login exchange on conn. With wait unset the
// answers are sent without looking for the prompts first.
func (a *Authenticator) Authenticate(conn Conn, wait bool) error {
	password, err := a.Password()
	if err != nil {
		return err
	}
	if wait {
		if err := WaitUntil(conn, a.cfg.PasswordPrompt, a.cfg.MaxReadFails); err != nil {
			return err
		}
	}
	if _, err := conn.SendLine(password); err != nil {
		return fmt.Errorf("send password: %w", err)
	}
	log.Printf("[AUTH] Password sent")

	if wait {
		if err := WaitUntil(conn, a.cfg.TokenPrompt, a.cfg.MaxReadFails); err != nil {
			return err
		}
	}
	// Generated only now so the code is as fresh as possible.
	token, err := a.Token()
	if err != nil {
		return err
	}
	if _, err := conn.SendLine(token); err != nil {
		return fmt.Errorf("send token: %w", err)
	}
	log.Printf("[AUTH] Verification code sent")
	return nil
}

// WaitUntil reads lines from conn until their concatenation contains
// prompt. Every empty read counts as a failure; more than maxFails of
// them gives up with ErrPromptNotSeen.
func WaitUntil(conn Conn, prompt string, maxFails int) error {
	var seen strings.Builder
	fails := 0
	for !strings.Contains(seen.String(), prompt) {
		line, err := conn.ReadLine(pty.DefaultDelimiter, pty.DefaultMaxChars)
		seen.WriteString(line)
		if err != nil {
			return fmt.Errorf("waiting for %q: %w", prompt, err)
		}
		if line == "" {
			fails++
			if fails > maxFails {
				return fmt.Errorf("failed to read %q: %w", prompt, ErrPromptNotSeen)
			}
		}
	}
	return nil
}

// TerminalPrompter asks on stderr and reads the answer from stdin, hiding
// it when stdin is a terminal.
func TerminalPrompter(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	return readSecret(os.Stdin)
}

func readSecret(stdin *os.File) (string, error) {
	if term.IsTerminal(int(stdin.Fd())) {
		b, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
