// Package config loads the connection settings: which headnode to reach,
// how to invoke ssh, and where credentials come from.
//
// Settings are layered. Built-in defaults come first, then the user file
// (~/.odyssey/odyssey.yaml), then local files; each layer overrides only
// the keys it sets.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LocalFile is read from the working directory after every other layer.
const LocalFile = "odyssey.yaml"

// Config holds the full configuration.
type Config struct {
	Auth     AuthConfig     `yaml:"auth"`
	Headnode HeadnodeConfig `yaml:"headnode"`
}

// AuthConfig controls the password and one-time-token exchange.
type AuthConfig struct {
	// Secret is the base32 TOTP secret. Empty means prompt for the token.
	Secret string `yaml:"secret"`
	// Password is the account password. Empty means prompt for it.
	Password string `yaml:"password"`
	// PasswordPrompt is the literal text the server prints before the password.
	PasswordPrompt string `yaml:"password_prompt"`
	// TokenPrompt is the literal text printed before the verification code.
	TokenPrompt string `yaml:"token_prompt"`
	// MaxReadFails is how many empty reads are tolerated while waiting for a prompt.
	MaxReadFails int `yaml:"max_read_fails"`
}

// HeadnodeConfig describes the remote host and the ssh invocation.
type HeadnodeConfig struct {
	Host string `yaml:"host"`
	// Command overrides the ssh client found on $PATH.
	Command string   `yaml:"command"`
	Args    Args     `yaml:"args"`
	Timeout Duration `yaml:"timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			PasswordPrompt: "Password:",
			TokenPrompt:    "Verification code:",
			MaxReadFails:   10,
		},
		Headnode: HeadnodeConfig{
			Host:    "odyssey",
			Args:    Args{"-q"},
			Timeout: Duration(100 * time.Millisecond),
		},
	}
}

// UserPath returns the per-user config file path.
// Falls back to the current directory if home directory cannot be determined.
func UserPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".odyssey", LocalFile)
	}
	return filepath.Join(homeDir, ".odyssey", LocalFile)
}

// Load layers the user file, then local (if not empty), then LocalFile in
// the working directory over the defaults. Missing files are skipped.
func Load(local string) (*Config, error) {
	paths := []string{UserPath()}
	if local != "" {
		paths = append(paths, local)
	}
	paths = append(paths, LocalFile)
	return LoadFiles(paths...)
}

// LoadFiles layers the given files over the defaults in order.
func LoadFiles(paths ...string) (*Config, error) {
	cfg := DefaultConfig()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Printf("[CONFIG] Loaded %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings can drive a connection.
func (c *Config) Validate() error {
	if c.Headnode.Host == "" {
		return fmt.Errorf("headnode.host must be set")
	}
	if c.Headnode.Timeout <= 0 {
		return fmt.Errorf("headnode.timeout must be positive, got %s", c.Headnode.Timeout)
	}
	if c.Auth.MaxReadFails < 0 {
		return fmt.Errorf("auth.max_read_fails cannot be negative")
	}
	return nil
}
