package pty

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Which returns the first executable called name found on $PATH.
func Which(name string) (string, error) {
	return WhichIn(name, filepath.SplitList(os.Getenv("PATH")))
}

// WhichIn searches dirs in order for an executable called name. The
// returned NotFoundError lists the directories that were checked.
func WhichIn(name string, dirs []string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", &NotFoundError{Name: name, SearchPath: dirs}
}

// DetectShell finds the first available shell in order of preference:
// 1. $SHELL environment variable
// 2. /bin/bash
// 3. /bin/zsh
// 4. /bin/sh
// Returns an error if none are found.
func DetectShell() (string, error) {
	if shell := os.Getenv("SHELL"); shell != "" {
		if isExecutable(shell) {
			return shell, nil
		}
	}

	candidates := []string{
		"/bin/bash",
		"/bin/zsh",
		"/bin/sh",
	}

	for _, candidate := range candidates {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no shell found: checked $SHELL, /bin/bash, /bin/zsh, /bin/sh")
}

// isExecutable checks if path is a regular file we may execute.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
