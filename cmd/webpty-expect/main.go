// Package main is the entry point for webpty-expect.
package main

import (
	"fmt"
	"os"

	"github.com/PiranhaCodes/webpty-expect/cmd/webpty-expect/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		code := cmd.ExitCode(err)
		if code == 1 {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(code)
	}
}
