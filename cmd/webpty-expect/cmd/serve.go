package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PiranhaCodes/webpty-expect/internal/api"
	"github.com/PiranhaCodes/webpty-expect/internal/pty"
)

var socketPath string

// serveCmd runs the socket daemon.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pty sessions on a UNIX socket",
	Long: `Listens on a UNIX socket for JSON requests (spawn, send, sendline,
sendcontrol, read, readline, resize, alive, wait, terminate, close, list).
SIGINT or SIGTERM closes every session and stops the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The daemon always logs.
		log.SetOutput(os.Stderr)

		path, err := expandPath(socketPath)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create socket directory: %w", err)
		}

		server := api.NewServer(path, pty.DefaultManager)
		if err := server.Listen(); err != nil {
			return fmt.Errorf("listen on %s: %w", path, err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Serve()
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case <-sigChan:
			log.Println("[API] Shutting down server...")
		case err := <-errCh:
			pty.DefaultManager.CloseAll(true)
			return err
		}

		pty.DefaultManager.CloseAll(true)
		server.Stop()
		log.Println("[API] Server shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&socketPath, "socket", "~/.webpty/expect.sock", "path to the UNIX socket")
}
