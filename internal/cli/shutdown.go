package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskping/taskping/internal/config"
)

var shutdownAddr string

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop a running taskping server",
	RunE:  runShutdown,
}

func init() {
	shutdownCmd.Flags().StringVar(&shutdownAddr, "addr", "", "address of the running server (defaults to the configured listen address)")
}

func runShutdown(cmd *cobra.Command, args []string) error {
	addr := shutdownAddr
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		addr = cfg.ListenAddr
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post("http://"+addr+"/shutdown", "application/json", nil)
	if err != nil {
		return fmt.Errorf("reaching server at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server refused shutdown: %s", resp.Status)
	}

	fmt.Println("shutdown requested")
	return nil
}
