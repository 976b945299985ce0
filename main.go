// TeamBoard is a shared whiteboard: every client keeps the full board and
// broadcasts it after each local edit.
//
// Usage:
//
//	# Start a relay for the local network and print a share link
//	teamboard relay --session design-review --advertise
//
//	# Open a board
//	teamboard board --session design-review
//	teamboard board --join teamboard://192.168.1.20:8888/design-review
//
//	# Place AI suggestions on a running board
//	teamboard ideas --session website-redesign --place
//
//	# Render a saved board
//	teamboard export board.json --format png,pdf
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"TeamBoard/internal/config"
	"TeamBoard/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "teamboard",
	Short: "Shared whiteboard for small teams",
	Long: `TeamBoard keeps a whiteboard in sync between everyone who joins the same
session. Boards replicate over NATS or through a websocket relay on the local
network.`,
	Version:       fmt.Sprintf("%s (%s)", version, gitCommit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TEAMBOARD_CONFIG"), "path to a YAML config file")

	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger every command shares.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
