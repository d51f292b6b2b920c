// Command turnlink runs a headless game client against a server and offers
// small tools for inspecting the wire format.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "turnlink",
		Short: "Headless client for turn-based game servers",
		Long: `turnlink connects to a turn-based game server, keeps the session alive
through heartbeats and reconnects, and reports connection quality.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a turnlink.yaml config file")

	rootCmd.AddCommand(
		connectCmd(&configPath),
		decodeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func createLogger() *zap.Logger {
	logger := zap.Must(zap.NewProduction())
	if os.Getenv("APP_ENV") != "production" {
		logger = zap.Must(zap.NewDevelopment())
	}
	return logger
}
