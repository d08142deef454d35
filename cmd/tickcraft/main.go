// tickcraft runs and inspects a deterministic container/device tick engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tickcraft.ai/internal/logging"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var (
	logLevel  string
	configDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tickcraft",
	Short:         "Container transfer and tick engine",
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error); serve uses tuning.yaml log_level once loaded")
	rootCmd.PersistentFlags().StringVar(&configDir, "configs", "./configs", "catalog and tuning directory")
}

func newLogger() (*logging.Logger, error) {
	return logging.New(logLevel)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
