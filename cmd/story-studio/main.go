// main package for the story-studio service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/spf13/cobra"

	"github.com/book-expert/story-studio/internal/config"
)

const (
	bootstrapLogFile = "story-studio-bootstrap.log"
	serviceLogFile   = "story-studio.log"
)

var configPath string

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

// loadConfig runs the bootstrap sequence: a temporary logger, the
// configuration, then the final logger under the configured log directory.
func loadConfig() (*config.Config, *logger.Logger, error) {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return nil, nil, err
	}

	defer func() {
		_ = bootstrapLog.Close()
	}()

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFile(configPath, bootstrapLog)
	} else {
		cfg, err = config.Load(bootstrapLog)
	}

	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return nil, nil, err
	}

	return cfg, finalLog, nil
}

func closeLogger(log *logger.Logger) {
	closeErr := log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "story-studio",
		Short:         "Story, podcast, speech and illustration studio",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML configuration file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP studio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer closeLogger(log)

			return runServer(cmd.Context(), cfg, log)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "worker",
		Short: "Answer speech requests published on NATS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer closeLogger(log)

			return runWorker(cmd.Context(), cfg, log)
		},
	})

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
