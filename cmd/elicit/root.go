package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Elicit/internal/config"
)

var version = "dev"

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "elicit",
		Short: "Elicit - find a user's favourite tuple with few questions",
		Long: `Elicit scans a dataset of numeric tuples and asks a preference oracle
pairwise questions until it has found the oracle's favourite tuple. Tuples
whose outcome is already implied by earlier answers are settled by a linear
feasibility check instead of a question.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newSearchCommand(a))
	cmd.AddCommand(newCompareCommand(a))
	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newOracleCommand(a))

	return cmd
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg
	a.logger = newLogger(cfg, logOut)
	slog.SetDefault(a.logger)
	return nil
}

// validate runs after command flags have been applied to the configuration.
func (a *app) validate() error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newRootCommand().ExecuteContext(ctx)
}
