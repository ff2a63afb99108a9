// Package main is the momentfeed command-line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"momentfeed/cmd/app"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/config"
	"momentfeed/internal/notify"
)

const (
	Version = "0.1.0"
	appName = "feed"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apperrors.UserMessage(err, err.Error()))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Client for the moments feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (overrides FEED_CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		loginCmd(opts),
		logoutCmd(opts),
		whoamiCmd(opts),
		feedCmd(opts),
		deleteCmd(opts),
		commentCmd(opts),
		postCmd(opts),
		uploadCmd(opts),
		usersCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// run builds the client, restores the cached session and hands both to fn.
// With requireAuth set, fn only runs for a signed-in user.
func run(cmd *cobra.Command, opts *rootOptions, requireAuth bool, fn func(ctx context.Context, a *app.App) error) error {
	if opts.configPath != "" {
		os.Setenv("FEED_CONFIG_FILE", opts.configPath)
	}
	cfg := config.LoadConfig()
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger := app.NewLogger(cfg.LogLevel, os.Stderr)
	notifier := notify.NewWriterNotifier(cmd.ErrOrStderr())

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger, notifier)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Init(ctx); err != nil {
		return err
	}
	if err := a.Session.Refresh(ctx); err != nil {
		return err
	}
	if requireAuth && !a.Session.Snapshot().IsAuthenticated {
		return fmt.Errorf("not logged in, run `%s login` first", appName)
	}
	return fn(ctx, a)
}
