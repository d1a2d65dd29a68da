package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/bokehpreview/internal/config"
	"github.com/user/bokehpreview/internal/daemon"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the preview daemon",
		Long: `Run the preview daemon. It accepts documents and commands on the control
API, owns the Bokeh server process and serves the preview panel page.
The Bokeh server is stopped when the daemon exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.EnsureToken(); err != nil {
		return err
	}
	if err := config.EnsureSettings(cfg.SettingsPath); err != nil {
		return err
	}

	d, err := daemon.New(cfg, daemon.Options{})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "\nbokehpreview running at %s/?token=%s\n\n", cfg.BaseURL(), cfg.Token)
	return d.Run(ctx)
}
