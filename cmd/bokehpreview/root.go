package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/user/bokehpreview/internal/client"
	"github.com/user/bokehpreview/internal/config"
)

// version is set via build-time ldflags
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bokehpreview",
		Short: "Preview Bokeh server apps next to your editor",
		Long: `bokehpreview runs "python -m bokeh serve <dir> --dev" for the Bokeh app you
are editing and shows it in a preview panel.

Start the daemon with 'bokehpreview serve', then send documents to it with
'bokehpreview preview path/to/main.py' or from an editor through the
control API.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	config.AddFlags(root.PersistentFlags())
	root.PersistentFlags().String("log-level", "info", "daemon log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(),
		newPreviewCmd(),
		newDetectCmd(),
		newStatusCmd(),
		newLogsCmd(),
		newEditorCmd(),
		newCommandsCmd(),
		newRunCmd(),
	)
	return root
}

// setupLogging installs the default slog logger: text on a terminal, JSON
// otherwise.
func setupLogging(cmd *cobra.Command, _ []string) error {
	levelName, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// newClient builds an API client from the same configuration the daemon
// reads.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("no token configured in %s; start the daemon with 'bokehpreview serve' first", cfg.ConfigPath)
	}
	return client.New(cfg.BaseURL(), cfg.Token), nil
}
