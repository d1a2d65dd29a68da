package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/bokehpreview/internal/client"
	"github.com/user/bokehpreview/internal/detect"
	"github.com/user/bokehpreview/internal/extension"
	"github.com/user/bokehpreview/internal/follow"
)

type previewOptions struct {
	column int
	follow bool
}

func newPreviewCmd() *cobra.Command {
	opts := &previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Send a document to the daemon and run the preview command",
		Long: `Send a document to the daemon as the active editor and run the
extension.bokehPreview command. With --follow the command is re-run every
time the file is saved while it is a Bokeh server entry point.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.column, "column", 1, "view column to show the panel in")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "re-run the preview whenever the file changes")
	return cmd
}

func runPreview(cmd *cobra.Command, file string, opts *previewOptions) error {
	path, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	err = sendPreview(cmd.Context(), c, out, extension.Editor{Path: path, Text: string(text), Column: opts.column})
	if !opts.follow {
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(out, "following %s (Ctrl-C to stop)\n", path)
	return follow.Watch(ctx, path, follow.DefaultDebounce, func(text string) {
		if !detect.Detect(path, text).Applicable {
			slog.Debug("skipping change, not a bokeh entry point", "path", path)
			return
		}
		ed := extension.Editor{Path: path, Text: text, Column: opts.column}
		if err := sendPreview(ctx, c, out, ed); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	})
}

func sendPreview(ctx context.Context, c *client.Client, out io.Writer, ed extension.Editor) error {
	st, err := c.Preview(ctx, ed)
	if err != nil {
		if client.IsStatus(err, http.StatusUnprocessableEntity) {
			return fmt.Errorf("nothing to preview: %w", err)
		}
		return err
	}

	fmt.Fprintf(out, "serving %s (%s)\n", st.Session.Dir, st.Session.State)
	if st.Session.Pending != "" {
		fmt.Fprintf(out, "restarting for %s\n", st.Session.Pending)
	}
	if st.Panel != nil {
		fmt.Fprintf(out, "panel: %s\n", c.PanelURL(st.PanelURL))
	}
	return nil
}
