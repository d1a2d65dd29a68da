package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/bokehpreview/internal/extension"
)

func newEditorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Set or clear the daemon's active editor",
	}
	cmd.AddCommand(newEditorSetCmd(), newEditorClearCmd())
	return cmd
}

func newEditorSetCmd() *cobra.Command {
	var column int
	cmd := &cobra.Command{
		Use:   "set <file>",
		Short: "Make a file the active editor without running any command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", args[0], err)
			}
			text, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.SetEditor(cmd.Context(), extension.Editor{Path: path, Text: string(text), Column: column}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active editor: %s\n", path)
			return nil
		},
	}
	cmd.Flags().IntVar(&column, "column", 1, "view column to show the panel in")
	return cmd
}

func newEditorClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Leave the daemon with no active editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.ClearEditor(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "active editor cleared")
			return nil
		},
	}
}
