package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/bokehpreview/internal/detect"
)

var errNotApplicable = errors.New("not a bokeh server entry point")

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Check whether a file is a Bokeh server entry point",
		Long: `Check whether a file is a Bokeh server entry point and print the directory
that would be served. Exits non-zero when it is not. Does not need the daemon.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			res := detect.Detect(args[0], string(text))
			if !res.Applicable {
				return fmt.Errorf("%w: %s", errNotApplicable, res.Reason)
			}
			dir := res.Dir
			if dir == "" {
				dir = "."
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
