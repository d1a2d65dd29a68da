package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the Bokeh output channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			out, err := c.Output(cmd.Context(), plain)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "strip terminal escape sequences")
	return cmd
}
