package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/user/bokehpreview/internal/client"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the commands registered with the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			ids, err := c.Commands(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command>",
		Short: "Run a registered command against the active editor",
		Long: `Run a registered command against the document last sent with
'bokehpreview editor set'. 'bokehpreview commands' lists the ids.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			st, err := c.Execute(cmd.Context(), args[0])
			if err != nil {
				if client.IsStatus(err, http.StatusNotFound) {
					return fmt.Errorf("%w (see 'bokehpreview commands')", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server: %s\n", st.Session.State)
			if st.Panel != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "panel: %s\n", c.PanelURL(st.PanelURL))
			}
			return nil
		},
	}
}
