package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/bokehpreview/internal/api"
	"github.com/user/bokehpreview/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the Bokeh server and panel state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), c, st, time.Now())
			return nil
		},
	}
}

func printStatus(w io.Writer, c *client.Client, st *api.StatusResponse, now time.Time) {
	s := st.Session
	fmt.Fprintf(w, "server:   %s\n", s.State)
	if s.PID != 0 {
		fmt.Fprintf(w, "pid:      %d\n", s.PID)
	}
	if s.Dir != "" {
		fmt.Fprintf(w, "dir:      %s\n", s.Dir)
	}
	if s.StartedAt != nil {
		fmt.Fprintf(w, "started:  %s\n", humanize.RelTime(*s.StartedAt, now, "ago", "from now"))
	}
	if s.Pending != "" {
		fmt.Fprintf(w, "pending:  %s\n", s.Pending)
	}
	if s.LastExit != nil {
		fmt.Fprintf(w, "exit:     %d\n", *s.LastExit)
	}
	fmt.Fprintf(w, "spawns:   %d\n", s.Spawns)
	fmt.Fprintf(w, "url:      %s\n", st.ServerURL)

	if st.Panel != nil {
		fmt.Fprintf(w, "panel:    %s\n", c.PanelURL(st.PanelURL))
	} else {
		fmt.Fprintln(w, "panel:    closed")
	}

	if st.Output.Created {
		fmt.Fprintf(w, "output:   %s (%s)\n", st.Output.Name, humanize.Bytes(uint64(st.Output.Size)))
	} else {
		fmt.Fprintf(w, "output:   %s (empty)\n", st.Output.Name)
	}
}
