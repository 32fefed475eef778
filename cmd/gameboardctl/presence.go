package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newPresenceCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Inspect or reset the presence registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every registered participant, stale entries included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := e.registry()
			entries, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No participants registered")
				return nil
			}

			now := time.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NICKNAME\tID\tJOINED\tSTATUS")
			for _, entry := range entries {
				status := "live"
				if entry.Expired(now, reg.TTL()) {
					status = "expired"
				}
				joined := time.UnixMilli(entry.JoinedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.Nickname, entry.ParticipantID, joined, status)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove every entry whose id matches exactly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.registry().Unregister(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed participant %q\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.registry().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Presence registry cleared")
			return nil
		},
	})

	return cmd
}
