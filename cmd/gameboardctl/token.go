package main

import (
	"errors"
	"fmt"
	"gameboard-server/handlers/auth"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage admin tokens",
	}

	var (
		subject string
		ttl     time.Duration
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a signed admin token for the secret and proxy routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.AdminJWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}
			issuer, err := auth.New([]byte(e.cfg.AdminJWTSecret))
			if err != nil {
				return err
			}
			token, err := issuer.Issue(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.AddCommand(issueCmd)

	return cmd
}
