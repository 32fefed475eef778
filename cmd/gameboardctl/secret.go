package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSecretCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage encrypted API key slots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <slot> <value>",
		Short: "Encrypt value and store it in slot, replacing any previous value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := e.vault()
			if err != nil {
				return err
			}
			if err := v.SetSecret(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Secret stored in slot %q\n", args[0])
			return nil
		},
	})

	var reveal bool
	getCmd := &cobra.Command{
		Use:   "get <slot>",
		Short: "Decrypt the secret in slot and print it masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := e.vault()
			if err != nil {
				return err
			}
			value, err := v.GetSecret(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !reveal {
				value = maskSecret(value)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	getCmd.Flags().BoolVar(&reveal, "reveal", false, "print the full plaintext")
	cmd.AddCommand(getCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "slots",
		Short: "List configured slot names and their storage names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := e.vault()
			if err != nil {
				return err
			}
			for _, slot := range v.Slots() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", slot, e.cfg.SecretSlots[slot])
			}
			return nil
		},
	})

	return cmd
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
