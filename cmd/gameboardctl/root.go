package main

import (
	"fmt"
	"gameboard-server/config"
	"gameboard-server/core"
	"gameboard-server/presence"
	"gameboard-server/stores"
	"gameboard-server/vault"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// env holds what the subcommands share once the root has loaded configuration.
type env struct {
	cfg   *config.Config
	store core.LockedBlobStore
}

func (e *env) vault() (*vault.Vault, error) {
	return vault.New(e.store, e.cfg.VaultKey, e.cfg.SecretSlots)
}

func (e *env) registry() *presence.Registry {
	return presence.NewRegistry(e.store,
		presence.WithBlobName(e.cfg.PresenceFile),
		presence.WithTTL(e.cfg.PresenceTTL),
	)
}

func newRootCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		verbose bool
		e       = &env{}
	)

	root := &cobra.Command{
		Use:   "gameboardctl",
		Short: "Operate a gameboard server's presence registry and secret vault.",
		Long: `gameboardctl reads the same environment (and .env file) as the server and
works directly against its storage backend.

Available Commands:
  secret     Set or read an encrypted API key slot
  presence   Inspect or reset the presence registry
  token      Issue admin tokens for the HTTP API
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logrus.SetOutput(cmd.ErrOrStderr())
			logrus.SetLevel(logrus.WarnLevel)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			cfg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			store, err := stores.GetStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			e.cfg, e.store = cfg, store
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c, ok := e.store.(io.Closer); ok {
				return c.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(newSecretCmd(e))
	root.AddCommand(newPresenceCmd(e))
	root.AddCommand(newTokenCmd(e))
	return root
}
