package main

import (
	"fmt"
	"os"

	"github.com/danielpatrickdp/decisionmaker/internal/config"
	"github.com/danielpatrickdp/decisionmaker/internal/identity"
	"github.com/danielpatrickdp/decisionmaker/internal/logging"
	"github.com/danielpatrickdp/decisionmaker/internal/session"
	"github.com/danielpatrickdp/decisionmaker/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "decisionctl",
		Short:         "Weighted-criteria decision helper",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newInspectCmd(opts))
	root.AddCommand(newProfileCmd(opts))
	root.AddCommand(newReplayCmd(opts))
	root.AddCommand(newServeIdentityCmd(opts))
	return root
}

// #endregion main

// #region app
// app carries what every subcommand needs after flag parsing.
type app struct {
	cfg config.Config
	log *zap.Logger
}

func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	log, err := logging.NewLogger(level)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func (a *app) openStore() (*storage.Store, error) {
	store, err := storage.NewStore(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.Database.Path, err)
	}
	return store, nil
}

// identityFor picks the remote identity service when an address is configured,
// otherwise the local single user backed by the profiles table.
func (a *app) identityFor(store *storage.Store) (session.IdentityProvider, session.ProfileStore, func() error, error) {
	if a.cfg.Identity.Addr == "" {
		a.log.Debug("using local identity", zap.String("user", a.cfg.Identity.LocalUser))
		return session.NewStaticIdentity(a.cfg.Identity.LocalUser), store.Profiles(), func() error { return nil }, nil
	}
	client, err := identity.NewClient(a.cfg.Identity.Addr)
	if err != nil {
		return nil, nil, nil, err
	}
	a.log.Debug("using identity service", zap.String("addr", a.cfg.Identity.Addr))
	return client, client, client.Close, nil
}

// #endregion app
