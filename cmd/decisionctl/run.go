package main

import (
	"context"
	"fmt"
	"io"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
	"github.com/danielpatrickdp/decisionmaker/internal/flow"
	"github.com/danielpatrickdp/decisionmaker/internal/gate"
	"github.com/danielpatrickdp/decisionmaker/internal/identity"
	"github.com/danielpatrickdp/decisionmaker/internal/logging"
	"github.com/danielpatrickdp/decisionmaker/internal/session"
	"github.com/danielpatrickdp/decisionmaker/internal/storage"
	"github.com/danielpatrickdp/decisionmaker/internal/trail"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// #region run-cmd
func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Walk through a decision interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			idp, profiles, closeIdentity, err := a.identityFor(store)
			if err != nil {
				return err
			}
			defer closeIdentity()

			return runSession(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a, store, idp, profiles)
		},
	}
}

// #endregion run-cmd

// #region run-session
// runSession wires one flow and runs the REPL alongside the background auth
// verification. It returns when the REPL ends.
func runSession(ctx context.Context, in io.Reader, out io.Writer, a *app, store *storage.Store,
	idp session.IdentityProvider, profiles session.ProfileStore) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := session.NewBridge(idp, profiles, store.Slots(), session.WithLogger(a.log))
	f := flow.New(
		draft.NewStore(draft.WithLogger(a.log)),
		gate.NewGate(a.cfg.GateConfig()),
		bridge,
		flow.WithRouter(trail.RouterFunc(func(path, label string) {
			fmt.Fprintf(out, "-> %s (%s)\n", label, path)
		})),
		flow.WithArchive(store),
		flow.WithTransitionLog(logging.NewRecorder(store.DB())),
		flow.WithLogger(a.log),
	)
	defer f.Close()

	if c, ok := idp.(*identity.Client); ok {
		if err := c.Healthy(ctx); err != nil {
			a.log.Warn("identity service not healthy", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	verified := f.Start(gctx)

	// The lookup runs on gctx, so it ends once the REPL cancels.
	g.Go(func() error {
		if snap, ok := <-verified; ok {
			a.log.Info("auth resolved",
				zap.String("status", string(snap.Status)),
				zap.String("phase", string(snap.Phase)),
			)
		}
		return nil
	})

	r := &repl{flow: f, history: store, out: out}
	g.Go(func() error {
		defer cancel()
		return r.loop(gctx, in)
	})
	return g.Wait()
}

// #endregion run-session
