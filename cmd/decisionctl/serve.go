package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/decisionmaker/internal/identity"
	"github.com/danielpatrickdp/decisionmaker/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// newServeIdentityCmd serves the local user and the profiles table over gRPC
// so other processes can point identity.addr at it.
func newServeIdentityCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve-identity",
		Short: "Serve the identity and profile services over gRPC",
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

			addr := a.cfg.Identity.Listen
			if cmd.Flags().Changed("listen") {
				addr = listen
			}
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			srv := grpc.NewServer()
			backend := identity.NewBackend(session.NewStaticIdentity(a.cfg.Identity.LocalUser), store.Profiles())
			health := identity.Register(srv, backend)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.log.Info("identity service listening",
					zap.String("addr", lis.Addr().String()),
					zap.String("user", a.cfg.Identity.LocalUser),
				)
				return srv.Serve(lis)
			})
			g.Go(func() error {
				<-gctx.Done()
				a.log.Info("shutting down identity service")
				health.Shutdown()
				srv.GracefulStop()
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default identity.listen)")
	return cmd
}
