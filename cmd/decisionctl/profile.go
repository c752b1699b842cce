package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProfileCmd(opts *rootOptions) *cobra.Command {
	profile := &cobra.Command{Use: "profile", Short: "Manage local user profiles"}

	profile.AddCommand(&cobra.Command{
		Use:   "set <user-id> <display-name>",
		Short: "Create or rename a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := store.Profiles().Upsert(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "profile %s = %s\n", args[0], args[1])
			return nil
		},
	})

	profile.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Print a profile display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			name, ok, err := store.Profiles().DisplayName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no profile for %s", args[0])
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	})

	profile.AddCommand(&cobra.Command{
		Use:   "delete <user-id>",
		Short: "Remove a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			return store.Profiles().Delete(cmd.Context(), args[0])
		},
	})

	return profile
}
