package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print how many leads the store holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			store, err := a.openStore(cmd.Context(), a.cfg.Store.Dedupe)
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			n, ok, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Database is empty.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current database has %d leads.\n", n)
			return nil
		},
	}
}
