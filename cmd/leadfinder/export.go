package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the lead store to a spreadsheet and reset it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			store, err := a.openStore(cmd.Context(), a.cfg.Store.Dedupe)
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			res, err := store.ExportAndReset(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Path == "" {
				fmt.Fprintln(out, "No data found to export.")
				return nil
			}
			fmt.Fprintf(out, "Exported %d leads to %s\n", res.Count, res.Path)
			fmt.Fprintln(out, "Lead database reset. Ready for new searches.")
			return nil
		},
	}
}
