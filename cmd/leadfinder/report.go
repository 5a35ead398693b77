package main

import (
	"fmt"
	"time"

	"github.com/FranksOps/leadfinder/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise the lead store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			store, err := a.openStore(cmd.Context(), a.cfg.Store.Dedupe)
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			rows, _, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			summary := report.GenerateSummary(rows, time.Now())

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				return report.WriteText(out, summary)
			case "json":
				return report.WriteJSON(out, summary)
			case "html":
				return report.WriteHTML(out, summary)
			default:
				return fmt.Errorf("unknown report format %q (want text, json or html)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or html")
	return cmd
}
