package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FranksOps/leadfinder/internal/extract"
	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/serp"
	"github.com/spf13/cobra"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search once and append the leads found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("query cannot be empty")
			}
			if mode == "" {
				mode = a.cfg.Search.Mode
			}
			m, err := serp.ParseMode(mode)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx, a.cfg.Store.Dedupe)
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			out := cmd.OutOrStdout()
			p, err := a.buildPipeline(store, 0, out)
			if err != nil {
				return err
			}
			p.OnExtract = func(r lead.SearchResult, res extract.Result) {
				if len(res.Emails) > 0 {
					fmt.Fprintf(out, "Found %d email(s) at %s\n", len(res.Emails), r.URL)
				} else {
					fmt.Fprintf(out, "No email at %s\n", r.URL)
				}
			}

			rep, err := p.Run(ctx, query, m)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d results, %d pages with email, %d candidate leads.\n",
				rep.Results, rep.PagesWithEmail(), len(rep.Candidates))
			fmt.Fprintf(out, "Database now contains %d unique leads.\n", len(rep.Rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "search mode: single or expanded (default search.mode)")
	return cmd
}
