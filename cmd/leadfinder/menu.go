package main

import (
	"os"

	"github.com/FranksOps/leadfinder/internal/cli"
	"github.com/FranksOps/leadfinder/internal/serp"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newMenuCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Run the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMenu(cmd, opts.app)
		},
	}
}

func runMenu(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx, a.cfg.Store.Dedupe)
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	p, err := a.buildPipeline(store, 0, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	mode, err := serp.ParseMode(a.cfg.Search.Mode)
	if err != nil {
		return err
	}

	m := &cli.Menu{
		In:     cmd.InOrStdin(),
		Out:    cmd.OutOrStdout(),
		Runner: p,
		Store:  store,
		Mode:   mode,
		Color:  isatty.IsTerminal(os.Stdout.Fd()),
		Logger: a.logger,
	}
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
