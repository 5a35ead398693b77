package main

import (
	"context"
	"errors"

	"github.com/FranksOps/leadfinder/internal/serp"
	"github.com/FranksOps/leadfinder/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Web.Addr
			}

			mode, err := serp.ParseMode(a.cfg.Web.SearchMode)
			if err != nil {
				return err
			}
			limit, err := a.cfg.Web.Limit()
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx, a.cfg.Web.Dedupe)
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			p, err := a.buildPipeline(store, a.cfg.Web.FetchTimeout, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			srv, err := web.New(web.Config{
				Runner:    p,
				Store:     store,
				Mode:      mode,
				RateLimit: limit,
				Logger:    a.logger,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down web server")
			if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default web.addr)")
	return cmd
}
