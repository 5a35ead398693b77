package main

import (
	"context"

	"github.com/FranksOps/leadfinder/internal/metrics"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath  string
	logLevel    string
	metricsPort int

	app     *app
	metrics *metrics.Server
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "leadfinder",
		Short: "Find business leads and their contact emails",
		Long: `leadfinder searches Brave (with a DuckDuckGo fallback) for a query, visits
every result page, collects the email addresses it finds and appends them to a
deduplicated lead store. Run without a subcommand for the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd)
			if err != nil {
				return err
			}
			opts.app = a
			if a.cfg.Metrics.Port > 0 {
				opts.metrics = metrics.Start(a.cfg.Metrics.Port, a.logger)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.metrics.Stop(context.Background())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMenu(cmd, opts.app)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./leadfinder.yaml if present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.IntVar(&opts.metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")

	cmd.AddCommand(
		newMenuCmd(opts),
		newSearchCmd(opts),
		newExportCmd(opts),
		newCountCmd(opts),
		newReportCmd(opts),
		newServeCmd(opts),
		newSecretCmd(),
	)
	return cmd
}
