package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/leadfinder/internal/config"
	"github.com/FranksOps/leadfinder/internal/extract"
	"github.com/FranksOps/leadfinder/internal/fingerprint"
	"github.com/FranksOps/leadfinder/internal/leadstore"
	"github.com/FranksOps/leadfinder/internal/pipeline"
	"github.com/FranksOps/leadfinder/internal/scraper"
	"github.com/FranksOps/leadfinder/internal/secrets"
	"github.com/FranksOps/leadfinder/internal/serp"
	"github.com/FranksOps/leadfinder/internal/storage"
	"github.com/FranksOps/leadfinder/internal/storage/csvbackend"
	"github.com/FranksOps/leadfinder/internal/storage/jsonbackend"
	"github.com/FranksOps/leadfinder/internal/storage/postgres"
	"github.com/FranksOps/leadfinder/internal/storage/sqlite"
	"github.com/FranksOps/leadfinder/pkg/proxy"
	"github.com/FranksOps/leadfinder/pkg/useragent"
	"github.com/spf13/cobra"
)

// app holds what every command shares once flags and config are resolved.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func loadApp(opts *rootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("metrics-port") {
		cfg.Metrics.Port = opts.metricsPort
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format: unknown format %q", format)
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Store.Backend {
	case "csv":
		return csvbackend.New(cfg.Store.Path)
	case "json":
		return jsonbackend.New(cfg.Store.Path)
	case "sqlite":
		return sqlite.New(cfg.Store.Path)
	case "postgres":
		return postgres.New(ctx, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openStore opens the configured backend with the given dedupe policy.
func (a *app) openStore(ctx context.Context, dedupe string) (*leadstore.Store, error) {
	policy, err := leadstore.ParsePolicy(dedupe)
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	return leadstore.New(backend, leadstore.Options{
		Policy:     policy,
		LockPath:   a.cfg.LockPath(),
		ExportPath: a.cfg.Export.Path,
		Logger:     a.logger,
	}), nil
}

func (a *app) proxyPool() (*proxy.Pool, error) {
	f := a.cfg.Fetch
	if len(f.Proxies) == 0 && f.ProxiesFile == "" {
		return nil, nil
	}
	pool := proxy.NewPool(proxy.Config{})
	if err := pool.Add(f.Proxies...); err != nil {
		return nil, fmt.Errorf("fetch.proxies: %w", err)
	}
	if f.ProxiesFile != "" {
		if err := pool.LoadFile(f.ProxiesFile); err != nil {
			return nil, fmt.Errorf("fetch.proxies_file: %w", err)
		}
	}
	if pool.Len() == 0 {
		return nil, nil
	}
	a.logger.Info("rotating page fetches through proxies", "count", pool.Len())
	return pool, nil
}

// buildPipeline wires fetcher, extractor, providers and store. fetchTimeout
// overrides fetch.timeout when positive.
func (a *app) buildPipeline(store *leadstore.Store, fetchTimeout time.Duration, out io.Writer) (*pipeline.Pipeline, error) {
	cfg := a.cfg
	if fetchTimeout <= 0 {
		fetchTimeout = cfg.Fetch.Timeout
	}

	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return nil, err
	}
	proxies, err := a.proxyPool()
	if err != nil {
		return nil, err
	}
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      fetchTimeout,
		ProxyPool:    proxies,
		UAPool:       useragent.NewPool(cfg.Fetch.UserAgents),
		Fingerprint:  profile,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(extract.Config{
		Fetcher:       fetcher,
		RespectRobots: cfg.Fetch.RespectRobots,
		Timeout:       fetchTimeout,
		Logger:        a.logger,
	})
	if err != nil {
		return nil, err
	}

	key, err := secrets.BraveAPIKey(cfg)
	if err != nil {
		a.logger.Warn("no brave api key available, relying on duckduckgo", "err", err)
	}
	brave, err := serp.NewBrave(serp.BraveConfig{
		Endpoint: cfg.Brave.Endpoint,
		APIKey:   key,
		Timeout:  cfg.Brave.Timeout,
	})
	if err != nil {
		return nil, err
	}
	ddg, err := serp.NewDuckDuckGo(serp.DuckDuckGoConfig{
		Endpoint: cfg.DuckDuckGo.Endpoint,
		Timeout:  cfg.DuckDuckGo.Timeout,
	})
	if err != nil {
		return nil, err
	}

	orch := serp.NewOrchestrator(brave, ddg, serp.OrchestratorConfig{
		Count:             cfg.Search.Count,
		FallbackThreshold: cfg.Search.FallbackThreshold,
		Pages:             cfg.Search.Expanded.Pages,
		PageCount:         cfg.Search.Expanded.Count,
		MaxOffset:         cfg.Search.Expanded.MaxOffset,
		Delay:             cfg.Search.Expanded.Delay,
		Variants:          cfg.Search.Expanded.Variants,
		Logger:            a.logger,
		OnVariant: func(i, n int, variant string) {
			fmt.Fprintf(out, "Searching variant %d/%d: %s\n", i, n, variant)
		},
	})

	return &pipeline.Pipeline{
		Searcher:    orch,
		Extractor:   extractor,
		Store:       store,
		Concurrency: cfg.Fetch.Concurrency,
		Logger:      a.logger,
	}, nil
}

func (a *app) closeStore(store *leadstore.Store) {
	if err := store.Close(); err != nil {
		a.logger.Warn("closing lead store", "err", err)
	}
}
