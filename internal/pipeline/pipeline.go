// Package pipeline runs one lead search end to end: search, per-result email
// extraction, then append to the lead store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FranksOps/leadfinder/internal/extract"
	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/serp"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Searcher returns search results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, mode serp.Mode) []lead.SearchResult
}

// Extractor finds the emails on one page.
type Extractor interface {
	Extract(ctx context.Context, url string) extract.Result
}

// Appender persists candidate leads and returns the resulting store rows.
type Appender interface {
	Append(ctx context.Context, candidates []lead.Lead) ([]lead.Lead, error)
}

// Pipeline wires the three stages together.
type Pipeline struct {
	Searcher  Searcher
	Extractor Extractor
	Store     Appender
	// Concurrency bounds parallel page extraction. Defaults to 4.
	Concurrency int
	Logger      *slog.Logger
	// OnExtract is called once per search result as its extraction finishes.
	// Calls never overlap.
	OnExtract func(r lead.SearchResult, res extract.Result)
}

// Report summarises one run.
type Report struct {
	RunID      string
	Query      string
	Mode       serp.Mode
	Results    int
	Pages      []extract.Result
	Candidates []lead.Lead
	// Rows is the store content after the append.
	Rows     []lead.Lead
	Started  time.Time
	Finished time.Time
}

// PagesWithEmail counts extractions that found at least one address.
func (r Report) PagesWithEmail() int {
	n := 0
	for _, p := range r.Pages {
		if len(p.Emails) > 0 {
			n++
		}
	}
	return n
}

// Degraded counts extractions that failed.
func (r Report) Degraded() int {
	n := 0
	for _, p := range r.Pages {
		if p.Degraded() {
			n++
		}
	}
	return n
}

// Run searches query, extracts every result page and appends the leads found.
// The only error is a store failure; search and extraction problems shrink the
// result instead.
func (p *Pipeline) Run(ctx context.Context, query string, mode serp.Mode) (Report, error) {
	if p.Searcher == nil || p.Extractor == nil || p.Store == nil {
		return Report{}, errors.New("pipeline: searcher, extractor and store are required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := p.Concurrency
	if limit <= 0 {
		limit = 4
	}

	rep := Report{
		RunID:   uuid.NewString(),
		Query:   query,
		Mode:    mode,
		Started: time.Now(),
	}
	logger = logger.With("run_id", rep.RunID)
	logger.Info("starting lead search", "query", query, "mode", mode)

	results := p.Searcher.Search(ctx, query, mode)
	rep.Results = len(results)

	// Index-addressed so candidate order follows result order.
	pages := make([]extract.Result, len(results))
	var cbMu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, r := range results {
		g.Go(func() error {
			res := p.Extractor.Extract(ctx, r.URL)
			pages[i] = res
			if len(res.Emails) > 0 {
				logger.Debug("found emails", "url", r.URL, "count", len(res.Emails))
			} else {
				logger.Debug("no email", "url", r.URL, "reason", res.Error)
			}
			if p.OnExtract != nil {
				cbMu.Lock()
				p.OnExtract(r, res)
				cbMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	rep.Pages = pages

	for i, r := range results {
		rep.Candidates = append(rep.Candidates, lead.FromResults(r, pages[i].Emails)...)
	}

	rows, err := p.Store.Append(ctx, rep.Candidates)
	rep.Finished = time.Now()
	if err != nil {
		return rep, fmt.Errorf("pipeline: %w", err)
	}
	rep.Rows = rows

	logger.Info("lead search finished",
		"results", rep.Results,
		"pages_with_email", rep.PagesWithEmail(),
		"degraded", rep.Degraded(),
		"candidates", len(rep.Candidates),
		"total_leads", len(rows),
		"duration", rep.Finished.Sub(rep.Started))
	return rep, nil
}
