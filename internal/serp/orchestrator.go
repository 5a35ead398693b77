package serp

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/pkg/ratelimit"
)

// Mode selects how a base query is searched.
type Mode string

const (
	// ModeSingle issues one primary call and falls back once.
	ModeSingle Mode = "single"
	// ModeExpanded searches several query variants across random pages.
	ModeExpanded Mode = "expanded"
)

// ParseMode maps a config value to a Mode. Empty means ModeSingle.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModeExpanded:
		return ModeExpanded, nil
	default:
		return "", fmt.Errorf("serp: unknown search mode %q", s)
	}
}

// DefaultVariantSuffixes are appended to the base query in expanded mode.
// "{salt}" is replaced with a random number in [1000, 9999].
var DefaultVariantSuffixes = []string{"site:.co.za", "contact email", "suppliers #{salt}"}

// OrchestratorConfig tunes the fallback policy. Zero values get defaults.
type OrchestratorConfig struct {
	Count             int
	FallbackThreshold int
	Pages             int
	PageCount         int
	MaxOffset         int
	Delay             time.Duration
	Variants          []string
	// Rand drives variant salts and page offsets.
	Rand *rand.Rand
	// Pacer spaces primary calls in expanded mode. Built from Delay when nil.
	Pacer  *ratelimit.Pacer
	Logger *slog.Logger
	// OnVariant is called before each variant is searched, i counting from 1.
	OnVariant func(i, n int, variant string)
}

// Orchestrator queries a primary provider and tops up short result lists from
// a secondary provider.
type Orchestrator struct {
	primary   Provider
	secondary Provider
	cfg       OrchestratorConfig

	// rngMu guards cfg.Rand.
	rngMu sync.Mutex
}

// NewOrchestrator wires the two providers. secondary may be nil.
func NewOrchestrator(primary, secondary Provider, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.FallbackThreshold <= 0 {
		cfg.FallbackThreshold = 3
	}
	if cfg.Pages <= 0 {
		cfg.Pages = 5
	}
	if cfg.PageCount <= 0 {
		cfg.PageCount = 5
	}
	if cfg.MaxOffset <= 0 {
		cfg.MaxOffset = 50
	}
	if cfg.Variants == nil {
		cfg.Variants = DefaultVariantSuffixes
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Pacer == nil {
		cfg.Pacer = ratelimit.NewPacer(cfg.Delay)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{primary: primary, secondary: secondary, cfg: cfg}
}

// Search dispatches on mode.
func (o *Orchestrator) Search(ctx context.Context, query string, mode Mode) []lead.SearchResult {
	if mode == ModeExpanded {
		return o.FindExpanded(ctx, query)
	}
	return o.Find(ctx, query)
}

// Find runs the single-query policy: primary results first, then the
// secondary's when the primary returned fewer than FallbackThreshold.
func (o *Orchestrator) Find(ctx context.Context, query string) []lead.SearchResult {
	results := make([]lead.SearchResult, 0, o.cfg.Count)

	primary := o.call(ctx, o.primary, Request{Query: query, Count: o.cfg.Count})
	results = append(results, primary...)

	if len(primary) < o.cfg.FallbackThreshold && ctx.Err() == nil {
		results = append(results, o.call(ctx, o.secondary, Request{Query: query, Count: o.cfg.Count})...)
	}
	return results
}

// FindExpanded searches every variant of query over Pages random pages,
// pacing primary calls and falling back per short page.
func (o *Orchestrator) FindExpanded(ctx context.Context, query string) []lead.SearchResult {
	o.rngMu.Lock()
	variants := Variants(query, o.cfg.Rand, o.cfg.Variants)
	o.rngMu.Unlock()
	var results []lead.SearchResult

	for i, variant := range variants {
		if ctx.Err() != nil {
			return results
		}
		if o.cfg.OnVariant != nil {
			o.cfg.OnVariant(i+1, len(variants), variant)
		}
		o.cfg.Logger.Info("searching variant", "index", i+1, "total", len(variants), "query", variant)

		for page := 0; page < o.cfg.Pages; page++ {
			offset := o.randIntN(o.cfg.MaxOffset + 1)
			primary := o.call(ctx, o.primary, Request{Query: variant, Count: o.cfg.PageCount, Offset: offset})
			results = append(results, primary...)

			if err := o.cfg.Pacer.Wait(ctx); err != nil {
				return results
			}

			if len(primary) < o.cfg.FallbackThreshold {
				results = append(results, o.call(ctx, o.secondary, Request{Query: variant, Count: o.cfg.PageCount})...)
			}
		}
	}
	return results
}

func (o *Orchestrator) randIntN(n int) int {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return o.cfg.Rand.IntN(n)
}

func (o *Orchestrator) call(ctx context.Context, p Provider, req Request) []lead.SearchResult {
	if p == nil || ctx.Err() != nil {
		return nil
	}
	resp := p.Search(ctx, req)
	if resp.Degraded() {
		o.cfg.Logger.Warn("search provider degraded",
			"provider", p.Name(), "query", req.Query, "offset", req.Offset, "reason", resp.Error)
		return nil
	}
	o.cfg.Logger.Debug("search provider returned",
		"provider", p.Name(), "query", req.Query, "offset", req.Offset, "results", len(resp.Results))
	return resp.Results
}

// Variants expands base into one query per suffix. Deterministic for a given
// rng state.
func Variants(base string, rng *rand.Rand, suffixes []string) []string {
	out := make([]string, 0, len(suffixes))
	for _, suffix := range suffixes {
		if strings.Contains(suffix, "{salt}") {
			salt := strconv.Itoa(1000 + rng.IntN(9000))
			suffix = strings.ReplaceAll(suffix, "{salt}", salt)
		}
		out = append(out, strings.TrimSpace(base+" "+suffix))
	}
	return out
}
