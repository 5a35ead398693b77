package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/leadfinder/internal/bypass"
	"github.com/FranksOps/leadfinder/internal/fingerprint"
	"github.com/FranksOps/leadfinder/internal/metrics"
	"github.com/FranksOps/leadfinder/pkg/httpclient"
	"github.com/FranksOps/leadfinder/pkg/proxy"
	"github.com/FranksOps/leadfinder/pkg/useragent"
)

// DefaultMaxBodyBytes caps how much of a page body is read.
const DefaultMaxBodyBytes int64 = 5 << 20

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	MaxBodyBytes int64
	// InsecureSkipVerify disables TLS verification. Tests only.
	InsecureSkipVerify bool
}

// Page is the outcome of a single GET. Failures are reported in Error rather
// than as a Go error so that one bad site never aborts a batch.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	Truncated  bool
	Duration   time.Duration
	// BlockedBy names the bot protection product that challenged the request.
	BlockedBy string
	Error     string
}

// OK reports whether the page was fetched with a non-error status and was not
// challenged.
func (p *Page) OK() bool {
	return p.Error == "" && p.BlockedBy == "" && p.StatusCode > 0 && p.StatusCode < 400
}

// Fetcher performs single URL fetches with User-Agent rotation, optional proxy
// rotation and an optional TLS fingerprint.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher initializes a new Fetcher. One client is held for the lifetime of
// the Fetcher so connections and cookies are reused.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
		Proxy:              proxy.FromRequest,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		UserAgents:   cfg.UAPool,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// Fetch executes a GET request to targetURL and captures the response. The
// returned Page is never nil.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *Page {
	start := time.Now()
	page := &Page{URL: targetURL}
	defer func() {
		page.Duration = time.Since(start)
		metrics.RecordFetch(page.StatusCode, page.StatusCode == 0 && page.Error != "", page.BlockedBy, page.Duration, len(page.Body))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		page.Error = fmt.Sprintf("failed to create request: %v", err)
		return page
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		if activeProxy = f.config.ProxyPool.Next(); activeProxy != nil {
			req = req.WithContext(proxy.WithProxy(req.Context(), activeProxy))
		}
	}

	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-ZA,en;q=0.8")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.Report(activeProxy, false)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		page.Error = fmt.Sprintf("request failed: %v", err)
		return page
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.Report(activeProxy, true)
	}

	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	if resp.Request != nil && resp.Request.URL != nil {
		page.FinalURL = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes+1))
	if int64(len(body)) > f.config.MaxBodyBytes {
		body = body[:f.config.MaxBodyBytes]
		page.Truncated = true
	}
	page.Body = body
	if err != nil {
		page.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	if detected, source := bypass.Analyze(&bypass.Response{
		StatusCode: page.StatusCode,
		Header:     page.Header,
		Body:       page.Body,
	}, bypass.DefaultDetectors()); detected {
		page.BlockedBy = source
	}

	return page
}
