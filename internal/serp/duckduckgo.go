package serp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/metrics"
	"github.com/FranksOps/leadfinder/pkg/httpclient"
	"github.com/PuerkitoBio/goquery"
)

// DefaultDuckDuckGoEndpoint serves DuckDuckGo's script-free results page.
const DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

const defaultCount = 10

// DuckDuckGoConfig configures the DuckDuckGo adapter.
type DuckDuckGoConfig struct {
	Endpoint string
	Timeout  time.Duration
	Client   *httpclient.Client
}

// DuckDuckGo is the secondary provider. It needs no credential and scrapes the
// HTML results page.
type DuckDuckGo struct {
	endpoint string
	client   *httpclient.Client
}

var _ Provider = (*DuckDuckGo)(nil)

// NewDuckDuckGo builds a DuckDuckGo adapter.
func NewDuckDuckGo(cfg DuckDuckGoConfig) (*DuckDuckGo, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultDuckDuckGoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Client == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
		if err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}
		cfg.Client = c
	}
	return &DuckDuckGo{endpoint: cfg.Endpoint, client: cfg.Client}, nil
}

func (d *DuckDuckGo) Name() string { return string(lead.SourceDuckDuckGo) }

// Search fetches one results page and returns at most req.Count organic
// results. Offset is ignored.
func (d *DuckDuckGo) Search(ctx context.Context, req Request) Response {
	resp := Response{Provider: d.Name(), Query: req.Query}
	defer func() { metrics.RecordSearch(resp.Provider, len(resp.Results), resp.Degraded()) }()

	limit := req.Count
	if limit <= 0 {
		limit = defaultCount
	}

	u, err := url.Parse(d.endpoint)
	if err != nil {
		resp.Error = fmt.Sprintf("invalid endpoint: %v", err)
		return resp
	}
	q := u.Query()
	q.Set("q", req.Query)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		resp.Error = fmt.Sprintf("build request: %v", err)
		return resp
	}
	httpReq.Header.Set("Accept", "text/html")

	httpResp, err := d.client.Do(ctx, httpReq)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		resp.Error = fmt.Sprintf("http status %d", httpResp.StatusCode)
		return resp
	}

	doc, err := goquery.NewDocumentFromReader(httpResp.Body)
	if err != nil {
		resp.Error = fmt.Sprintf("parse results: %v", err)
		return resp
	}

	results := make([]lead.SearchResult, 0, limit)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, lead.SearchResult{
			Source:      lead.SourceDuckDuckGo,
			Title:       strings.TrimSpace(link.Text()),
			URL:         target,
			Description: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < limit
	})

	resp.Results = results
	return resp
}

// unwrapRedirect turns a DuckDuckGo "/l/?uddg=" tracking link into the
// destination URL. Other links are returned unchanged.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
