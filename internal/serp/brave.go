package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/metrics"
	"github.com/FranksOps/leadfinder/pkg/httpclient"
)

// DefaultBraveEndpoint is the Brave web search API.
const DefaultBraveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// BraveConfig configures the Brave adapter.
type BraveConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	// Client overrides the HTTP client, e.g. in tests.
	Client *httpclient.Client
}

// Brave is the primary provider, backed by the Brave Search REST API.
type Brave struct {
	endpoint string
	apiKey   string
	client   *httpclient.Client
}

var _ Provider = (*Brave)(nil)

// NewBrave builds a Brave adapter. A missing key is not an error here; each
// Search then degrades without touching the network.
func NewBrave(cfg BraveConfig) (*Brave, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultBraveEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Client == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
		if err != nil {
			return nil, fmt.Errorf("brave: %w", err)
		}
		cfg.Client = c
	}
	return &Brave{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, client: cfg.Client}, nil
}

func (b *Brave) Name() string { return string(lead.SourceBrave) }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search calls the API once.
func (b *Brave) Search(ctx context.Context, req Request) Response {
	resp := Response{Provider: b.Name(), Query: req.Query}
	defer func() { metrics.RecordSearch(resp.Provider, len(resp.Results), resp.Degraded()) }()

	if b.apiKey == "" {
		resp.Error = "missing api key"
		return resp
	}

	u, err := url.Parse(b.endpoint)
	if err != nil {
		resp.Error = fmt.Sprintf("invalid endpoint: %v", err)
		return resp
	}
	q := u.Query()
	q.Set("q", req.Query)
	q.Set("count", strconv.Itoa(req.Count))
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		resp.Error = fmt.Sprintf("build request: %v", err)
		return resp
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", b.apiKey)

	httpResp, err := b.client.Do(ctx, httpReq)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 64<<10))
		resp.Error = fmt.Sprintf("http status %d", httpResp.StatusCode)
		return resp
	}

	var body braveResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		resp.Error = fmt.Sprintf("decode response: %v", err)
		return resp
	}

	results := make([]lead.SearchResult, 0, len(body.Web.Results))
	for _, r := range body.Web.Results {
		results = append(results, lead.SearchResult{
			Source:      lead.SourceBrave,
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	resp.Results = results
	return resp
}
