package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches and caches robots.txt per host.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether targetURL may be fetched by userAgent. A missing
// or unreadable robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("invalid url: missing host in %q", targetURL)
	}

	host := u.Scheme + "://" + u.Host
	data, err := r.getOrFetch(ctx, host)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "host", host, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, userAgent), nil
}

func (r *RobotsTxtAuditor) getOrFetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	data, exists := r.cache[host]
	r.mu.Unlock()
	if exists {
		return data, nil
	}

	page := r.fetcher.Fetch(ctx, host+"/robots.txt")

	var parsed *robotstxt.RobotsData
	var fetchErr error
	switch {
	case page.Error != "":
		fetchErr = fmt.Errorf("fetch error: %s", page.Error)
	case page.StatusCode >= 400:
	default:
		parsed, fetchErr = robotstxt.FromBytes(page.Body)
		if fetchErr != nil {
			parsed = nil
			fetchErr = fmt.Errorf("parse error: %w", fetchErr)
		}
	}

	// Only cache definitive answers; transport errors are retried next time.
	if page.Error == "" {
		r.mu.Lock()
		r.cache[host] = parsed
		r.mu.Unlock()
	}
	return parsed, fetchErr
}
