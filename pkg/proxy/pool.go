package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Proxy is a single upstream proxy with health tracking.
type Proxy struct {
	URL           *url.URL
	Failures      int
	Successes     int
	DisabledUntil time.Time
}

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures before disabling a proxy temporarily.
	MaxFailures int
	// Cooldown is how long a proxy remains disabled after hitting MaxFailures.
	Cooldown time.Duration
}

// Pool rotates page fetches across a set of proxies, benching the ones that
// keep failing.
type Pool struct {
	mu          sync.Mutex
	proxies     []*Proxy
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewPool creates a new proxy pool. Zero config values get defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
	}
}

// LoadFile reads proxies from a file, one URL per line. Blank lines and lines
// starting with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("proxy file: %w", err)
	}

	return p.Add(urls...)
}

// Add parses raw proxy URLs; a missing scheme defaults to http.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("proxy %q: %w", raw, err)
		}
		if u.Host == "" {
			return fmt.Errorf("proxy %q: missing host", raw)
		}
		p.proxies = append(p.proxies, &Proxy{URL: u})
	}
	return nil
}

// Len reports how many proxies are configured.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Next returns the next healthy proxy, or nil when the pool is empty or
// every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i := 0; i < len(p.proxies); i++ {
		prx := p.proxies[p.next]
		p.next = (p.next + 1) % len(p.proxies)

		if now.Before(prx.DisabledUntil) {
			continue
		}
		if !prx.DisabledUntil.IsZero() {
			// back from cooldown
			prx.DisabledUntil = time.Time{}
			prx.Failures = 0
		}
		return prx.URL
	}
	return nil
}

// Report records the outcome of a request made through proxyURL.
func (p *Pool) Report(proxyURL *url.URL, ok bool) error {
	if proxyURL == nil {
		return errors.New("proxy: nil url")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var prx *Proxy
	target := proxyURL.String()
	for _, candidate := range p.proxies {
		if candidate.URL.String() == target {
			prx = candidate
			break
		}
	}
	if prx == nil {
		return errors.New("proxy: not in pool")
	}

	if ok {
		prx.Successes++
		if prx.Failures > 0 {
			prx.Failures--
		}
		return nil
	}

	prx.Failures++
	if prx.Failures >= p.maxFailures {
		prx.DisabledUntil = p.now().Add(p.cooldown)
	}
	return nil
}

type ctxKey struct{}

// WithProxy attaches the proxy to use for a request.
func WithProxy(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromRequest is an http.Transport Proxy func that routes through the proxy
// attached with WithProxy, falling back to the environment settings.
func FromRequest(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(ctxKey{}).(*url.URL); ok && u != nil {
		return u, nil
	}
	return http.ProxyFromEnvironment(req)
}
