// Package extract pulls email addresses out of a single web page.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/FranksOps/leadfinder/internal/metrics"
	"github.com/FranksOps/leadfinder/internal/scraper"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultTimeout bounds a single page extraction.
const DefaultTimeout = 5 * time.Second

// RobotsAgent is the product token checked against robots.txt.
const RobotsAgent = "leadfinder"

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+`)

// Result is the outcome of extracting one URL. Error is non-empty when the
// extraction degraded; Emails is then empty.
type Result struct {
	URL        string
	Emails     []string
	StatusCode int
	BlockedBy  string
	Error      string
}

// Degraded reports whether the page could not be read.
func (r Result) Degraded() bool {
	return r.Error != ""
}

// Config configures an Extractor.
type Config struct {
	Fetcher *scraper.Fetcher
	// Robots is consulted before each fetch when RespectRobots is set.
	Robots        *scraper.RobotsTxtAuditor
	RespectRobots bool
	Timeout       time.Duration
	Logger        *slog.Logger
}

// Extractor fetches pages and finds the email addresses in their text.
type Extractor struct {
	fetcher       *scraper.Fetcher
	robots        *scraper.RobotsTxtAuditor
	respectRobots bool
	timeout       time.Duration
	logger        *slog.Logger
}

// New returns an Extractor. A nil Fetcher gets a default one.
func New(cfg Config) (*Extractor, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Fetcher == nil {
		f, err := scraper.NewFetcher(scraper.FetchConfig{Timeout: cfg.Timeout})
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		cfg.Fetcher = f
	}
	if cfg.RespectRobots && cfg.Robots == nil {
		cfg.Robots = scraper.NewRobotsTxtAuditor(cfg.Fetcher, cfg.Logger)
	}
	return &Extractor{
		fetcher:       cfg.Fetcher,
		robots:        cfg.Robots,
		respectRobots: cfg.RespectRobots,
		timeout:       cfg.Timeout,
		logger:        cfg.Logger,
	}, nil
}

// Extract fetches url and returns the distinct email addresses in its text,
// in first-seen order. It never fails: problems are reported in Result.Error.
func (e *Extractor) Extract(ctx context.Context, url string) Result {
	res := Result{URL: url}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.respectRobots && e.robots != nil {
		allowed, err := e.robots.IsAllowed(ctx, url, RobotsAgent)
		if err != nil {
			res.Error = err.Error()
			e.logDegraded(res)
			return res
		}
		if !allowed {
			res.Error = "disallowed by robots.txt"
			e.logDegraded(res)
			return res
		}
	}

	page := e.fetcher.Fetch(ctx, url)
	res.StatusCode = page.StatusCode
	res.BlockedBy = page.BlockedBy

	switch {
	case page.Error != "":
		res.Error = page.Error
	case page.BlockedBy != "":
		res.Error = fmt.Sprintf("blocked by %s challenge", page.BlockedBy)
	case page.StatusCode >= 400:
		res.Error = fmt.Sprintf("http status %d", page.StatusCode)
	case !isHTML(page.Header.Get("Content-Type")):
		res.Error = fmt.Sprintf("unsupported content type %q", page.Header.Get("Content-Type"))
	}
	if res.Error != "" {
		e.logDegraded(res)
		return res
	}

	emails, err := EmailsFromHTML(page.Body)
	if err != nil {
		res.Error = err.Error()
		e.logDegraded(res)
		return res
	}
	res.Emails = emails
	metrics.EmailsFoundTotal.Add(float64(len(emails)))

	if len(emails) > 0 {
		e.logger.Debug("found emails", "url", url, "count", len(emails))
	} else {
		e.logger.Debug("no email on page", "url", url)
	}
	return res
}

func (e *Extractor) logDegraded(res Result) {
	e.logger.Debug("extraction degraded", "url", res.URL, "reason", res.Error)
}

// isHTML accepts a missing Content-Type.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// EmailsFromHTML parses body as HTML, drops non-visible elements and returns
// the distinct addresses found in the remaining text.
func EmailsFromHTML(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	return FindEmails(documentText(doc)), nil
}

// blockElements break the rendered text; inline elements such as a, span or
// b do not.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "head": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "td": true, "th": true,
	"title": true, "tr": true, "ul": true,
}

// documentText concatenates text nodes the way a browser lays them out:
// inline siblings run together and block boundaries become newlines.
func documentText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}

// FindEmails returns distinct matches of the email pattern in first-seen
// order. Case is preserved.
func FindEmails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
