package lead

import (
	"regexp"
)

// Source identifies the search provider a result came from.
type Source string

const (
	SourceBrave      Source = "Brave"      // primary provider
	SourceDuckDuckGo Source = "DuckDuckGo" // secondary provider
)

// Columns is the persisted column order for every store and export format.
var Columns = []string{"business_name", "url", "email", "description", "source"}

// SearchResult is one hit returned by a search provider. It is consumed by the
// extraction stage and never persisted.
type SearchResult struct {
	Source      Source `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Lead is a single (business page, email) pair.
type Lead struct {
	BusinessName string `json:"business_name"`
	URL          string `json:"url"`
	Email        string `json:"email"`
	Description  string `json:"description"`
	Source       Source `json:"source"`
}

// Key is the composite uniqueness key of a persisted lead.
type Key struct {
	Email string
	URL   string
}

// FromResult builds the lead for one email found on a search result's page.
func FromResult(r SearchResult, email string) Lead {
	return Lead{
		BusinessName: r.Title,
		URL:          r.URL,
		Email:        email,
		Description:  r.Description,
		Source:       r.Source,
	}
}

// FromResults expands a result into one lead per email. No emails, no leads.
func FromResults(r SearchResult, emails []string) []Lead {
	if len(emails) == 0 {
		return nil
	}
	out := make([]Lead, 0, len(emails))
	for _, e := range emails {
		if e == "" {
			continue
		}
		out = append(out, FromResult(r, e))
	}
	return out
}

// Key returns the (email, url) key of the lead.
func (l Lead) Key() Key {
	return Key{Email: l.Email, URL: l.URL}
}

// Record returns the lead's values in Columns order.
func (l Lead) Record() []string {
	return []string{l.BusinessName, l.URL, l.Email, l.Description, string(l.Source)}
}

var domainPattern = regexp.MustCompile(`@([a-zA-Z0-9.-]+)`)

// Domain returns the email domain: the run of letters, digits, dots and
// hyphens after the first '@'. Emails without one map to "".
func Domain(email string) string {
	m := domainPattern.FindStringSubmatch(email)
	if m == nil {
		return ""
	}
	return m[1]
}
