package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/leadfinder/internal/lead"
)

// DomainCount is the number of leads sharing one email domain.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Summary aggregates the contents of the lead store.
type Summary struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	TotalLeads    int            `json:"total_leads"`
	UniqueEmails  int            `json:"unique_emails"`
	UniqueURLs    int            `json:"unique_urls"`
	UniqueDomains int            `json:"unique_domains"`
	BySource      map[string]int `json:"by_source"`
	TopDomains    []DomainCount  `json:"top_domains"`
}

// TopDomainLimit caps Summary.TopDomains.
const TopDomainLimit = 10

// GenerateSummary processes the store rows. now stamps the summary.
func GenerateSummary(rows []lead.Lead, now time.Time) Summary {
	s := Summary{
		GeneratedAt: now.UTC(),
		BySource:    make(map[string]int),
		TopDomains:  []DomainCount{},
	}

	emails := make(map[string]struct{})
	urls := make(map[string]struct{})
	domains := make(map[string]int)

	for _, r := range rows {
		s.TotalLeads++
		emails[r.Email] = struct{}{}
		urls[r.URL] = struct{}{}
		domains[lead.Domain(r.Email)]++
		src := string(r.Source)
		if src == "" {
			src = "unknown"
		}
		s.BySource[src]++
	}

	s.UniqueEmails = len(emails)
	s.UniqueURLs = len(urls)
	s.UniqueDomains = len(domains)

	for d, c := range domains {
		s.TopDomains = append(s.TopDomains, DomainCount{Domain: d, Count: c})
	}
	sort.Slice(s.TopDomains, func(i, j int) bool {
		if s.TopDomains[i].Count != s.TopDomains[j].Count {
			return s.TopDomains[i].Count > s.TopDomains[j].Count
		}
		return s.TopDomains[i].Domain < s.TopDomains[j].Domain
	})
	if len(s.TopDomains) > TopDomainLimit {
		s.TopDomains = s.TopDomains[:TopDomainLimit]
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

const textTmpl = `Leads Summary
-------------
Generated:      {{.GeneratedAt.Format "2006-01-02 15:04:05"}}
Total Leads:    {{.TotalLeads}}
Unique Emails:  {{.UniqueEmails}}
Unique URLs:    {{.UniqueURLs}}
Unique Domains: {{.UniqueDomains}}

By Source:
{{- range $src, $count := .BySource}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}

Top Domains:
{{- range .TopDomains}}
  {{if .Domain}}{{.Domain}}{{else}}(none){{end}}: {{.Count}}
{{- else}}
  None
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Leads Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Leads Report</h1>
  <p><strong>Generated:</strong> {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>

  <div class="stat-card"><div>Total Leads</div><div class="stat-val">{{.TotalLeads}}</div></div>
  <div class="stat-card"><div>Unique Emails</div><div class="stat-val">{{.UniqueEmails}}</div></div>
  <div class="stat-card"><div>Unique URLs</div><div class="stat-val">{{.UniqueURLs}}</div></div>
  <div class="stat-card"><div>Unique Domains</div><div class="stat-val">{{.UniqueDomains}}</div></div>

  <h3>By Source</h3>
  <table>
    <tr><th>Source</th><th>Count</th></tr>
    {{- range $src, $count := .BySource}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Top Domains</h3>
  <table>
    <tr><th>Domain</th><th>Leads</th></tr>
    {{- range .TopDomains}}
    <tr><td>{{if .Domain}}{{.Domain}}{{else}}(none){{end}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a standalone HTML report. Values are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
