package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/leadfinder/internal/scraper"
)

func TestFindEmails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "call us on 011 555 1234", []string{}},
		{"single", "mail info@acme.co.za today", []string{"info@acme.co.za"}},
		{"distinct first seen", "b@x.com a@y.org b@x.com", []string{"b@x.com", "a@y.org"}},
		{"case preserved", "Sales@Acme.com sales@acme.com", []string{"Sales@Acme.com", "sales@acme.com"}},
		{"plus and dots", "first.last+tag@mail-host.example.co.za", []string{"first.last+tag@mail-host.example.co.za"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindEmails(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindEmails(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEmailsFromHTML_IgnoresScripts(t *testing.T) {
	body := []byte(`<html><head><style>.x{}</style><script>var e="hidden@script.com";</script></head>
<body><p>Contact: info@acme.co.za</p><noscript>nojs@acme.co.za</noscript><p>info@acme.co.za</p><div>sales@acme.co.za</div></body></html>`)

	got, err := EmailsFromHTML(body)
	if err != nil {
		t.Fatalf("EmailsFromHTML: %v", err)
	}
	want := []string{"info@acme.co.za", "sales@acme.co.za"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEmailsFromHTML_InlineMarkup(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"span around at", `<p>info<span>@</span>acme.co.za</p>`, []string{"info@acme.co.za"}},
		{"link around local part", `<p><a href="/c">sales</a>@acme.co.za</p>`, []string{"sales@acme.co.za"}},
		{"bold domain", `<p>sales@<b>acme</b>.co.za</p>`, []string{"sales@acme.co.za"}},
		{"blocks stay apart", `<div>info@acme.co.za</div><div>Hours</div><p>x@y.com</p><p>Next</p>`,
			[]string{"info@acme.co.za", "x@y.com"}},
		{"line break", `<p>a@b.com<br>Phone</p>`, []string{"a@b.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EmailsFromHTML([]byte("<html><body>" + tt.body + "</body></html>"))
			if err != nil {
				t.Fatalf("EmailsFromHTML: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestExtractor(t *testing.T, cfg Config) *Extractor {
	t.Helper()
	if cfg.Fetcher == nil {
		f, err := scraper.NewFetcher(scraper.FetchConfig{Timeout: 2 * time.Second})
		if err != nil {
			t.Fatalf("NewFetcher: %v", err)
		}
		cfg.Fetcher = f
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestExtract(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<p>hello@shop.co.za</p><p>orders@shop.co.za</p><p>hello@shop.co.za</p>`))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<p>no addresses here</p>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(`pdf@shop.co.za`))
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`late@shop.co.za`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	e := newTestExtractor(t, Config{Timeout: 100 * time.Millisecond})
	ctx := context.Background()

	res := e.Extract(ctx, ts.URL+"/contact")
	if res.Degraded() {
		t.Fatalf("unexpected degradation: %s", res.Error)
	}
	if want := []string{"hello@shop.co.za", "orders@shop.co.za"}; !reflect.DeepEqual(res.Emails, want) {
		t.Errorf("Emails = %v, want %v", res.Emails, want)
	}

	res = e.Extract(ctx, ts.URL+"/empty")
	if res.Degraded() || len(res.Emails) != 0 {
		t.Errorf("expected empty, non-degraded result, got %+v", res)
	}

	res = e.Extract(ctx, ts.URL+"/missing")
	if !res.Degraded() || !strings.Contains(res.Error, "404") || len(res.Emails) != 0 {
		t.Errorf("expected 404 degradation, got %+v", res)
	}

	res = e.Extract(ctx, ts.URL+"/file.pdf")
	if !res.Degraded() || !strings.Contains(res.Error, "content type") {
		t.Errorf("expected content type degradation, got %+v", res)
	}

	res = e.Extract(ctx, ts.URL+"/challenge")
	if !res.Degraded() || res.BlockedBy != "Cloudflare" {
		t.Errorf("expected Cloudflare degradation, got %+v", res)
	}

	res = e.Extract(ctx, ts.URL+"/slow")
	if !res.Degraded() || len(res.Emails) != 0 {
		t.Errorf("expected timeout degradation, got %+v", res)
	}
}

func TestExtract_RespectRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`secret@shop.co.za`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	e := newTestExtractor(t, Config{RespectRobots: true})
	res := e.Extract(context.Background(), ts.URL+"/private")
	if !res.Degraded() || !strings.Contains(res.Error, "robots.txt") {
		t.Errorf("expected robots degradation, got %+v", res)
	}

	e = newTestExtractor(t, Config{})
	res = e.Extract(context.Background(), ts.URL+"/private")
	if res.Degraded() || len(res.Emails) != 1 {
		t.Errorf("expected robots to be ignored by default, got %+v", res)
	}
}
