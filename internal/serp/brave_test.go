package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/leadfinder/internal/lead"
)

func TestBrave_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "test-key" {
			t.Errorf("X-Subscription-Token = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") != "gift wholesalers" || q.Get("count") != "10" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("offset") != "7" {
			t.Errorf("offset = %q, want 7", q.Get("offset"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"Acme Gifts","url":"https://acme.co.za","description":"Corporate gifts"},
			{"title":"","url":"https://beta.co.za","description":""}
		]}}`))
	}))
	defer ts.Close()

	b, err := NewBrave(BraveConfig{Endpoint: ts.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewBrave: %v", err)
	}

	resp := b.Search(context.Background(), Request{Query: "gift wholesalers", Count: 10, Offset: 7})
	if resp.Degraded() {
		t.Fatalf("unexpected degradation: %s", resp.Error)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	first := resp.Results[0]
	if first.Source != lead.SourceBrave || first.Title != "Acme Gifts" || first.URL != "https://acme.co.za" {
		t.Errorf("unexpected first result %+v", first)
	}
	if resp.Results[1].URL != "https://beta.co.za" {
		t.Errorf("order not preserved: %+v", resp.Results)
	}
}

func TestBrave_OmitsZeroOffset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["offset"]; ok {
			t.Errorf("offset should be omitted, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"web":{"results":[]}}`))
	}))
	defer ts.Close()

	b, _ := NewBrave(BraveConfig{Endpoint: ts.URL, APIKey: "k"})
	resp := b.Search(context.Background(), Request{Query: "x", Count: 5})
	if resp.Degraded() || len(resp.Results) != 0 {
		t.Errorf("expected empty, non-degraded response, got %+v", resp)
	}
}

func TestBrave_MissingKey(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	b, _ := NewBrave(BraveConfig{Endpoint: ts.URL})
	resp := b.Search(context.Background(), Request{Query: "x", Count: 5})
	if resp.Error != "missing api key" {
		t.Errorf("Error = %q, want missing api key", resp.Error)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no request without a key")
	}
}

func TestBrave_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		want    string
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: "http status 429",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"web":`))
			},
			want: "decode response",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			timeout: 20 * time.Millisecond,
			want:    "httpclient",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			b, _ := NewBrave(BraveConfig{Endpoint: ts.URL, APIKey: "k", Timeout: tt.timeout})
			resp := b.Search(context.Background(), Request{Query: "x", Count: 5})
			if !strings.Contains(resp.Error, tt.want) {
				t.Errorf("Error = %q, want it to contain %q", resp.Error, tt.want)
			}
			if len(resp.Results) != 0 {
				t.Errorf("degraded response must be empty")
			}
		})
	}
}
