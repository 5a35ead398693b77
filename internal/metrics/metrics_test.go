package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(PageFetchesTotal.WithLabelValues("403", "Cloudflare"))
	RecordFetch(403, false, "Cloudflare", 200*time.Millisecond, 10)
	after := testutil.ToFloat64(PageFetchesTotal.WithLabelValues("403", "Cloudflare"))
	if after-before != 1 {
		t.Errorf("expected fetch counter to increase by 1, got %v", after-before)
	}

	before = testutil.ToFloat64(PageFetchesTotal.WithLabelValues("error", ""))
	RecordFetch(0, true, "", time.Second, 0)
	after = testutil.ToFloat64(PageFetchesTotal.WithLabelValues("error", ""))
	if after-before != 1 {
		t.Errorf("expected error counter to increase by 1, got %v", after-before)
	}
}

func TestRecordSearch(t *testing.T) {
	okBefore := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("Brave", "ok"))
	resBefore := testutil.ToFloat64(SearchResultsTotal.WithLabelValues("Brave"))
	RecordSearch("Brave", 4, false)
	RecordSearch("Brave", 0, true)

	if got := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("Brave", "ok")) - okBefore; got != 1 {
		t.Errorf("ok calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SearchResultsTotal.WithLabelValues("Brave")) - resBefore; got != 4 {
		t.Errorf("results = %v, want 4", got)
	}
}

func TestRecordAppendAndExport(t *testing.T) {
	appended := testutil.ToFloat64(LeadsAppendedTotal)
	dups := testutil.ToFloat64(LeadsDuplicateTotal)
	RecordAppend(3, 2)
	if got := testutil.ToFloat64(LeadsAppendedTotal) - appended; got != 3 {
		t.Errorf("appended = %v, want 3", got)
	}
	if got := testutil.ToFloat64(LeadsDuplicateTotal) - dups; got != 2 {
		t.Errorf("duplicates = %v, want 2", got)
	}

	failed := testutil.ToFloat64(ExportsTotal.WithLabelValues("failed"))
	RecordExport(false)
	if got := testutil.ToFloat64(ExportsTotal.WithLabelValues("failed")) - failed; got != 1 {
		t.Errorf("failed exports = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	RecordFetch(200, false, "", time.Second, 11)

	ts := httptest.NewServer(Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	for _, name := range []string{
		"leadfinder_page_fetches_total",
		"leadfinder_page_fetch_duration_seconds_bucket",
		"leadfinder_page_bytes_total",
	} {
		if !strings.Contains(output, name) {
			t.Errorf("expected %s metric", name)
		}
	}
}

func TestStartStop(t *testing.T) {
	srv := Start(0, nil)
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	var nilSrv *Server
	if err := nilSrv.Stop(context.Background()); err != nil {
		t.Errorf("nil Stop() error = %v", err)
	}
}
