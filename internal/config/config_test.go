package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// chdir isolates Load from any leadfinder.yaml or .env in the package dir.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv("BRAVE_API_KEY", "")
	t.Setenv("LEADFINDER_BRAVE_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Backend != "csv" || cfg.Store.Path != "leads.csv" || cfg.Store.Dedupe != "key" {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Export.Path != "leads_export.xlsx" {
		t.Errorf("unexpected export path %q", cfg.Export.Path)
	}
	if cfg.Search.Mode != "single" || cfg.Search.Count != 10 || cfg.Search.FallbackThreshold != 3 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	exp := cfg.Search.Expanded
	if exp.Pages != 5 || exp.Count != 5 || exp.MaxOffset != 50 || exp.Delay != time.Second {
		t.Errorf("unexpected expanded defaults: %+v", exp)
	}
	if want := []string{"site:.co.za", "contact email", "suppliers #{salt}"}; !reflect.DeepEqual(exp.Variants, want) {
		t.Errorf("variants = %v, want %v", exp.Variants, want)
	}
	if cfg.Fetch.Timeout != 5*time.Second || cfg.Fetch.Concurrency != 4 || cfg.Fetch.MaxBodyBytes != 5<<20 {
		t.Errorf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Web.SearchMode != "expanded" || cfg.Web.Dedupe != "domain" || cfg.Web.FetchTimeout != 3*time.Second {
		t.Errorf("unexpected web defaults: %+v", cfg.Web)
	}
	if cfg.Brave.APIKey != "" {
		t.Errorf("expected no api key by default")
	}
	if cfg.LockPath() != "leads.csv.lock" {
		t.Errorf("LockPath() = %q", cfg.LockPath())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("LEADFINDER_STORE_BACKEND", "sqlite")
	t.Setenv("LEADFINDER_STORE_PATH", "leads.db")
	t.Setenv("LEADFINDER_DATA_DIR", "/var/lib/leadfinder")
	t.Setenv("LEADFINDER_SEARCH_COUNT", "20")
	t.Setenv("LEADFINDER_SEARCH_EXPANDED_DELAY", "250ms")
	t.Setenv("LEADFINDER_FETCH_USER_AGENTS", "UA-1,UA-2")
	t.Setenv("LEADFINDER_BRAVE_API_KEY", "")
	t.Setenv("BRAVE_API_KEY", "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != filepath.Join("/var/lib/leadfinder", "leads.db") {
		t.Errorf("unexpected store: %+v", cfg.Store)
	}
	if cfg.Search.Count != 20 {
		t.Errorf("search.count = %d", cfg.Search.Count)
	}
	if cfg.Search.Expanded.Delay != 250*time.Millisecond {
		t.Errorf("delay = %v", cfg.Search.Expanded.Delay)
	}
	if !reflect.DeepEqual(cfg.Fetch.UserAgents, []string{"UA-1", "UA-2"}) {
		t.Errorf("user agents = %v", cfg.Fetch.UserAgents)
	}
	if cfg.Brave.APIKey != "from-env" {
		t.Errorf("expected BRAVE_API_KEY fallback, got %q", cfg.Brave.APIKey)
	}

	t.Setenv("LEADFINDER_BRAVE_API_KEY", "prefixed")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Brave.APIKey != "prefixed" {
		t.Errorf("expected prefixed key to win, got %q", cfg.Brave.APIKey)
	}
}

func TestLoad_File(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
store:
  backend: json
  path: leads.ndjson
search:
  mode: expanded
  expanded:
    variants: ["contact email"]
web:
  rate_limit: 10/s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != "json" || cfg.Search.Mode != "expanded" {
		t.Errorf("file values not applied: %+v %+v", cfg.Store, cfg.Search)
	}
	if !reflect.DeepEqual(cfg.Search.Expanded.Variants, []string{"contact email"}) {
		t.Errorf("variants = %v", cfg.Search.Expanded.Variants)
	}
	rl, err := cfg.Web.Limit()
	if err != nil || rl.Requests != 10 || rl.Interval != time.Second {
		t.Errorf("rate limit = %+v, %v", rl, err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LEADFINDER_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEADFINDER_LOG_LEVEL", "")
	os.Unsetenv("LEADFINDER_LOG_LEVEL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug from .env", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t)
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Errorf("expected error for explicit missing file")
	}
}

func TestValidate(t *testing.T) {
	chdir(t)
	t.Setenv("LEADFINDER_STORE_BACKEND", "mongo")
	t.Setenv("LEADFINDER_STORE_DEDUPE", "fuzzy")
	t.Setenv("LEADFINDER_FETCH_FINGERPRINT", "netscape")
	t.Setenv("LEADFINDER_WEB_RATE_LIMIT", "lots")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"store.backend", "store.dedupe", "fetch.fingerprint", "web.rate_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := &Config{}
	cfg.Log = LogConfig{Level: "info", Format: "text"}
	cfg.Store = StoreConfig{Backend: "postgres"}
	cfg.Search = SearchConfig{Count: 1, FallbackThreshold: 1, Expanded: ExpandedConfig{Pages: 1, Count: 1}}
	cfg.Fetch = FetchConfig{Concurrency: 1}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "store.dsn") {
		t.Errorf("expected store.dsn error, got %v", err)
	}
}

func TestParseRateLimit(t *testing.T) {
	if rl, err := ParseRateLimit(""); err != nil || rl.Enabled() {
		t.Errorf("empty limit should be disabled, got %+v, %v", rl, err)
	}
	if rl, err := ParseRateLimit("5/min"); err != nil || rl.Requests != 5 || rl.Interval != time.Minute {
		t.Errorf("5/min = %+v, %v", rl, err)
	}
	for _, bad := range []string{"5", "0/min", "x/min", "5/fortnight"} {
		if _, err := ParseRateLimit(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
