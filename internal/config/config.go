// Package config loads leadfinder settings from defaults, an optional YAML
// file, a .env file and LEADFINDER_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/leadfinder/internal/fingerprint"
	"github.com/FranksOps/leadfinder/internal/leadstore"
	"github.com/FranksOps/leadfinder/internal/serp"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEADFINDER"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StoreConfig struct {
	// Backend is one of csv, json, sqlite or postgres.
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Dedupe  string `mapstructure:"dedupe"`
	// Lock guards the store with an inter-process file lock.
	Lock bool `mapstructure:"lock"`
}

type ExportConfig struct {
	Path string `mapstructure:"path"`
}

type ExpandedConfig struct {
	Pages     int           `mapstructure:"pages"`
	Count     int           `mapstructure:"count"`
	MaxOffset int           `mapstructure:"max_offset"`
	Delay     time.Duration `mapstructure:"delay"`
	Variants  []string      `mapstructure:"variants"`
}

type SearchConfig struct {
	Mode              string         `mapstructure:"mode"`
	Count             int            `mapstructure:"count"`
	FallbackThreshold int            `mapstructure:"fallback_threshold"`
	Expanded          ExpandedConfig `mapstructure:"expanded"`
}

type BraveConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DuckDuckGoConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	Concurrency   int           `mapstructure:"concurrency"`
	UserAgents    []string      `mapstructure:"user_agents"`
	Fingerprint   string        `mapstructure:"fingerprint"`
	Proxies       []string      `mapstructure:"proxies"`
	ProxiesFile   string        `mapstructure:"proxies_file"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
}

type WebConfig struct {
	Addr         string        `mapstructure:"addr"`
	SearchMode   string        `mapstructure:"search_mode"`
	Dedupe       string        `mapstructure:"dedupe"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// RateLimit caps POST /search as "<requests>/<unit>", e.g. "5/min".
	// Empty disables the limiter.
	RateLimit string `mapstructure:"rate_limit"`
}

type MetricsConfig struct {
	// Port for the standalone metrics server; 0 disables it.
	Port int `mapstructure:"port"`
}

// Config aggregates application-wide configuration values.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Export     ExportConfig     `mapstructure:"export"`
	Search     SearchConfig     `mapstructure:"search"`
	Brave      BraveConfig      `mapstructure:"brave"`
	DuckDuckGo DuckDuckGoConfig `mapstructure:"duckduckgo"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Web        WebConfig        `mapstructure:"web"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.backend", "csv")
	v.SetDefault("store.path", "leads.csv")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.dedupe", string(leadstore.DedupeKey))
	v.SetDefault("store.lock", true)

	v.SetDefault("export.path", leadstore.DefaultExportPath)

	v.SetDefault("search.mode", string(serp.ModeSingle))
	v.SetDefault("search.count", 10)
	v.SetDefault("search.fallback_threshold", 3)
	v.SetDefault("search.expanded.pages", 5)
	v.SetDefault("search.expanded.count", 5)
	v.SetDefault("search.expanded.max_offset", 50)
	v.SetDefault("search.expanded.delay", time.Second)
	v.SetDefault("search.expanded.variants", serp.DefaultVariantSuffixes)

	v.SetDefault("brave.endpoint", serp.DefaultBraveEndpoint)
	v.SetDefault("brave.api_key", "")
	v.SetDefault("brave.timeout", 5*time.Second)

	v.SetDefault("duckduckgo.endpoint", serp.DefaultDuckDuckGoEndpoint)
	v.SetDefault("duckduckgo.timeout", 5*time.Second)

	v.SetDefault("fetch.timeout", 5*time.Second)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.user_agents", []string{})
	v.SetDefault("fetch.fingerprint", string(fingerprint.ProfileGo))
	v.SetDefault("fetch.proxies", []string{})
	v.SetDefault("fetch.proxies_file", "")
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.max_body_bytes", 5<<20)

	v.SetDefault("web.addr", "127.0.0.1:8501")
	v.SetDefault("web.search_mode", string(serp.ModeExpanded))
	v.SetDefault("web.dedupe", string(leadstore.DedupeDomain))
	v.SetDefault("web.fetch_timeout", 3*time.Second)
	v.SetDefault("web.rate_limit", "5/min")

	v.SetDefault("metrics.port", 0)
}

// Load builds the configuration. path names an explicit config file; when
// empty, ./leadfinder.yaml is read if present. A .env file in the working
// directory is loaded into the environment without overriding it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("brave.api_key", EnvPrefix+"_BRAVE_API_KEY", "BRAVE_API_KEY"); err != nil {
		return nil, fmt.Errorf("config: bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("leadfinder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read leadfinder.yaml: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths() {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Store.Path != "" && !filepath.IsAbs(c.Store.Path) {
		c.Store.Path = filepath.Join(c.DataDir, c.Store.Path)
	}
	if c.Export.Path != "" && !filepath.IsAbs(c.Export.Path) {
		c.Export.Path = filepath.Join(c.DataDir, c.Export.Path)
	}
	if c.Fetch.ProxiesFile != "" && !filepath.IsAbs(c.Fetch.ProxiesFile) {
		c.Fetch.ProxiesFile = filepath.Join(c.DataDir, c.Fetch.ProxiesFile)
	}
}

// LockPath is the inter-process lock file, or "" when locking is off.
func (c *Config) LockPath() string {
	if !c.Store.Lock {
		return ""
	}
	if c.Store.Backend == "postgres" {
		return filepath.Join(c.DataDir, "leadfinder.lock")
	}
	return c.Store.Path + ".lock"
}

// Validate rejects unknown enum values and out-of-range numbers.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}

	switch c.Store.Backend {
	case "csv", "json", "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path: required for the %s backend", c.Store.Backend))
		}
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn: required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if _, err := leadstore.ParsePolicy(c.Store.Dedupe); err != nil {
		errs = append(errs, fmt.Errorf("store.dedupe: %w", err))
	}
	if _, err := leadstore.ParsePolicy(c.Web.Dedupe); err != nil {
		errs = append(errs, fmt.Errorf("web.dedupe: %w", err))
	}
	if _, err := serp.ParseMode(c.Search.Mode); err != nil {
		errs = append(errs, fmt.Errorf("search.mode: %w", err))
	}
	if _, err := serp.ParseMode(c.Web.SearchMode); err != nil {
		errs = append(errs, fmt.Errorf("web.search_mode: %w", err))
	}
	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		errs = append(errs, fmt.Errorf("fetch.fingerprint: %w", err))
	}

	for _, f := range []struct {
		key string
		val int
	}{
		{"search.count", c.Search.Count},
		{"search.fallback_threshold", c.Search.FallbackThreshold},
		{"search.expanded.pages", c.Search.Expanded.Pages},
		{"search.expanded.count", c.Search.Expanded.Count},
		{"fetch.concurrency", c.Fetch.Concurrency},
	} {
		if f.val <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %d", f.key, f.val))
		}
	}
	if c.Search.Expanded.MaxOffset < 0 {
		errs = append(errs, errors.New("search.expanded.max_offset: must not be negative"))
	}
	if c.Search.Expanded.Delay < 0 {
		errs = append(errs, errors.New("search.expanded.delay: must not be negative"))
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port: out of range %d", c.Metrics.Port))
	}
	if _, err := c.Web.Limit(); err != nil {
		errs = append(errs, fmt.Errorf("web.rate_limit: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// RateLimit is a parsed "<requests>/<unit>" limit.
type RateLimit struct {
	Requests int
	Interval time.Duration
}

// Enabled reports whether the limit should be applied.
func (r RateLimit) Enabled() bool {
	return r.Requests > 0 && r.Interval > 0
}

// Limit parses RateLimit. An empty value yields a disabled limit.
func (w WebConfig) Limit() (RateLimit, error) {
	return ParseRateLimit(w.RateLimit)
}

// ParseRateLimit parses "<requests>/<unit>" where unit is s, min or h.
func ParseRateLimit(value string) (RateLimit, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return RateLimit{}, nil
	}
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimit{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimit{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	var interval time.Duration
	switch unit := strings.ToLower(strings.TrimSpace(parts[1])); unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimit{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}
	return RateLimit{Requests: requests, Interval: interval}, nil
}
