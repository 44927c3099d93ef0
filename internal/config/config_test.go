package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	if cfg := MustLoad(); cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}

// --- Load defaults ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	s := cfg.Scrape
	if s.PoolSize != 4 || s.MaxPoolSize != 8 ||
		s.ElementTimeout != 10*time.Second ||
		s.NavigationTimeout != 30*time.Second ||
		s.LaunchTimeout != 90*time.Second ||
		s.RecoveryTimeout != 30*time.Second ||
		s.JobTimeout != 2*time.Minute {
		t.Fatalf("scrape defaults unexpected: %+v", s)
	}
	if s.BaseURL != "https://opencritic.com/" || s.Layout != "opencritic" || s.Strategy != "first" || !s.WaitForDetail || s.SearchRPS != 0 {
		t.Fatalf("site defaults unexpected: %+v", s)
	}
	b := cfg.Browser
	if !b.Headless || b.WindowWidth != 1512 || b.WindowHeight != 982 {
		t.Fatalf("browser defaults unexpected: %+v", b)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "ratings.db" {
		t.Fatalf("db defaults unexpected: %+v", cfg.DB)
	}
	if cfg.APIBasePath != "/api/v1" || cfg.LogLevel != "info" || cfg.LogFile != "" {
		t.Fatalf("server/log defaults unexpected: %+v", cfg)
	}
}

// --- Load overrides + normalization ---

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("GIN_MODE", "weird") // normalizes to "release"
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("LOG_FILE", "/var/log/ratings.log")
	t.Setenv("API_BASE_PATH", "api/v2/")

	t.Setenv("DB_DRIVER", "PostgreSQL")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/ratings")

	t.Setenv("POOL_SIZE", "6")
	t.Setenv("ELEMENT_TIMEOUT", "5s")
	t.Setenv("JOB_TIMEOUT", "45s")
	t.Setenv("SITE_LAYOUT", "OpenCritic-Legacy")
	t.Setenv("SELECT_STRATEGY", "best")
	t.Setenv("WAIT_FOR_DETAIL", "off")
	t.Setenv("SEARCH_RPS", "0.5")

	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_WINDOW", "1280X720")
	t.Setenv("BROWSER_USER_AGENT", "ratings-bot/1.0")

	t.Setenv("RATE_RPS", "x")      // unparsable -> default 5.0
	t.Setenv("RATE_BURST", "nope") // unparsable -> default 10
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.LogFile != "/var/log/ratings.log" || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging fields unexpected: %+v", cfg)
	}
	if cfg.DB.Driver != "postgres" || !strings.HasPrefix(cfg.DB.DSN, "postgres://") {
		t.Fatalf("db fields unexpected: %+v", cfg.DB)
	}
	s := cfg.Scrape
	if s.PoolSize != 6 || s.ElementTimeout != 5*time.Second || s.JobTimeout != 45*time.Second ||
		s.Layout != "opencritic-legacy" || s.Strategy != "best" || s.WaitForDetail || s.SearchRPS != 0.5 {
		t.Fatalf("scrape fields unexpected: %+v", s)
	}
	if cfg.Browser.Headless || cfg.Browser.WindowWidth != 1280 || cfg.Browser.WindowHeight != 720 || cfg.Browser.UserAgent != "ratings-bot/1.0" {
		t.Fatalf("browser fields unexpected: %+v", cfg.Browser)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate fallbacks unexpected: %v %v", cfg.RateRPS, cfg.RateBurst)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel fields unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_ConfigFile_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.yaml")
	body := "pool_size: 2\nselect_strategy: best\njob_timeout: 30s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RATINGS_CONFIG", path)
	t.Setenv("POOL_SIZE", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Scrape.PoolSize != 3 {
		t.Fatalf("env must override file, got pool size %d", cfg.Scrape.PoolSize)
	}
	if cfg.Scrape.Strategy != "best" || cfg.Scrape.JobTimeout != 30*time.Second {
		t.Fatalf("file values not applied: %+v", cfg.Scrape)
	}
}

func TestLoad_ConfigFile_Missing(t *testing.T) {
	t.Setenv("RATINGS_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil || !containsErr(err, "read config") {
		t.Fatalf("expected read config error, got %v", err)
	}
}

// --- validation ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"unknown driver", "DB_DRIVER", "mysql", "DB_DRIVER"},
		{"postgres without dsn", "DB_DRIVER", "postgres", "DB_DSN"},
		{"pool size", "POOL_SIZE", "0", "POOL_SIZE"},
		{"pool size above max", "POOL_SIZE", "12", "MAX_POOL_SIZE"},
		{"scrape timeout", "JOB_TIMEOUT", "-1s", "scrape timeouts"},
		{"base url", "SITE_BASE_URL", "opencritic.com", "SITE_BASE_URL"},
		{"layout", "SITE_LAYOUT", "metacritic", "SITE_LAYOUT"},
		{"strategy", "SELECT_STRATEGY", "random", "SELECT_STRATEGY"},
		{"search rps", "SEARCH_RPS", "-1", "SEARCH_RPS"},
		{"window", "BROWSER_WINDOW", "big", "BROWSER_WINDOW"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst", "RATE_BURST", "0", "RATE_BURST"},
		{"hsts max age", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"idempotency ttl", "IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"otel ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); !containsErr(err, tc.want) {
				t.Fatalf("expected %q error, got: %v", tc.want, err)
			}
		})
	}
}

// --- helpers ---

func TestSource_TypedFallbacks(t *testing.T) {
	v := viper.New()
	v.Set("f", "1.5")
	v.Set("i", "42")
	v.Set("d", "3s")
	v.Set("b", "Off")
	v.Set("bad", "zz")
	v.Set("blank", "   ")
	s := source{v}

	if s.float("f", 0) != 1.5 || s.float("bad", 2) != 2 {
		t.Fatalf("float parsing")
	}
	if s.int("i", 0) != 42 || s.int("bad", 7) != 7 {
		t.Fatalf("int parsing")
	}
	if s.dur("d", 0) != 3*time.Second || s.dur("bad", time.Minute) != time.Minute {
		t.Fatalf("duration parsing")
	}
	if s.bool("b", true) || !s.bool("bad", true) {
		t.Fatalf("bool parsing")
	}
	if s.str("blank", "def") != "def" || s.str("missing", "def") != "def" {
		t.Fatalf("blank and missing keys must fall back")
	}
}

func TestParseWindow(t *testing.T) {
	if w, h, err := parseWindow(" 800 x 600 "); err != nil || w != 800 || h != 600 {
		t.Fatalf("parseWindow = %d %d %v", w, h, err)
	}
	for _, bad := range []string{"", "800", "0x600", "axb"} {
		if _, _, err := parseWindow(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if splitCSV("") != nil {
		t.Fatalf("splitCSV(\"\") should be nil")
	}
	if got := splitCSV(" a, ,b "); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	cases := map[string]string{"": "/", "api": "/api", "/api/": "/api", "/": "/"}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

// Ensure tests don't pick up the developer's environment.
func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_PATH", "DB_DSN", "POOL_SIZE", "MAX_POOL_SIZE", "SITE_LAYOUT", "RATINGS_CONFIG", "LOG_LEVEL"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
