// Package config provides application configuration loaded from environment
// variables, an optional .env file and an optional config file, with defaults
// and validation. It centralizes settings for the scrape pipeline, the browser,
// the result store, the HTTP server, logging and observability.
//
// Precedence, highest first: process environment, .env, the file named by
// RATINGS_CONFIG (any format viper reads; keys are the lower-case env names,
// e.g. pool_size), built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tbourn/go-ratings-pipeline/internal/extract"
	"github.com/tbourn/go-ratings-pipeline/internal/match"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-ratings-pipeline")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and locates the result store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH: SQLite file
	DSN    string // DB_DSN: postgres connection string
}

// ScrapeConfig controls the acquisition pipeline.
type ScrapeConfig struct {
	PoolSize          int           // POOL_SIZE
	MaxPoolSize       int           // MAX_POOL_SIZE, cap for requested pools
	ElementTimeout    time.Duration // ELEMENT_TIMEOUT
	NavigationTimeout time.Duration // NAVIGATION_TIMEOUT
	LaunchTimeout     time.Duration // LAUNCH_TIMEOUT
	RecoveryTimeout   time.Duration // RECOVERY_TIMEOUT
	JobTimeout        time.Duration // JOB_TIMEOUT
	BaseURL           string        // SITE_BASE_URL
	Layout            string        // SITE_LAYOUT
	Strategy          string        // SELECT_STRATEGY: first|best
	WaitForDetail     bool          // WAIT_FOR_DETAIL
	SearchRPS         float64       // SEARCH_RPS, 0 = unlimited
}

// BrowserConfig controls how Chrome is started.
type BrowserConfig struct {
	Headless     bool   // BROWSER_HEADLESS
	WindowWidth  int    // from BROWSER_WINDOW, e.g. 1512x982
	WindowHeight int    //
	UserAgent    string // BROWSER_USER_AGENT
	ExecPath     string // BROWSER_EXEC_PATH
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	APIBasePath       string        // base path for API routes

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev
	LogFile   string // optional rotating log file

	// Storage
	DB DBConfig

	// Pipeline
	Scrape  ScrapeConfig
	Browser BrowserConfig

	// Rate limiting (HTTP)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from the environment (plus .env and the optional
// RATINGS_CONFIG file), applies defaults, normalizes values, and validates the
// result.
func Load() (Config, error) {
	// A missing .env is normal; existing variables are never overridden.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	if file := strings.TrimSpace(os.Getenv("RATINGS_CONFIG")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	src := source{v}

	w, h, werr := parseWindow(src.str("browser_window", "1512x982"))

	cfg := Config{
		// Server
		Port:              src.str("port", "8080"),
		ReadTimeout:       src.dur("read_timeout", 15*time.Second),
		ReadHeaderTimeout: src.dur("read_header_timeout", 10*time.Second),
		WriteTimeout:      src.dur("write_timeout", 20*time.Second),
		IdleTimeout:       src.dur("idle_timeout", 60*time.Second),
		MaxHeaderBytes:    src.int("max_header_bytes", 1<<20),
		GinMode:           strings.ToLower(src.str("gin_mode", "release")),
		APIBasePath:       normalizeBasePath(src.str("api_base_path", "/api/v1")),

		// Logging
		LogLevel:  strings.ToLower(src.str("log_level", "info")),
		LogPretty: src.bool("log_pretty", false),
		LogFile:   src.str("log_file", ""),

		// Storage
		DB: DBConfig{
			Driver: strings.ToLower(src.str("db_driver", "sqlite")),
			Path:   src.str("db_path", "ratings.db"),
			DSN:    src.str("db_dsn", ""),
		},

		// Pipeline
		Scrape: ScrapeConfig{
			PoolSize:          src.int("pool_size", 4),
			MaxPoolSize:       src.int("max_pool_size", 8),
			ElementTimeout:    src.dur("element_timeout", 10*time.Second),
			NavigationTimeout: src.dur("navigation_timeout", 30*time.Second),
			LaunchTimeout:     src.dur("launch_timeout", 90*time.Second),
			RecoveryTimeout:   src.dur("recovery_timeout", 30*time.Second),
			JobTimeout:        src.dur("job_timeout", 2*time.Minute),
			BaseURL:           src.str("site_base_url", "https://opencritic.com/"),
			Layout:            strings.ToLower(src.str("site_layout", extract.OpenCritic.Name)),
			Strategy:          strings.ToLower(src.str("select_strategy", string(match.First))),
			WaitForDetail:     src.bool("wait_for_detail", true),
			SearchRPS:         src.float("search_rps", 0),
		},
		Browser: BrowserConfig{
			Headless:     src.bool("browser_headless", true),
			WindowWidth:  w,
			WindowHeight: h,
			UserAgent:    src.str("browser_user_agent", ""),
			ExecPath:     src.str("browser_exec_path", ""),
		},

		// Rate limiting
		RateRPS:   src.float("rate_rps", 5.0),
		RateBurst: src.int("rate_burst", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(src.str("cors_allowed_origins", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: src.bool("enable_hsts", false),
			HSTSMaxAge: src.dur("hsts_max_age", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: src.dur("idempotency_ttl", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     src.bool("otel_enabled", false),
			Endpoint:    src.str("otel_exporter_otlp_endpoint", "localhost:4317"),
			Insecure:    src.bool("otel_exporter_otlp_insecure", true),
			ServiceName: src.str("otel_service_name", "go-ratings-pipeline"),
			SampleRatio: src.float("otel_traces_sampler_arg", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.Scrape.Strategy == "" {
		cfg.Scrape.Strategy = string(match.First)
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.Scrape.PoolSize < 1 {
		return cfg, errors.New("POOL_SIZE must be >= 1")
	}
	if cfg.Scrape.MaxPoolSize < cfg.Scrape.PoolSize {
		return cfg, errors.New("MAX_POOL_SIZE must be >= POOL_SIZE")
	}
	s := cfg.Scrape
	if s.ElementTimeout <= 0 || s.NavigationTimeout <= 0 || s.LaunchTimeout <= 0 || s.RecoveryTimeout <= 0 || s.JobTimeout <= 0 {
		return cfg, errors.New("scrape timeouts must be positive durations")
	}
	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return cfg, errors.New("SITE_BASE_URL must be an http(s) URL")
	}
	if _, err := extract.Lookup(s.Layout); err != nil {
		return cfg, fmt.Errorf("SITE_LAYOUT: %w (known: %s)", err, strings.Join(extract.Names(), ", "))
	}
	if _, err := match.ParseStrategy(s.Strategy); err != nil {
		return cfg, fmt.Errorf("SELECT_STRATEGY: %w", err)
	}
	if s.SearchRPS < 0 {
		return cfg, errors.New("SEARCH_RPS must be >= 0")
	}
	if werr != nil {
		return cfg, werr
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

// source reads typed values from viper, falling back to def when a key is
// unset, empty or unparsable.
type source struct{ v *viper.Viper }

func (s source) raw(k string) (string, bool) {
	if !s.v.IsSet(k) {
		return "", false
	}
	val := strings.TrimSpace(s.v.GetString(k))
	return val, val != ""
}

func (s source) str(k, def string) string {
	if v, ok := s.raw(k); ok {
		return v
	}
	return def
}

func (s source) float(k string, def float64) float64 {
	if v, ok := s.raw(k); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (s source) int(k string, def int) int {
	if v, ok := s.raw(k); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) bool(k string, def bool) bool {
	if v, ok := s.raw(k); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func (s source) dur(k string, def time.Duration) time.Duration {
	if v, ok := s.raw(k); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parseWindow parses "WIDTHxHEIGHT".
func parseWindow(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if ok {
		w, err1 := strconv.Atoi(strings.TrimSpace(ws))
		h, err2 := strconv.Atoi(strings.TrimSpace(hs))
		if err1 == nil && err2 == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("BROWSER_WINDOW must look like 1512x982, got %q", s)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
