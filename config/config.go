package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration validation errors.
var (
	ErrUnknownFetchMode = errors.New("scraper.fetch_mode must be 'browser' or 'http'")
	ErrUnknownDriver    = errors.New("database.driver must be 'sqlite' or 'postgres'")
	ErrMissingDSN       = errors.New("database.dsn is required")
)

// Fetch modes.
const (
	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Browser  BrowserConfig
	Scraper  ScraperConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownTimeout is how long in-flight requests get to drain.
	ShutdownTimeout time.Duration // default: 5s
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// DisableGPU turns off GPU acceleration.
	DisableGPU bool // default: true

	// Proxy is the proxy URL for all browser and HTTP traffic.
	Proxy string

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls flight page fetching and extraction.
type ScraperConfig struct {
	// BaseURL is the flight tracker URL prefix; airline and flight number
	// are appended as path segments.
	BaseURL string // default: "https://www.flightstats.com/v2/flight-tracker"

	// FetchMode selects the render engine: "browser" or "http".
	FetchMode string // default: "browser"

	// Timeout bounds one whole extraction.
	Timeout time.Duration // default: 60s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// RenderWait bounds the wait for dynamic content after navigation.
	RenderWait time.Duration // default: 10s

	// ConsentWait bounds the wait for the cookie-consent button.
	ConsentWait time.Duration // default: 5s

	// ConsentText is the visible label of the cookie-consent button.
	ConsentText string // default: "Accept All Cookies"

	// FieldWait bounds the wait for the status badge to appear.
	FieldWait time.Duration // default: 15s

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth bool // default: false

	// AcceptLanguage is sent with every page request so labels render in English.
	AcceptLanguage string // default: "en-US,en;q=0.9"

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// ScreenshotPath, when set, receives a PNG of the rendered page.
	ScreenshotPath string
}

// DatabaseConfig controls the lookup cache storage.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string // default: "sqlite"

	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string // default: "flights.db"

	// Debug logs every SQL statement.
	Debug bool // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// APIKeys is the list of valid API keys. Empty disables authentication.
	APIKeys []string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // default: true
	Path    string // default: "/metrics"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first if present; real
// environment variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:            envOr("FLIGHTTRACK_HOST", "0.0.0.0"),
			Port:            envIntOr("FLIGHTTRACK_PORT", 8080),
			Mode:            envOr("FLIGHTTRACK_MODE", "release"),
			ShutdownTimeout: envDurationOr("FLIGHTTRACK_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("FLIGHTTRACK_HEADLESS", true),
			NoSandbox:  envBoolOr("FLIGHTTRACK_NO_SANDBOX", true),
			DisableGPU: envBoolOr("FLIGHTTRACK_DISABLE_GPU", true),
			Proxy:      os.Getenv("FLIGHTTRACK_PROXY"),
			BrowserBin: os.Getenv("FLIGHTTRACK_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			BaseURL:           envOr("FLIGHTTRACK_BASE_URL", "https://www.flightstats.com/v2/flight-tracker"),
			FetchMode:         envOr("FLIGHTTRACK_FETCH_MODE", FetchModeBrowser),
			Timeout:           envDurationOr("FLIGHTTRACK_SCRAPE_TIMEOUT", 60*time.Second),
			NavigationTimeout: envDurationOr("FLIGHTTRACK_NAV_TIMEOUT", 30*time.Second),
			RenderWait:        envDurationOr("FLIGHTTRACK_RENDER_WAIT", 10*time.Second),
			ConsentWait:       envDurationOr("FLIGHTTRACK_CONSENT_WAIT", 5*time.Second),
			ConsentText:       envOr("FLIGHTTRACK_CONSENT_TEXT", "Accept All Cookies"),
			FieldWait:         envDurationOr("FLIGHTTRACK_FIELD_WAIT", 15*time.Second),
			Stealth:           envBoolOr("FLIGHTTRACK_STEALTH", false),
			AcceptLanguage:    envOr("FLIGHTTRACK_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			BlockedResourceTypes: envSliceOr("FLIGHTTRACK_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			ScreenshotPath: os.Getenv("FLIGHTTRACK_SCREENSHOT_PATH"),
		},
		Database: DatabaseConfig{
			Driver: envOr("FLIGHTTRACK_DB_DRIVER", DriverSQLite),
			DSN:    envOr("FLIGHTTRACK_DB_DSN", "flights.db"),
			Debug:  envBoolOr("FLIGHTTRACK_DB_DEBUG", false),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("FLIGHTTRACK_API_KEYS", nil),
		},
		Log: LogConfig{
			Level:  envOr("FLIGHTTRACK_LOG_LEVEL", "info"),
			Format: envOr("FLIGHTTRACK_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("FLIGHTTRACK_METRICS_ENABLED", true),
			Path:    envOr("FLIGHTTRACK_METRICS_PATH", "/metrics"),
		},
	}
}

// Validate checks the values Load cannot fall back on.
func (c *Config) Validate() error {
	switch c.Scraper.FetchMode {
	case FetchModeBrowser, FetchModeHTTP:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownFetchMode, c.Scraper.FetchMode)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownDriver, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
