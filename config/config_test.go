package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Scraper.FetchMode != FetchModeBrowser {
		t.Errorf("FetchMode = %q, want %q", cfg.Scraper.FetchMode, FetchModeBrowser)
	}
	if cfg.Scraper.BaseURL != "https://www.flightstats.com/v2/flight-tracker" {
		t.Errorf("BaseURL = %q", cfg.Scraper.BaseURL)
	}
	if cfg.Scraper.ConsentWait != 5*time.Second {
		t.Errorf("ConsentWait = %v, want 5s", cfg.Scraper.ConsentWait)
	}
	if cfg.Scraper.FieldWait != 15*time.Second {
		t.Errorf("FieldWait = %v, want 15s", cfg.Scraper.FieldWait)
	}
	if !cfg.Browser.Headless || !cfg.Browser.NoSandbox || !cfg.Browser.DisableGPU {
		t.Errorf("browser flags = %+v, want headless, no-sandbox and no-gpu", cfg.Browser)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != "flights.db" {
		t.Errorf("database = %+v, want sqlite flights.db", cfg.Database)
	}
	if len(cfg.Auth.APIKeys) != 0 {
		t.Errorf("APIKeys = %v, want none", cfg.Auth.APIKeys)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLIGHTTRACK_PORT", "9090")
	t.Setenv("FLIGHTTRACK_FETCH_MODE", "http")
	t.Setenv("FLIGHTTRACK_RENDER_WAIT", "3s")
	t.Setenv("FLIGHTTRACK_API_KEYS", "a, b,,c")
	t.Setenv("FLIGHTTRACK_NO_SANDBOX", "false")
	t.Setenv("FLIGHTTRACK_DB_DRIVER", "postgres")
	t.Setenv("FLIGHTTRACK_DB_DSN", "postgres://localhost/flights")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Scraper.FetchMode != FetchModeHTTP {
		t.Errorf("FetchMode = %q, want http", cfg.Scraper.FetchMode)
	}
	if cfg.Scraper.RenderWait != 3*time.Second {
		t.Errorf("RenderWait = %v, want 3s", cfg.Scraper.RenderWait)
	}
	if got := cfg.Auth.APIKeys; len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("APIKeys = %v, want [a b c]", got)
	}
	if cfg.Browser.NoSandbox {
		t.Error("NoSandbox should be overridden to false")
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("FLIGHTTRACK_PORT", "not-a-number")
	t.Setenv("FLIGHTTRACK_SCRAPE_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want fallback 8080", cfg.Server.Port)
	}
	if cfg.Scraper.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want fallback 60s", cfg.Scraper.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"ok", func(*Config) {}, nil},
		{"bad fetch mode", func(c *Config) { c.Scraper.FetchMode = "carrier-pigeon" }, ErrUnknownFetchMode},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, ErrUnknownDriver},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, ErrMissingDSN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
