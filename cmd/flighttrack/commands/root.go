package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/flighttrack/cache"
	"github.com/use-agent/flighttrack/config"
	"github.com/use-agent/flighttrack/engine"
	"github.com/use-agent/flighttrack/metrics"
	"github.com/use-agent/flighttrack/scraper"
	"github.com/use-agent/flighttrack/tracker"
)

var rootCmd = &cobra.Command{
	Use:           "flighttrack",
	Short:         "flighttrack answers flight status lookups from a cache, scraping FlightStats on a miss.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the wired cache-or-scrape stack shared by every command.
type app struct {
	cfg     *config.Config
	cache   *cache.Cache
	engine  engine.Engine
	metrics *metrics.Metrics
	tracker *tracker.Service
}

// newApp loads configuration and wires storage, the render engine and the
// tracker. The caller must call close.
func newApp() (*app, error) {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 3. Open lookup cache ────────────────────────────────────────
	c, err := cache.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open lookup cache: %w", err)
	}

	// ── 4. Initialise render engine (may launch the browser) ────────
	eng, err := newEngine(cfg)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialise %s engine: %w", cfg.Scraper.FetchMode, err)
	}

	// ── 5. Wire extractor and tracker ───────────────────────────────
	m := metrics.New("flighttrack")
	ext, err := scraper.NewExtractor(eng, cfg.Scraper, m)
	if err != nil {
		closeEngine(eng)
		_ = c.Close()
		return nil, fmt.Errorf("compile locators: %w", err)
	}

	return &app{
		cfg:     cfg,
		cache:   c,
		engine:  eng,
		metrics: m,
		tracker: tracker.New(c, ext, m),
	}, nil
}

func (a *app) close() {
	closeEngine(a.engine)
	if err := a.cache.Close(); err != nil {
		slog.Warn("failed to close lookup cache", "error", err)
	}
}

func newEngine(cfg *config.Config) (engine.Engine, error) {
	if cfg.Scraper.FetchMode == config.FetchModeHTTP {
		return engine.NewHTTPEngine(cfg.Browser.Proxy), nil
	}
	return engine.NewRodEngine(cfg.Browser, cfg.Scraper)
}

// closeEngine kills the browser process when the engine owns one.
func closeEngine(eng engine.Engine) {
	if c, ok := eng.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close render engine", "error", err)
		}
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
