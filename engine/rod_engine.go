package engine

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/flighttrack/config"
	"github.com/use-agent/flighttrack/models"
	"github.com/ysmood/gson"
)

// RodEngine renders pages in a headless Chromium driven over CDP.
// The browser process is launched once; every Fetch runs in its own
// incognito context that is disposed before Fetch returns, so no cookies,
// storage or tabs leak between lookups. It is safe for concurrent use.
type RodEngine struct {
	browser    *rod.Browser
	navTimeout time.Duration
	blocked    map[proto.NetworkResourceType]struct{}
	stealth    bool
	active     atomic.Int32
}

// NewRodEngine launches the browser and connects to it.
func NewRodEngine(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*RodEngine, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}
	if browserCfg.DisableGPU {
		l.Set(flags.Flag("disable-gpu"))
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewTrackError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewTrackError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &RodEngine{
		browser:    browser,
		navTimeout: scraperCfg.NavigationTimeout,
		blocked:    blockedSet(scraperCfg.BlockedResourceTypes),
		stealth:    scraperCfg.Stealth,
	}, nil
}

func (e *RodEngine) Name() string { return "browser" }

// Active returns the number of sessions currently open.
func (e *RodEngine) Active() int { return int(e.active.Load()) }

// Close kills the browser process.
// Call this on shutdown to prevent zombie Chrome processes.
func (e *RodEngine) Close() error {
	slog.Info("render engine shutting down: closing browser")
	return e.browser.Close()
}

// Fetch renders req.URL in a fresh incognito session.
//
// Lifecycle:
//
//  1. Open session          – incognito context + blank page
//  2. DEFER: dispose        – runs on every exit path
//  3. Stealth / headers     – installed before navigation so they apply to it
//  4. Hijack mount          – block images/fonts/media
//  5. Navigate              – bounded by the navigation timeout
//  6. Render wait           – load event + DOM stable, bounded by RenderWait
//  7. Cookie consent        – click if it shows up within ConsentWait
//  8. Wait selector         – bounded by WaitTimeout
//  9. Screenshot            – optional
//  10. Snapshot             – page.HTML()
//
// Only steps 1, 5 and 10 can fail the fetch; the bounded waits log and
// carry on with whatever DOM is present.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	e.active.Add(1)
	defer e.active.Add(-1)

	// ── 1. Open an isolated session ──────────────────────────────────
	session, err := e.browser.Incognito()
	if err != nil {
		return nil, models.NewTrackError(
			models.ErrCodeBrowserCrash,
			"failed to open browser session",
			err,
		)
	}

	// ── 2. Dispose the session on every exit path ────────────────────
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to dispose browser session", "error", closeErr)
		}
	}()

	page, err := session.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewTrackError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}
	defer func() { _ = page.Close() }()

	// ── 3. Stealth injection + extra headers ─────────────────────────
	if e.stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	setExtraHeaders(page, req.Headers)

	// ── 4. Mount hijack router ───────────────────────────────────────
	if router := setupHijack(page, e.blocked); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	// ── 5. Navigate ──────────────────────────────────────────────────
	if navErr := within(p, e.navTimeout, func(tp *rod.Page) error {
		return tp.Navigate(req.URL)
	}); navErr != nil {
		return nil, categorizeError(navErr, "navigation to flight page failed")
	}

	// ── 6. Render wait ───────────────────────────────────────────────
	if waitErr := within(p, req.RenderWait, func(tp *rod.Page) error {
		if err := tp.WaitLoad(); err != nil {
			return err
		}
		return tp.WaitDOMStable(300*time.Millisecond, 0.1)
	}); waitErr != nil {
		slog.Debug("render wait did not converge, proceeding with current DOM",
			"url", req.URL, "error", waitErr,
		)
	}

	// ── 7. Cookie consent ────────────────────────────────────────────
	if req.ConsentText != "" {
		if consentErr := within(p, req.ConsentWait, func(tp *rod.Page) error {
			el, err := tp.ElementR("button", regexp.QuoteMeta(req.ConsentText))
			if err != nil {
				return err
			}
			return el.Click(proto.InputMouseButtonLeft, 1)
		}); consentErr != nil {
			slog.Debug("no cookie consent dismissed", "error", consentErr)
		}
	}

	// ── 8. Wait selector ─────────────────────────────────────────────
	if req.WaitSelector != "" {
		if selErr := within(p, req.WaitTimeout, func(tp *rod.Page) error {
			_, err := tp.Element(req.WaitSelector)
			return err
		}); selErr != nil {
			slog.Debug("wait selector not found", "selector", req.WaitSelector, "error", selErr)
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, categorizeError(ctxErr, "page render exceeded scrape timeout")
	}

	// ── 9. Screenshot ────────────────────────────────────────────────
	if req.ScreenshotPath != "" {
		saveScreenshot(p, req.ScreenshotPath)
	}

	// ── 10. Snapshot ─────────────────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to read page HTML")
	}

	var statusCode int
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: statusCode,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// within runs fn against a copy of p bounded by d. A non-positive d means
// no extra bound beyond p's own context.
func within(p *rod.Page, d time.Duration, fn func(*rod.Page) error) error {
	if d <= 0 {
		return fn(p)
	}
	tp := p.Timeout(d)
	defer tp.CancelTimeout()
	return fn(tp)
}

// saveScreenshot writes a full-page PNG, logging instead of failing.
func saveScreenshot(p *rod.Page, path string) {
	data, err := p.Screenshot(true, nil)
	if err != nil {
		slog.Warn("screenshot failed", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("screenshot write failed", "path", path, "error", err)
		return
	}
	slog.Debug("screenshot saved", "path", path)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// setExtraHeaders sends headers with every request the page makes.
// A failure is logged and the fetch carries on with browser defaults.
func setExtraHeaders(c proto.Client, headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	err := proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(c)
	if err != nil {
		slog.Warn("failed to set extra request headers, proceeding with browser defaults",
			"headers", len(headers), "error", err,
		)
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
