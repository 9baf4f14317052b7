package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/flighttrack/config"
	"github.com/use-agent/flighttrack/engine"
	"github.com/use-agent/flighttrack/metrics"
	"github.com/use-agent/flighttrack/models"
)

// Extractor turns a lookup key into a FlightRecord by rendering the
// tracker page and reading its display fields.
// It is safe for concurrent use.
type Extractor struct {
	engine   engine.Engine
	cfg      config.ScraperConfig
	locators []Locator
	metrics  *metrics.Metrics
}

// NewExtractor creates an Extractor using DefaultLocators.
func NewExtractor(eng engine.Engine, cfg config.ScraperConfig, m *metrics.Metrics) (*Extractor, error) {
	return NewExtractorWithLocators(eng, cfg, m, DefaultLocators)
}

// NewExtractorWithLocators creates an Extractor with custom locators.
func NewExtractorWithLocators(eng engine.Engine, cfg config.ScraperConfig, m *metrics.Metrics, locs []Locator) (*Extractor, error) {
	compiled, err := CompileLocators(locs)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		engine:   eng,
		cfg:      cfg,
		locators: compiled,
		metrics:  m,
	}, nil
}

// Extract renders the flight page for key and reads its fields.
//
// The three key fields are copied from key unchanged. Every display field
// is extracted independently; a field whose locator misses is set to
// models.Unknown. Extract fails only when the page itself cannot be
// loaded, with a *models.TrackError wrapping the cause.
func (x *Extractor) Extract(ctx context.Context, key models.LookupKey) (*models.FlightRecord, error) {
	pageURL, err := FlightURL(x.cfg.BaseURL, key)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeInvalidInput, models.InvalidDateMessage, err)
	}

	if x.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := x.engine.Fetch(ctx, x.fetchRequest(pageURL))
	if err != nil {
		x.metrics.Scrape(false, time.Since(start))
		slog.Warn("flight page load failed", "key", key.String(), "url", pageURL, "error", err)

		var te *models.TrackError
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, models.NewTrackError(models.ErrCodeScrapeFailed, "page load failed", err)
	}

	rec := x.Parse(key, res.HTML)
	x.metrics.Scrape(true, time.Since(start))
	slog.Info("flight page scraped",
		"key", key.String(),
		"engine", res.EngineName,
		"status", rec.Status,
		"took", time.Since(start).Round(time.Millisecond).String(),
	)
	return rec, nil
}

// Parse applies the locators to a rendered page snapshot. It never fails:
// unparseable HTML simply yields Unknown for every display field.
func (x *Extractor) Parse(key models.LookupKey, rawHTML string) *models.FlightRecord {
	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))

	values := make(map[string]string, len(x.locators))
	for _, loc := range x.locators {
		v, ok := bestEffort(loc.Field, func() (string, error) {
			if docErr != nil {
				return "", docErr
			}
			return loc.find(doc)
		})
		if !ok {
			x.metrics.FieldMiss(loc.Field)
		}
		values[loc.Field] = v
	}

	return &models.FlightRecord{
		AirlineCode:      key.AirlineCode,
		FlightNumber:     key.FlightNumber,
		DepartureDate:    key.DepartureDate,
		Status:           valueOrUnknown(values, FieldStatus),
		FlightLabel:      valueOrUnknown(values, FieldFlightLabel),
		DepartureAirport: valueOrUnknown(values, FieldDepartureAirport),
		ArrivalAirport:   valueOrUnknown(values, FieldArrivalAirport),
		DepartureTime:    valueOrUnknown(values, FieldDepartureTime),
		ArrivalTime:      valueOrUnknown(values, FieldArrivalTime),
	}
}

func (x *Extractor) fetchRequest(pageURL string) *engine.FetchRequest {
	req := &engine.FetchRequest{
		URL:            pageURL,
		RenderWait:     x.cfg.RenderWait,
		ConsentText:    x.cfg.ConsentText,
		ConsentWait:    x.cfg.ConsentWait,
		WaitTimeout:    x.cfg.FieldWait,
		ScreenshotPath: x.cfg.ScreenshotPath,
	}
	if x.cfg.AcceptLanguage != "" {
		req.Headers = map[string]string{"Accept-Language": x.cfg.AcceptLanguage}
	}
	for _, loc := range x.locators {
		if loc.Field == FieldStatus {
			req.WaitSelector = loc.Selector
			break
		}
	}
	return req
}

// valueOrUnknown covers fields with no locator configured.
func valueOrUnknown(values map[string]string, field string) string {
	if v, ok := values[field]; ok {
		return v
	}
	return models.Unknown
}
