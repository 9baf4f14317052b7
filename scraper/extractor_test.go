package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/use-agent/flighttrack/config"
	"github.com/use-agent/flighttrack/engine"
	"github.com/use-agent/flighttrack/metrics"
	"github.com/use-agent/flighttrack/models"
)

const trackerPage = `<html><body>
<div class="ticket__StatusBadge-sc-1rrbl5o-12">  On   time </div>
<div class="ticket__FlightNumberContainer-sc-1rrbl5o-4 exbpMf">
  <div class="text-helper__TextHelper-sc-8bko4a-0 OvgJa">AA 100</div>
</div>
<section>
  <div>New York, NY, US</div>
  <div><div>Scheduled</div><div>18:30 EDT</div></div>
</section>
<section>
  <div>London, EN, GB</div>
  <div><div>Scheduled</div><div>06:45 BST</div></div>
</section>
</body></html>`

// stubEngine returns a canned page or error and records what it was asked.
type stubEngine struct {
	html  string
	err   error
	calls int
	last  *engine.FetchRequest
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &engine.FetchResult{HTML: s.html, EngineName: s.Name()}, nil
}

var testKey = models.LookupKey{AirlineCode: "AA", FlightNumber: "100", DepartureDate: "2025-04-07"}

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		BaseURL:        "https://www.flightstats.com/v2/flight-tracker",
		ConsentText:    "Accept All Cookies",
		AcceptLanguage: "en-US",
	}
}

func newTestExtractor(t *testing.T, eng engine.Engine, m *metrics.Metrics) *Extractor {
	t.Helper()
	x, err := NewExtractor(eng, testConfig(), m)
	if err != nil {
		t.Fatalf("NewExtractor() error: %v", err)
	}
	return x
}

func TestExtract_AllFields(t *testing.T) {
	eng := &stubEngine{html: trackerPage}
	x := newTestExtractor(t, eng, nil)

	rec, err := x.Extract(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	want := models.FlightRecord{
		AirlineCode:      "AA",
		FlightNumber:     "100",
		DepartureDate:    "2025-04-07",
		Status:           "On time",
		FlightLabel:      "AA 100",
		DepartureAirport: "New York, NY, US",
		ArrivalAirport:   "London, EN, GB",
		DepartureTime:    "18:30 EDT",
		ArrivalTime:      "06:45 BST",
	}
	if *rec != want {
		t.Errorf("Extract() =\n%+v\nwant\n%+v", *rec, want)
	}
	if eng.calls != 1 {
		t.Errorf("engine called %d times, want 1", eng.calls)
	}
}

func TestExtract_FetchRequest(t *testing.T) {
	eng := &stubEngine{html: trackerPage}
	x := newTestExtractor(t, eng, nil)

	if _, err := x.Extract(context.Background(), testKey); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	req := eng.last
	if req.URL != "https://www.flightstats.com/v2/flight-tracker/AA/100?year=2025&month=4&date=7" {
		t.Errorf("URL = %q", req.URL)
	}
	if req.WaitSelector != DefaultLocators[0].Selector {
		t.Errorf("WaitSelector = %q, want the status locator", req.WaitSelector)
	}
	if req.ConsentText != "Accept All Cookies" {
		t.Errorf("ConsentText = %q", req.ConsentText)
	}
	if req.Headers["Accept-Language"] != "en-US" {
		t.Errorf("Accept-Language = %q", req.Headers["Accept-Language"])
	}
}

func TestExtract_AllLocatorsMiss(t *testing.T) {
	m := metrics.New("test")
	x := newTestExtractor(t, &stubEngine{html: `<html><body><p>Flight not found</p></body></html>`}, m)

	rec, err := x.Extract(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if rec.Key() != testKey {
		t.Errorf("key = %+v, want %+v", rec.Key(), testKey)
	}
	for field, got := range map[string]string{
		FieldStatus:           rec.Status,
		FieldFlightLabel:      rec.FlightLabel,
		FieldDepartureAirport: rec.DepartureAirport,
		FieldArrivalAirport:   rec.ArrivalAirport,
		FieldDepartureTime:    rec.DepartureTime,
		FieldArrivalTime:      rec.ArrivalTime,
	} {
		if got != models.Unknown {
			t.Errorf("%s = %q, want %q", field, got, models.Unknown)
		}
		if n := testutil.ToFloat64(m.FieldMisses.WithLabelValues(field)); n != 1 {
			t.Errorf("field_misses_total{field=%q} = %v, want 1", field, n)
		}
	}
	if n := testutil.ToFloat64(m.Scrapes.WithLabelValues("success")); n != 1 {
		t.Errorf("scrapes_total{outcome=success} = %v, want 1", n)
	}
}

func TestExtract_PartialMiss(t *testing.T) {
	// Only one "Scheduled" block: the arrival time locator has no second match.
	page := `<body>
<div class="ticket__StatusBadge-sc-1rrbl5o-12">Delayed</div>
<div><div>Scheduled</div><div>09:15 CET</div></div>
<div class="ticket__StatusBadge-sc-1rrbl5o-12"></div>
</body>`
	x := newTestExtractor(t, &stubEngine{html: page}, nil)

	rec, err := x.Extract(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if rec.Status != "Delayed" {
		t.Errorf("Status = %q, want Delayed", rec.Status)
	}
	if rec.DepartureTime != "09:15 CET" {
		t.Errorf("DepartureTime = %q, want 09:15 CET", rec.DepartureTime)
	}
	if rec.ArrivalTime != models.Unknown {
		t.Errorf("ArrivalTime = %q, want Unknown", rec.ArrivalTime)
	}
	if rec.FlightLabel != models.Unknown {
		t.Errorf("FlightLabel = %q, want Unknown", rec.FlightLabel)
	}
}

func TestExtract_PageLoadFailure(t *testing.T) {
	m := metrics.New("test")
	eng := &stubEngine{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	x := newTestExtractor(t, eng, m)

	rec, err := x.Extract(context.Background(), testKey)
	if rec != nil {
		t.Errorf("record = %+v, want nil", rec)
	}

	var te *models.TrackError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *models.TrackError", err)
	}
	if te.Code != models.ErrCodeScrapeFailed {
		t.Errorf("Code = %q, want %q", te.Code, models.ErrCodeScrapeFailed)
	}
	if !strings.Contains(te.ToDetail().Message, "ERR_NAME_NOT_RESOLVED") {
		t.Errorf("message %q should carry the cause", te.ToDetail().Message)
	}
	if n := testutil.ToFloat64(m.Scrapes.WithLabelValues("failure")); n != 1 {
		t.Errorf("scrapes_total{outcome=failure} = %v, want 1", n)
	}
}

func TestExtract_TypedEngineErrorPassesThrough(t *testing.T) {
	cause := models.NewTrackError(models.ErrCodeTimeout, "navigation timed out", context.DeadlineExceeded)
	x := newTestExtractor(t, &stubEngine{err: cause}, nil)

	_, err := x.Extract(context.Background(), testKey)
	if err != cause {
		t.Errorf("error = %v, want the engine's TrackError unchanged", err)
	}
}

func TestExtract_InvalidDateSkipsFetch(t *testing.T) {
	eng := &stubEngine{html: trackerPage}
	x := newTestExtractor(t, eng, nil)

	_, err := x.Extract(context.Background(), models.LookupKey{
		AirlineCode: "AA", FlightNumber: "100", DepartureDate: "07-04-2025",
	})

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeInvalidInput {
		t.Fatalf("error = %v, want %s", err, models.ErrCodeInvalidInput)
	}
	if eng.calls != 0 {
		t.Errorf("engine called %d times, want 0", eng.calls)
	}
}

func TestCompileLocators_BadSelector(t *testing.T) {
	_, err := CompileLocators([]Locator{{Field: FieldStatus, Selector: "div["}})
	if err == nil {
		t.Fatal("expected an error for a malformed selector")
	}
}

func TestParse_MissingLocatorDefaultsUnknown(t *testing.T) {
	x, err := NewExtractorWithLocators(&stubEngine{}, testConfig(), nil, DefaultLocators[:1])
	if err != nil {
		t.Fatalf("NewExtractorWithLocators() error: %v", err)
	}

	rec := x.Parse(testKey, trackerPage)
	if rec.Status != "On time" {
		t.Errorf("Status = %q, want On time", rec.Status)
	}
	if rec.ArrivalAirport != models.Unknown {
		t.Errorf("ArrivalAirport = %q, want Unknown", rec.ArrivalAirport)
	}
}

func TestBestEffort_RecoversPanic(t *testing.T) {
	v, ok := bestEffort(FieldStatus, func() (string, error) {
		panic("boom")
	})
	if ok || v != models.Unknown {
		t.Errorf("bestEffort() = (%q, %v), want (Unknown, false)", v, ok)
	}
}
