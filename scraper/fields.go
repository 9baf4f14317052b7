package scraper

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/flighttrack/models"
)

// Field names, used as log attributes and metric labels.
const (
	FieldStatus           = "status"
	FieldFlightLabel      = "flight_label"
	FieldDepartureAirport = "departure_airport"
	FieldArrivalAirport   = "arrival_airport"
	FieldDepartureTime    = "departure_time"
	FieldArrivalTime      = "arrival_time"
)

var (
	errNoMatch   = errors.New("no element matched")
	errEmptyText = errors.New("matched element has no text")
)

// Locator finds one display field in the rendered tracker page.
// Index picks the n-th match when a selector matches several elements.
type Locator struct {
	Field    string
	Selector string
	Index    int

	matcher cascadia.Selector
}

// DefaultLocators describe the tracker's markup. They depend on generated
// class names and on literal page text, and stop matching whenever the
// site changes; a stale locator yields Unknown for its field only.
var DefaultLocators = []Locator{
	{Field: FieldStatus, Selector: `div.ticket__StatusBadge-sc-1rrbl5o-12`},
	{Field: FieldFlightLabel, Selector: `div.ticket__FlightNumberContainer-sc-1rrbl5o-4.exbpMf > div.text-helper__TextHelper-sc-8bko4a-0.OvgJa`},
	{Field: FieldDepartureAirport, Selector: `div:containsOwn("New York")`},
	{Field: FieldArrivalAirport, Selector: `div:containsOwn("London")`},
	{Field: FieldDepartureTime, Selector: `div:containsOwn("Scheduled") + div`},
	{Field: FieldArrivalTime, Selector: `div:containsOwn("Scheduled") + div`, Index: 1},
}

// CompileLocators parses every selector up front so a typo fails at
// startup instead of silently turning into an Unknown field.
func CompileLocators(locs []Locator) ([]Locator, error) {
	out := make([]Locator, len(locs))
	for i, loc := range locs {
		m, err := cascadia.Compile(loc.Selector)
		if err != nil {
			return nil, fmt.Errorf("scraper: locator %s: %w", loc.Field, err)
		}
		loc.matcher = m
		out[i] = loc
	}
	return out, nil
}

// find returns the whitespace-normalised text of the locator's match.
func (l Locator) find(doc *goquery.Document) (string, error) {
	sel := doc.FindMatcher(l.matcher)
	if sel.Length() <= l.Index {
		return "", fmt.Errorf("%w: %s [%d]", errNoMatch, l.Selector, l.Index)
	}
	text := strings.Join(strings.Fields(sel.Eq(l.Index).Text()), " ")
	if text == "" {
		return "", fmt.Errorf("%w: %s", errEmptyText, l.Selector)
	}
	return text, nil
}

// bestEffort runs fn and returns its value, or models.Unknown if fn fails
// or panics. One field's failure never affects another's.
func bestEffort(field string, fn func() (string, error)) (value string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("field extraction panicked", "field", field, "panic", r)
			value, ok = models.Unknown, false
		}
	}()

	v, err := fn()
	if err != nil {
		slog.Debug("field extraction missed", "field", field, "error", err)
		return models.Unknown, false
	}
	return v, true
}
