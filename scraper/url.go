package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/use-agent/flighttrack/models"
)

// FlightURL builds the tracker page address for key:
//
//	{base}/{airline}/{flight}?year=2025&month=4&date=7
//
// Month and day are written without leading zeros.
func FlightURL(base string, key models.LookupKey) (string, error) {
	d, err := key.Date()
	if err != nil {
		return "", err
	}

	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("scraper: parse base url: %w", err)
	}
	u = u.JoinPath(key.AirlineCode, key.FlightNumber)
	u.RawQuery = fmt.Sprintf("year=%d&month=%d&date=%d", d.Year(), int(d.Month()), d.Day())

	return u.String(), nil
}
