package models

import (
	"fmt"
	"time"
)

// Unknown is the placeholder stored for any field the page did not yield.
const Unknown = "Unknown"

// DateLayout is the accepted departure date format.
const DateLayout = "2006-01-02"

// LookupKey identifies one flight on one departure date.
type LookupKey struct {
	AirlineCode   string
	FlightNumber  string
	DepartureDate string
}

// String renders the key as AA/100/2025-04-07.
func (k LookupKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.AirlineCode, k.FlightNumber, k.DepartureDate)
}

// Date parses the departure date. It fails with ErrInvalidDate unless the
// value is a real calendar date in YYYY-MM-DD form.
func (k LookupKey) Date() (time.Time, error) {
	t, err := time.Parse(DateLayout, k.DepartureDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, k.DepartureDate)
	}
	return t, nil
}

// FlightRecord is a scraped flight status snapshot.
type FlightRecord struct {
	ID               uint      `json:"-"`
	AirlineCode      string    `json:"airline_code"`
	FlightNumber     string    `json:"flight_number"`
	DepartureDate    string    `json:"departure_date"`
	Status           string    `json:"status"`
	FlightLabel      string    `json:"flight_label"`
	DepartureAirport string    `json:"departure_airport"`
	ArrivalAirport   string    `json:"arrival_airport"`
	DepartureTime    string    `json:"departure_time"`
	ArrivalTime      string    `json:"arrival_time"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Key returns the record's lookup key.
func (r *FlightRecord) Key() LookupKey {
	return LookupKey{
		AirlineCode:   r.AirlineCode,
		FlightNumber:  r.FlightNumber,
		DepartureDate: r.DepartureDate,
	}
}
