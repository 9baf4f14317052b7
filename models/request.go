package models

// TrackRequest holds the query parameters for GET /api/v1/track-flight.
type TrackRequest struct {
	// AirlineCode is the two-letter carrier code, e.g. "AA". Required.
	AirlineCode string `form:"airline_code" binding:"required,len=2"`

	// FlightNumber is the carrier's flight number, e.g. "100". Required.
	FlightNumber string `form:"flight_number" binding:"required"`

	// DepartureDate is the local departure date as YYYY-MM-DD. Required.
	DepartureDate string `form:"departure_date" binding:"required"`
}

// Key converts the request into a lookup key.
func (r *TrackRequest) Key() LookupKey {
	return LookupKey{
		AirlineCode:   r.AirlineCode,
		FlightNumber:  r.FlightNumber,
		DepartureDate: r.DepartureDate,
	}
}
