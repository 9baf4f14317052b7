package models

import (
	"errors"
	"testing"
)

func TestLookupKeyDate(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"2025-04-07", false},
		{"2024-02-29", false},
		{"2025-02-29", true},
		{"07-04-2025", true},
		{"2025/04/07", true},
		{"2025-4-7", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			_, err := LookupKey{DepartureDate: tt.date}.Date()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Date() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDate) {
				t.Errorf("Date() error = %v, want ErrInvalidDate", err)
			}
		})
	}
}

func TestLookupKeyString(t *testing.T) {
	k := LookupKey{AirlineCode: "AA", FlightNumber: "100", DepartureDate: "2025-04-07"}
	if got := k.String(); got != "AA/100/2025-04-07" {
		t.Errorf("String() = %q", got)
	}
	rec := &FlightRecord{AirlineCode: "AA", FlightNumber: "100", DepartureDate: "2025-04-07"}
	if rec.Key() != k {
		t.Errorf("Key() = %+v, want %+v", rec.Key(), k)
	}
}

func TestTrackError(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_RESET")
	err := NewTrackError(ErrCodeScrapeFailed, "page load failed", cause)

	if !errors.Is(err, cause) {
		t.Error("TrackError should unwrap to its cause")
	}
	if !err.IsScrapeFailure() {
		t.Error("SCRAPE_FAILED should be a scrape failure")
	}
	if got := err.ToDetail().Message; got != "page load failed: net::ERR_CONNECTION_RESET" {
		t.Errorf("ToDetail().Message = %q", got)
	}

	storage := NewTrackError(ErrCodeStorageFailed, "Storage failed", nil)
	if storage.IsScrapeFailure() {
		t.Error("STORAGE_FAILED is not a scrape failure")
	}
	if got := storage.ToDetail().Message; got != "Storage failed" {
		t.Errorf("ToDetail().Message = %q", got)
	}
}
