package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/use-agent/flighttrack/models"
)

var trackArgs struct {
	airline string
	flight  string
	date    string
}

func init() {
	f := trackCmd.Flags()
	f.StringVar(&trackArgs.airline, "airline", "", "Two-character airline code, e.g. AA.")
	f.StringVar(&trackArgs.flight, "flight", "", "Flight number, e.g. 100.")
	f.StringVar(&trackArgs.date, "date", "", "Departure date as YYYY-MM-DD.")
	_ = trackCmd.MarkFlagRequired("airline")
	_ = trackCmd.MarkFlagRequired("flight")
	_ = trackCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(trackCmd)
}

var trackCmd = &cobra.Command{
	Use:   "track --airline <code> --flight <number> --date <YYYY-MM-DD>",
	Short: "Looks up one flight through the cache and prints it as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		key := models.LookupKey{
			AirlineCode:   trackArgs.airline,
			FlightNumber:  trackArgs.flight,
			DepartureDate: trackArgs.date,
		}
		if err := validateKey(key); err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		rec, hit, err := a.tracker.Track(cmd.Context(), key)
		if err != nil {
			return err
		}

		cacheStatus := "miss"
		if hit {
			cacheStatus = "hit"
		}
		fmt.Fprintf(os.Stderr, "cache: %s\n", cacheStatus)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// validateKey applies the same rules as the API's query binding.
func validateKey(key models.LookupKey) error {
	if n := utf8.RuneCountInString(key.AirlineCode); n != 2 {
		return fmt.Errorf("airline code must be exactly 2 characters, got %q", key.AirlineCode)
	}
	if key.FlightNumber == "" {
		return errors.New("flight number is required")
	}
	if _, err := key.Date(); err != nil {
		return fmt.Errorf("%s: %w", models.InvalidDateMessage, err)
	}
	return nil
}
