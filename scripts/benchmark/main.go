package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "flighttrack API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Lookups per flight; the first is usually a cache miss")
	date   = flag.String("date", time.Now().Format("2006-01-02"), "Departure date for every flight")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Flights covering short-haul, long-haul and overnight departures.
var testFlights = []struct {
	Label   string
	Airline string
	Number  string
}{
	{"Domestic", "AA", "100"},
	{"Transatlantic", "BA", "117"},
	{"Transpacific", "UA", "837"},
	{"Regional", "WN", "1234"},
	{"Red-eye", "DL", "40"},
}

// displayFields are the record fields a scrape can leave as Unknown.
var displayFields = []string{
	"status", "flight_label", "departure_airport", "arrival_airport",
	"departure_time", "arrival_time",
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run           int    `json:"run"`
	TotalMs       int64  `json:"total_ms"`
	StatusCode    int    `json:"status_code"`
	CacheStatus   string `json:"cache_status"`
	UnknownFields int    `json:"unknown_fields"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

type flightAverages struct {
	MissMs float64 `json:"miss_ms"`
	HitMs  float64 `json:"hit_ms"`
}

type flightResult struct {
	Flight   string          `json:"flight"`
	Label    string          `json:"label"`
	Runs     []runResult     `json:"runs"`
	Averages *flightAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp     string         `json:"timestamp"`
	APIURL        string         `json:"api_url"`
	DepartureDate string         `json:"departure_date"`
	RunsPerFlight int            `json:"runs_per_flight"`
	Results       []flightResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== flighttrack Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Date:      %s\n", *date)
	fmt.Printf("Runs:      %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure the server is running (flighttrack serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		APIURL:        *apiURL,
		DepartureDate: *date,
		RunsPerFlight: *runs,
	}

	client := &http.Client{Timeout: 120 * time.Second}
	for _, f := range testFlights {
		name := f.Airline + " " + f.Number
		fmt.Printf("Benchmarking [%s] %s ...\n", f.Label, name)
		fr := flightResult{Flight: name, Label: f.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := lookup(client, f.Airline, f.Number, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %s  %d unknown\n", rr.TotalMs, rr.CacheStatus, rr.UnknownFields)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			fr.Runs = append(fr.Runs, rr)
		}

		fr.Averages = computeAverages(fr.Runs)
		report.Results = append(report.Results, fr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func lookup(client *http.Client, airline, number string, run int) runResult {
	rr := runResult{Run: run}

	q := url.Values{}
	q.Set("airline_code", airline)
	q.Set("flight_number", number)
	q.Set("departure_date", *date)

	req, err := http.NewRequest(http.MethodGet, *apiURL+"/api/v1/track-flight?"+q.Encode(), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	err = json.NewDecoder(resp.Body).Decode(&body)
	rr.TotalMs = time.Since(start).Milliseconds()
	rr.StatusCode = resp.StatusCode
	rr.CacheStatus = resp.Header.Get("X-Cache-Status")
	if err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	if resp.StatusCode != http.StatusOK {
		var e errorDetail
		_ = json.Unmarshal(body["error"], &e)
		rr.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, e.Message)
		return rr
	}

	rr.Success = true
	for _, field := range displayFields {
		var v string
		if json.Unmarshal(body[field], &v) != nil || v == "Unknown" {
			rr.UnknownFields++
		}
	}
	return rr
}

func computeAverages(runs []runResult) *flightAverages {
	var avg flightAverages
	var misses, hits int

	for _, r := range runs {
		if !r.Success {
			continue
		}
		switch r.CacheStatus {
		case "hit":
			hits++
			avg.HitMs += float64(r.TotalMs)
		default:
			misses++
			avg.MissMs += float64(r.TotalMs)
		}
	}

	if misses+hits == 0 {
		return nil
	}
	if misses > 0 {
		avg.MissMs /= float64(misses)
	}
	if hits > 0 {
		avg.HitMs /= float64(hits)
	}
	return &avg
}

func printTable(results []flightResult) {
	fmt.Println(strings.Repeat("─", 70))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Flight\tLabel\tAvg Miss\tAvg Hit\tUnknown Fields\n")
	fmt.Fprintf(w, "──────\t─────\t────────\t───────\t──────────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\t%s\tFAILED\t-\t-\n", r.Flight, r.Label)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			r.Flight,
			r.Label,
			formatMs(r.Averages.MissMs),
			formatMs(r.Averages.HitMs),
			maxUnknown(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 70))
}

func formatMs(ms float64) string {
	if ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", int64(ms))
}

func maxUnknown(runs []runResult) int {
	n := 0
	for _, r := range runs {
		if r.Success && r.UnknownFields > n {
			n = r.UnknownFields
		}
	}
	return n
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
