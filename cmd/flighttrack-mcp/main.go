package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// flightResponse mirrors the flighttrack record.
type flightResponse struct {
	AirlineCode      string `json:"airline_code"`
	FlightNumber     string `json:"flight_number"`
	DepartureDate    string `json:"departure_date"`
	Status           string `json:"status"`
	FlightLabel      string `json:"flight_label"`
	DepartureAirport string `json:"departure_airport"`
	ArrivalAirport   string `json:"arrival_airport"`
	DepartureTime    string `json:"departure_time"`
	ArrivalTime      string `json:"arrival_time"`
}

// errorResponse mirrors the flighttrack error envelope.
type errorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("FLIGHTTRACK_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("FLIGHTTRACK_API_KEY")

	s := server.NewMCPServer(
		"flighttrack",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	trackFlightTool := mcp.NewTool("track_flight",
		mcp.WithDescription("Look up the status, airports and scheduled times of a flight on a given departure date. Results are cached; the first lookup of a flight renders the FlightStats tracker page and can take up to a minute."),
		mcp.WithString("airline_code",
			mcp.Required(),
			mcp.Description("Two-character IATA airline code, e.g. 'AA'"),
		),
		mcp.WithString("flight_number",
			mcp.Required(),
			mcp.Description("Flight number without the airline code, e.g. '100'"),
		),
		mcp.WithString("departure_date",
			mcp.Required(),
			mcp.Description("Departure date in YYYY-MM-DD format"),
		),
	)
	s.AddTool(trackFlightTool, handleTrackFlight(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleTrackFlight(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := url.Values{}
		for _, name := range []string{"airline_code", "flight_number", "departure_date"} {
			v, err := request.RequireString(name)
			if err != nil {
				return mcp.NewToolResultError(name + " is required"), nil
			}
			q.Set(name, strings.TrimSpace(v))
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
			strings.TrimRight(apiURL, "/")+"/api/v1/track-flight?"+q.Encode(), nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			errMsg := fmt.Sprintf("lookup failed with HTTP %d", resp.StatusCode)
			var errResp errorResponse
			if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", errResp.Error.Code, errResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var f flightResponse
		if err := json.Unmarshal(respBody, &f); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		return mcp.NewToolResultText(formatFlight(f, resp.Header.Get("X-Cache-Status"))), nil
	}
}

func formatFlight(f flightResponse, cacheStatus string) string {
	var sb strings.Builder
	label := f.FlightLabel
	if label == "" || label == "Unknown" {
		label = f.AirlineCode + " " + f.FlightNumber
	}
	sb.WriteString(fmt.Sprintf("Flight %s on %s\n\n", label, f.DepartureDate))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", f.Status))
	sb.WriteString(fmt.Sprintf("Departure: %s at %s\n", f.DepartureAirport, f.DepartureTime))
	sb.WriteString(fmt.Sprintf("Arrival:   %s at %s\n", f.ArrivalAirport, f.ArrivalTime))
	if cacheStatus != "" {
		sb.WriteString(fmt.Sprintf("\n---\nCache: %s", cacheStatus))
	}
	return sb.String()
}
