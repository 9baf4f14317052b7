package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, apiURL, apiKey string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = "track_flight"
	req.Params.Arguments = args
	res, err := handleTrackFlight(apiURL, apiKey)(context.Background(), req)
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleTrackFlight(t *testing.T) {
	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotQuery = r.URL.RawQuery
		w.Header().Set("X-Cache-Status", "miss")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"airline_code":"AA","flight_number":"100","departure_date":"2025-04-07",
			"status":"Landed","flight_label":"AA 100","departure_airport":"New York (JFK)",
			"arrival_airport":"London (LHR)","departure_time":"18:30 EDT","arrival_time":"06:45 BST"}`)
	}))
	defer srv.Close()

	res := callTool(t, srv.URL, "secret", map[string]any{
		"airline_code": "AA", "flight_number": "100", "departure_date": "2025-04-07",
	})

	require.False(t, res.IsError)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, "airline_code=AA&departure_date=2025-04-07&flight_number=100", gotQuery)
	text := resultText(t, res)
	require.Contains(t, text, "Flight AA 100 on 2025-04-07")
	require.Contains(t, text, "Status:    Landed")
	require.Contains(t, text, "Cache: miss")
}

func TestHandleTrackFlight_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"success":false,"error":{"code":"INVALID_INPUT","message":"Invalid date format. Use YYYY-MM-DD"}}`)
	}))
	defer srv.Close()

	res := callTool(t, srv.URL, "", map[string]any{
		"airline_code": "AA", "flight_number": "100", "departure_date": "07-04-2025",
	})

	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "[INVALID_INPUT] Invalid date format")
}

func TestHandleTrackFlight_MissingArgument(t *testing.T) {
	res := callTool(t, "http://127.0.0.1:1", "", map[string]any{"airline_code": "AA"})

	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "flight_number is required")
}
