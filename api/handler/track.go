package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/flighttrack/models"
)

// Tracker resolves a lookup key to a flight record.
type Tracker interface {
	Track(ctx context.Context, key models.LookupKey) (*models.FlightRecord, bool, error)
}

// CacheStatusHeader reports whether the record came from the lookup cache.
const CacheStatusHeader = "X-Cache-Status"

// TrackFlight returns a handler for GET /api/v1/track-flight.
//
// Orchestration flow:
//  1. Bind & validate query parameters.
//  2. Validate the departure date as a YYYY-MM-DD calendar date.
//  3. Tracker.Track → cached or freshly scraped record.
//  4. Respond 200 with the record, or map the error to a status code.
func TrackFlight(tr Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.TrackRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, models.NewTrackError(models.ErrCodeInvalidInput, err.Error(), nil))
			return
		}
		key := req.Key()

		// ── 2. Date format ──────────────────────────────────────────
		if _, err := key.Date(); err != nil {
			respondError(c, models.NewTrackError(models.ErrCodeInvalidInput, models.InvalidDateMessage, nil))
			return
		}

		// ── 3. Cache or scrape ──────────────────────────────────────
		rec, hit, err := tr.Track(c.Request.Context(), key)
		if err != nil {
			slog.Error("flight lookup failed", "key", key.String(), "error", err)
			respondError(c, err)
			return
		}

		// ── 4. Respond ──────────────────────────────────────────────
		status := "miss"
		if hit {
			status = "hit"
		}
		c.Header(CacheStatusHeader, status)
		c.JSON(http.StatusOK, rec)
	}
}

// respondError maps a TrackError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var trackErr *models.TrackError
	if !errors.As(err, &trackErr) {
		trackErr = models.NewTrackError(models.ErrCodeInternal, "internal error", err)
	}

	detail := trackErr.ToDetail()
	if trackErr.IsScrapeFailure() {
		detail.Message = "Scraping failed: " + detail.Message
	}

	c.JSON(mapErrorToStatus(trackErr), models.ErrorResponse{
		Success: false,
		Error:   detail,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.TrackError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
