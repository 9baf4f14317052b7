package engine

import (
	"context"
	"time"
)

// Engine renders a page and returns its DOM snapshot.
type Engine interface {
	// Name returns the engine identifier ("browser" or "http").
	Name() string

	// Fetch loads the page described by req in a fresh session and returns
	// the rendered HTML. The session is released before Fetch returns.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to render a page.
type FetchRequest struct {
	URL string

	// Headers are extra request headers (e.g. Accept-Language).
	Headers map[string]string

	// RenderWait bounds the wait for dynamic content after navigation.
	RenderWait time.Duration

	// ConsentText is the label of a cookie-consent button to click if it
	// appears within ConsentWait. Empty skips the step.
	ConsentText string
	ConsentWait time.Duration

	// WaitSelector is a CSS selector to wait for (at most WaitTimeout)
	// before taking the snapshot. A timeout is not an error.
	WaitSelector string
	WaitTimeout  time.Duration

	// ScreenshotPath, when set, receives a PNG of the rendered page.
	ScreenshotPath string
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
