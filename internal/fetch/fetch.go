// Package fetch retrieves the schedule page through headless Chromium so
// that client-side rendered content is present in the markup the extractor
// sees. A plain HTTP GET is not enough for this source: the schedule items
// are injected after page load.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/wltan/buskersync/internal/logger"
)

const (
	// ScheduleMarker is the selector whose appearance signals that the
	// schedule page has finished client-side rendering.
	ScheduleMarker = `[data-testid="schedule-item"]`

	// DefaultTimeout bounds a whole fetch when the caller passes zero.
	DefaultTimeout = 30 * time.Second

	// markerWait bounds the best-effort wait for ScheduleMarker. Marker
	// absence is not fatal: the page layout may have changed, and the
	// extraction cascade copes with that.
	markerWait = 10 * time.Second
)

// ErrTimeout reports that the page did not load within the fetch timeout.
var ErrTimeout = errors.New("fetch: page load timed out")

// Fetcher renders pages in a headless browser.
type Fetcher struct {
	timeout time.Duration
}

// New creates a Fetcher with the given per-fetch timeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{timeout: timeout}
}

// Fetch navigates to url, waits for client-side content to settle, and
// returns the fully rendered markup.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", classify(err)
	}

	markerCtx, cancelMarker := context.WithTimeout(browserCtx, markerWait)
	if err := chromedp.Run(markerCtx, chromedp.WaitVisible(ScheduleMarker, chromedp.ByQuery)); err != nil {
		logger.Debug("schedule marker did not appear, reading page anyway", logger.Fields{
			"url": url,
		})
	}
	cancelMarker()

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", classify(err)
	}

	return html, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("fetch: %w", err)
}
