package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/event"
	"github.com/wltan/buskersync/internal/logger"
	"github.com/wltan/buskersync/internal/retry"
)

// PageFetcher supplies rendered page markup. The production implementation
// is internal/fetch; tests substitute a canned-markup fake.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scraper fetches the busker's schedule page and extracts event records.
type Scraper struct {
	fetcher    PageFetcher
	url        string
	buskerID   string
	retryCfg   retry.Config
	loc        *time.Location
	strategies []Strategy
}

// New creates a Scraper for the given profile URL.
func New(fetcher PageFetcher, url string, retryCfg retry.Config, loc *time.Location) *Scraper {
	return &Scraper{
		fetcher:  fetcher,
		url:      url,
		buskerID: ExtractBuskerID(url),
		retryCfg: retryCfg,
		loc:      loc,
		strategies: []Strategy{
			containerStrategy{},
			selectorStrategy{},
			freeTextStrategy{},
		},
	}
}

// Scrape fetches the schedule page, retrying transport failures with
// backoff, and runs the extraction cascade over the markup. The returned
// records are candidates: callers must pass them through event.Validate
// before trusting any field.
func (s *Scraper) Scrape(ctx context.Context) ([]*event.Record, error) {
	var html string
	err := retry.Do(ctx, "page_fetch", s.retryCfg, func() error {
		var ferr error
		html, ferr = s.fetcher.Fetch(ctx, s.url)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching schedule page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing page markup: %w", err)
	}

	return s.Extract(doc), nil
}

// Extract runs the strategy cascade over a parsed document and returns the
// first non-empty result set.
func (s *Scraper) Extract(doc *goquery.Document) []*event.Record {
	page := &Page{
		SourceID:  s.buskerID,
		ScrapedAt: clock.Now(s.loc),
	}

	for _, strat := range s.strategies {
		records := strat.Extract(doc, page)
		if len(records) > 0 {
			logger.Info("extraction strategy matched", logger.Fields{
				"strategy": strat.Name(),
				"events":   len(records),
			})
			return records
		}
		logger.Debug("extraction strategy found nothing", logger.Fields{
			"strategy": strat.Name(),
		})
	}

	return nil
}

var buskerIDPattern = regexp.MustCompile(`(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)

// ExtractBuskerID pulls the profile UUID out of the schedule URL. The page
// represents exactly one performer, so this is the source identifier for
// every record it yields.
func ExtractBuskerID(url string) string {
	if m := buskerIDPattern.FindString(url); m != "" {
		return strings.ToLower(m)
	}
	return "unknown"
}
