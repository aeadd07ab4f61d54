package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wltan/buskersync/internal/retry"
)

const profileURL = "https://example.com/buskers/3f2b8c1a-9d4e-4f6a-8b2c-1d3e5f7a9b0c/schedule"

type fakeFetcher struct {
	html  string
	errs  []error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.html, nil
}

func testScraper(html string) *Scraper {
	fetcher := &fakeFetcher{html: html}
	return New(fetcher, profileURL, retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, time.UTC)
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func thisYear() int {
	return time.Now().UTC().Year()
}

const containerPage = `<html><body>
<img src="logo.png" alt="Site logo">
<img src="profile.jpg" alt="Aria Tan">
<div data-testid="schedule-item">
  <span>Saturday, 14 March</span>
  <span>7:30pm - 9:30pm</span>
  <div data-testid="venue-address">Clarke Quay Fountain Square</div>
</div>
<div data-testid="schedule-item">
  <span>Sunday, 15 March</span>
  <span>6:00pm - 8:00pm</span>
  <div class="item-address">Orchard Road</div>
</div>
</body></html>`

func TestExtractFromContainers(t *testing.T) {
	sc := testScraper(containerPage)
	records := sc.Extract(parseDoc(t, containerPage))

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Date != fmt.Sprintf("%d-03-14", thisYear()) {
		t.Errorf("date: %q", first.Date)
	}
	if first.StartTime != "19:30" || first.EndTime != "21:30" {
		t.Errorf("times: %s - %s", first.StartTime, first.EndTime)
	}
	if first.Location != "Clarke Quay Fountain Square" {
		t.Errorf("location: %q", first.Location)
	}
	if first.BuskerName != "Aria Tan" {
		t.Errorf("name should come from the profile image, got %q", first.BuskerName)
	}
	if first.BuskerID != "3f2b8c1a-9d4e-4f6a-8b2c-1d3e5f7a9b0c" {
		t.Errorf("busker id: %q", first.BuskerID)
	}

	second := records[1]
	if second.Location != "Orchard Road" {
		t.Errorf("class-labeled address not found: %q", second.Location)
	}
	if second.StartTime != "18:00" || second.EndTime != "20:00" {
		t.Errorf("times: %s - %s", second.StartTime, second.EndTime)
	}
}

func TestExtractDeduplicatesIdenticalItems(t *testing.T) {
	page := `<html><body>
<div data-testid="schedule-item">
  <span>Saturday, 14 March</span>
  <span>7:30pm - 9:30pm</span>
  <div class="address">Clarke Quay</div>
</div>
<div data-testid="schedule-item">
  <span>Saturday, 14 March</span>
  <span>7:30pm - 9:30pm</span>
  <div class="address">Clarke Quay</div>
</div>
</body></html>`

	sc := testScraper(page)
	records := sc.Extract(parseDoc(t, page))
	if len(records) != 1 {
		t.Errorf("expected duplicates collapsed to 1, got %d", len(records))
	}
}

const selectorPage = `<html><body>
<div class="schedule-wrapper">
  <div class="event-card">
    <p>The Wandering Minstrels</p>
    <p>25/12/2026</p>
    <p>19:30 - 21:30</p>
    <p>at Marina Bay Sands Promenade</p>
  </div>
</div>
</body></html>`

func TestExtractFallsBackToSelectors(t *testing.T) {
	sc := testScraper(selectorPage)
	records := sc.Extract(parseDoc(t, selectorPage))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Date != "2026-12-25" {
		t.Errorf("date: %q", rec.Date)
	}
	if rec.StartTime != "19:30" || rec.EndTime != "21:30" {
		t.Errorf("times: %s - %s", rec.StartTime, rec.EndTime)
	}
	if rec.Location != "Marina Bay Sands Promenade" {
		t.Errorf("location: %q", rec.Location)
	}
	if rec.BuskerName != "The Wandering Minstrels" {
		t.Errorf("name: %q", rec.BuskerName)
	}
}

func TestExtractFallsBackToFreeText(t *testing.T) {
	page := `<html><body>
<p>Upcoming: Saturday, 14 March 2026 7:30PM - 9:30PM Clarke Quay Fountain Square
</p>
</body></html>`

	sc := testScraper(page)
	records := sc.Extract(parseDoc(t, page))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Date != "2026-03-14" {
		t.Errorf("date: %q", rec.Date)
	}
	if rec.StartTime != "19:30" || rec.EndTime != "21:30" {
		t.Errorf("times: %s - %s", rec.StartTime, rec.EndTime)
	}
	if rec.Location != "Clarke Quay Fountain Square" {
		t.Errorf("location: %q", rec.Location)
	}
}

func TestExtractFreeTextContextSweep(t *testing.T) {
	page := `<html><body>
<p>Catch the next show on 2026-03-14 from 19:30 at Clarke Quay Fountain Square for a great evening.</p>
</body></html>`

	sc := testScraper(page)
	records := sc.Extract(parseDoc(t, page))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Date != "2026-03-14" {
		t.Errorf("date: %q", rec.Date)
	}
	if rec.StartTime != "19:30" {
		t.Errorf("start: %q", rec.StartTime)
	}
	// Single time infers a two hour set.
	if rec.EndTime != "21:30" {
		t.Errorf("end: %q", rec.EndTime)
	}
	if rec.Location != "Clarke Quay Fountain Square for a great evening" && rec.Location != "Clarke Quay Fountain Square" {
		t.Errorf("location: %q", rec.Location)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	sc := testScraper("<html><body><p>Nothing scheduled.</p></body></html>")
	if records := sc.Extract(parseDoc(t, "<html><body><p>Nothing scheduled.</p></body></html>")); len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestScrapeRetriesFetch(t *testing.T) {
	fetcher := &fakeFetcher{html: containerPage, errs: []error{errors.New("net down")}}
	sc := New(fetcher, profileURL, retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, time.UTC)

	records, err := sc.Scrape(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
	if fetcher.calls != 2 {
		t.Errorf("expected a retry, got %d calls", fetcher.calls)
	}
}

func TestScrapeGivesUpAfterRetries(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	sc := New(fetcher, profileURL, retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, time.UTC)

	if _, err := sc.Scrape(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if fetcher.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", fetcher.calls)
	}
}

func TestExtractBuskerID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{profileURL, "3f2b8c1a-9d4e-4f6a-8b2c-1d3e5f7a9b0c"},
		{"https://example.com/buskers/3F2B8C1A-9D4E-4F6A-8B2C-1D3E5F7A9B0C", "3f2b8c1a-9d4e-4f6a-8b2c-1d3e5f7a9b0c"},
		{"https://example.com/schedule", "unknown"},
	}
	for _, tt := range tests {
		if got := ExtractBuskerID(tt.url); got != tt.want {
			t.Errorf("ExtractBuskerID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
