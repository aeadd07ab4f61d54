package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wltan/buskersync/internal/event"
)

// contextWindow is how far around a bare date token the weak-context sweep
// looks for time and venue text.
const contextWindow = 200

// compoundPattern anchors the strong free-text sweep on the full
// "Weekday, DD Month YYYY HH:MM AM/PM - HH:MM AM/PM LOCATION" form.
var compoundPattern = regexp.MustCompile(`(?i)(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s*,?\s+(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\s+(\d{1,2}[:.]\d{2}\s*(?:AM|PM)?)\s*(?:-|–|to)\s*(\d{1,2}[:.]\d{2}\s*(?:AM|PM)?)\s+([^\n]{3,80})`)

var contextVenuePattern = regexp.MustCompile(`(?:at|@)\s+([A-Za-z][^,.\n]{10,50})`)

// freeTextStrategy is the last resort: no node-level structure matched, so
// sweep the page's plain text for event-shaped patterns.
type freeTextStrategy struct{}

func (freeTextStrategy) Name() string { return "freetext" }

func (freeTextStrategy) Extract(doc *goquery.Document, page *Page) []*event.Record {
	text := doc.Text()

	if records := compoundSweep(text, page); len(records) > 0 {
		return records
	}
	return contextSweep(text, page)
}

// compoundSweep extracts fully-specified event lines.
func compoundSweep(text string, page *Page) []*event.Record {
	var records []*event.Record

	for _, m := range compoundPattern.FindAllStringSubmatch(text, -1) {
		c := candidate{
			dateText: fmt.Sprintf("%s %s %s", m[1], m[2], m[3]),
			timeText: m[4] + " - " + m[5],
			location: strings.TrimSpace(m[6]),
		}
		if rec := c.build(page); rec != nil {
			records = append(records, rec)
		}
	}

	return dedupe(records)
}

// contextSweep locates bare date tokens and grabs the nearest time and
// venue text within the surrounding character window as weak context.
func contextSweep(text string, page *Page) []*event.Record {
	var records []*event.Record

	for _, p := range []*regexp.Regexp{isoDatePattern, slashedDatePattern, longMonthPattern, monthFirstPattern} {
		for _, idx := range p.FindAllStringIndex(text, -1) {
			dateText := text[idx[0]:idx[1]]

			lo := idx[0] - contextWindow
			if lo < 0 {
				lo = 0
			}
			hi := idx[1] + contextWindow
			if hi > len(text) {
				hi = len(text)
			}
			window := text[lo:hi]

			timeText := findTimeText(window)
			if timeText == "" {
				continue
			}

			location := ""
			if m := contextVenuePattern.FindStringSubmatch(window); m != nil {
				location = strings.TrimSpace(m[1])
			}

			c := candidate{
				dateText: dateText,
				timeText: timeText,
				location: location,
			}
			if rec := c.build(page); rec != nil {
				records = append(records, rec)
			}
		}
	}

	return dedupe(records)
}
