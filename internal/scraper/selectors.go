package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wltan/buskersync/internal/event"
)

// classHintPattern loosely matches class/id/attribute names that suggest
// schedule content on pages that dropped the schedule-item convention.
var classHintPattern = regexp.MustCompile(`(?i)event|schedule|booking|calendar|performance`)

// selectorStrategy scans nodes whose attributes loosely suggest schedule
// content and attempts field-level extraction on each independently. Runs
// only when the structured container convention matched nothing.
type selectorStrategy struct{}

func (selectorStrategy) Name() string { return "selectors" }

func (selectorStrategy) Extract(doc *goquery.Document, page *Page) []*event.Record {
	var records []*event.Record

	doc.Find("div, section, article, li").Each(func(_ int, sel *goquery.Selection) {
		hints := sel.AttrOr("class", "") + " " + sel.AttrOr("id", "") + " " + sel.AttrOr("data-testid", "")
		if !classHintPattern.MatchString(hints) {
			return
		}

		// Skip wrappers that contain further matching nodes; the innermost
		// match is the one booking block.
		if hasMatchingChild(sel) {
			return
		}

		text := sel.Text()

		c := candidate{
			dateText: findDateText(text, page.ScrapedAt.Year()),
			timeText: findTimeText(text),
			location: looseLocation(text),
			name:     firstPlainLine(text),
		}

		if rec := c.build(page); rec != nil {
			records = append(records, rec)
		}
	})

	return dedupe(records)
}

func hasMatchingChild(sel *goquery.Selection) bool {
	found := false
	sel.Find("div, section, article, li").EachWithBreak(func(_ int, child *goquery.Selection) bool {
		hints := child.AttrOr("class", "") + " " + child.AttrOr("id", "") + " " + child.AttrOr("data-testid", "")
		if classHintPattern.MatchString(hints) {
			found = true
			return false
		}
		return true
	})
	return found
}

var venueHintPattern = regexp.MustCompile(`(?i)(?:at|@|venue[:\s]|location[:\s])\s*([A-Za-z][^,.\n]{3,60})`)

// looseLocation pulls venue-looking text out of a block without structural
// cues.
func looseLocation(text string) string {
	if m := venueHintPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstPlainLine applies the positional heuristic for the performer name:
// the first line of text that is neither a date nor a time.
func firstPlainLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 3 {
			continue
		}
		if findDateText(line, 0) != "" || findTimeText(line) != "" {
			continue
		}
		return line
	}
	return ""
}
