package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wltan/buskersync/internal/event"
)

// scheduleItemSelector is the container convention the source page uses for
// one booking per block. internal/fetch waits for the same marker before
// reading the markup.
const scheduleItemSelector = `[data-testid="schedule-item"]`

// containerStrategy reads the known structured layout: a repeating
// schedule-item block per booking, with an address-labeled sub-node for the
// venue and the performer's name available page-wide from profile image alt
// text.
type containerStrategy struct{}

func (containerStrategy) Name() string { return "containers" }

func (containerStrategy) Extract(doc *goquery.Document, page *Page) []*event.Record {
	items := doc.Find(scheduleItemSelector)
	if items.Length() == 0 {
		return nil
	}

	// The page is one performer's profile, so a single name label applies
	// to every record it yields.
	performer := performerFromImageAlt(doc)

	var records []*event.Record
	items.Each(func(_ int, item *goquery.Selection) {
		text := item.Text()

		c := candidate{
			dateText: findDateText(text, page.ScrapedAt.Year()),
			timeText: findTimeText(text),
			location: locationFromItem(item),
			name:     performer,
		}

		if rec := c.build(page); rec != nil {
			records = append(records, rec)
		}
	})

	return dedupe(records)
}

// locationFromItem looks for an address-labeled sub-node inside one
// schedule item.
func locationFromItem(item *goquery.Selection) string {
	var location string

	item.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if id, ok := sel.Attr("data-testid"); ok && strings.Contains(strings.ToLower(id), "address") {
			location = sel.Text()
			return false
		}
		if class, ok := sel.Attr("class"); ok && strings.Contains(strings.ToLower(class), "address") {
			location = sel.Text()
			return false
		}
		return true
	})

	return strings.TrimSpace(location)
}

// performerFromImageAlt reads the performer's name from the profile image's
// descriptive text, skipping alt text that is obviously decorative.
func performerFromImageAlt(doc *goquery.Document) string {
	var name string

	doc.Find("img[alt]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt := strings.TrimSpace(img.AttrOr("alt", ""))
		if len(alt) < 3 {
			return true
		}
		lower := strings.ToLower(alt)
		if strings.Contains(lower, "logo") || strings.Contains(lower, "icon") || strings.Contains(lower, "banner") {
			return true
		}
		name = alt
		return false
	})

	return name
}
