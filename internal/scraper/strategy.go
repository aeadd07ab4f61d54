package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wltan/buskersync/internal/event"
)

// Page carries the per-page context shared by every candidate a strategy
// yields: the profile this page belongs to and the extraction instant.
type Page struct {
	SourceID  string
	ScrapedAt time.Time
}

// Strategy is one way of locating event records in a document. Strategies
// are independent: the cascade in Scraper.Extract tries them in order and
// stops at the first non-empty result.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, page *Page) []*event.Record
}

// Text patterns shared across strategies.
var (
	// isoDatePattern through longMonthDatePattern locate raw date tokens;
	// event.NormalizeDate decides what they mean.
	isoDatePattern     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	slashedDatePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
	dashedDatePattern  = regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`)
	longMonthPattern   = regexp.MustCompile(`(?i)\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}`)
	monthFirstPattern  = regexp.MustCompile(`(?i)(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`)

	// weekdayDayMonthPattern matches the source's own date convention,
	// "Saturday, 14 March". The year is absent in source text; strategies
	// fill in the current calendar year, a known source limitation.
	weekdayDayMonthPattern = regexp.MustCompile(`(?i)\b(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s*,?\s+(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\b`)

	timePattern      = regexp.MustCompile(`\d{1,2}[:.]\d{2}\s*(?:[AaPp][Mm])?`)
	timeRangePattern = regexp.MustCompile(`\d{1,2}[:.]\d{2}\s*(?:[AaPp][Mm])?\s*(?:-|–|to)\s*\d{1,2}[:.]\d{2}\s*(?:[AaPp][Mm])?`)

	locationLabelPattern = regexp.MustCompile(`(?i)^(?:location|venue)[:\s]*`)
	performerWordPattern = regexp.MustCompile(`(?i)busker|performer|artist`)
)

// candidate is the raw field text a strategy located, before normalization.
type candidate struct {
	dateText string
	timeText string
	location string
	name     string
}

// build normalizes a candidate into a Record. Date and time are required to
// even form a candidate; location and name degrade to sentinels.
// Normalization failures stay in the record as-is so that event.Validate,
// not the strategy, decides the record's fate.
func (c candidate) build(page *Page) *event.Record {
	if strings.TrimSpace(c.dateText) == "" || strings.TrimSpace(c.timeText) == "" {
		return nil
	}

	date, _ := event.NormalizeDate(strings.TrimSpace(c.dateText))

	start, end, ok := event.ParseTimeRange(c.timeText)
	if !ok {
		start = strings.TrimSpace(c.timeText)
		end = start
	}

	location := cleanLocation(c.location)
	if location == "" {
		location = event.UnknownLocation
	}

	name := cleanPerformerName(c.name)
	if name == "" {
		name = event.UnknownBusker
	}

	return &event.Record{
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Location:   location,
		BuskerName: name,
		BuskerID:   page.SourceID,
		ScrapedAt:  page.ScrapedAt,
	}
}

// cleanLocation strips "Location:"/"Venue:" labels and surrounding space.
func cleanLocation(s string) string {
	s = strings.TrimSpace(s)
	s = locationLabelPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// cleanPerformerName removes role words ("busker", "performer", "artist")
// that the page sometimes prepends to the actual name.
func cleanPerformerName(s string) string {
	s = performerWordPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// findDateText locates the first recognizable date token in text, trying
// the source's weekday form first and generic tokens after.
func findDateText(text string, year int) string {
	if m := weekdayDayMonthPattern.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s %s %d", m[1], m[2], year)
	}
	for _, p := range []*regexp.Regexp{isoDatePattern, slashedDatePattern, dashedDatePattern, longMonthPattern, monthFirstPattern} {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// findTimeText prefers an explicit range over a lone time.
func findTimeText(text string) string {
	if m := timeRangePattern.FindString(text); m != "" {
		return m
	}
	return timePattern.FindString(text)
}

// dedupe drops records whose fingerprint was already seen, preserving
// input order.
func dedupe(records []*event.Record) []*event.Record {
	seen := make(map[string]bool, len(records))
	unique := make([]*event.Record, 0, len(records))
	for _, r := range records {
		fp := r.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		unique = append(unique, r)
	}
	return unique
}
