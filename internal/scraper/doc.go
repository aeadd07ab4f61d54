// Package scraper turns the rendered schedule page into candidate event
// records. The page layout is not guaranteed stable, so extraction runs as
// a cascade of strategies, each tried only if the one before it produced
// nothing:
//
//  1. containers: the known data-testid="schedule-item" block convention
//  2. selectors: nodes whose class/id loosely suggest schedule content
//  3. freetext: regex sweeps over the page's plain text
//
// Strategies favor completeness over correctness: missing fields degrade to
// sentinel values instead of discarding the record. event.Validate is the
// hard gate that drops what is genuinely malformed.
package scraper
