// Package event defines the canonical busking event record, its stable
// fingerprint identity, and the normalization and validation rules applied
// to everything the scraper extracts.
//
// A record's identity is the SHA-256 fingerprint of (date, start_time,
// location, busker_id). Two records with the same fingerprint are the same
// real-world booking no matter how the performer name or scrape timestamp
// differ. The fingerprint doubles as the store's cache key, so its field
// order and delimiter must never change.
package event
