// Package store is the Redis-backed event store: content-addressed event
// records keyed by fingerprint with TTL expiry, a sorted timeline index for
// date-range queries, distributed job locks, per-day metric counters, run
// metadata and a capped error log.
//
// The store is a dedup accelerator, not a correctness authority: every
// operation degrades to a safe default (false, nil, empty) and logs when
// the backend fails, instead of propagating the error. The calendar-side
// existence heuristic is the backstop for anything the store cannot answer.
package store
