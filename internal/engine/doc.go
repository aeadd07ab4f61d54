// Package engine runs the two cycles that keep the calendar mirror honest.
// The scrape cycle pulls the published schedule, validates it, and pushes
// previously unseen events into the store and the calendar. The sync cycle
// diffs the store against the calendar over a forward window and repairs
// drift. Both cycles run under a distributed lock so overlapping schedules
// or hosts cannot double-write.
package engine
