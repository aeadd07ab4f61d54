// Package cli wires the components together and exposes them as a cobra
// command tree: a long-running daemon plus one-shot scrape, sync, and
// status commands.
package cli
