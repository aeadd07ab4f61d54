package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/engine"
	"github.com/wltan/buskersync/internal/store"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// writeResult prints a cycle result in the requested format.
func writeResult(w io.Writer, result any, format string) error {
	switch OutputFormat(format) {
	case FormatJSON:
		return writeIndentedJSON(w, result)
	case FormatText:
		return writeResultText(w, result)
	default:
		return fmt.Errorf("unknown format: %s (must be 'text' or 'json')", format)
	}
}

func writeIndentedJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeResultText(w io.Writer, result any) error {
	switch r := result.(type) {
	case engine.ScrapeResult:
		fmt.Fprintf(w, "Scrape: %s\n", r.Status)
		fmt.Fprintf(w, "  found:   %d\n", r.Found)
		fmt.Fprintf(w, "  created: %d\n", r.Created)
		fmt.Fprintf(w, "  skipped: %d\n", r.Skipped)
		if r.Dropped > 0 {
			fmt.Fprintf(w, "  dropped: %d\n", r.Dropped)
		}
		writeErrorList(w, r.Errors)
	case engine.SyncResult:
		fmt.Fprintf(w, "Sync: %s\n", r.Status)
		fmt.Fprintf(w, "  store events:     %d\n", r.StoreEvents)
		fmt.Fprintf(w, "  calendar entries: %d\n", r.CalendarEntries)
		fmt.Fprintf(w, "  created:          %d\n", r.Created)
		fmt.Fprintf(w, "  updated:          %d\n", r.Updated)
		fmt.Fprintf(w, "  backfilled:       %d\n", r.Backfilled)
		fmt.Fprintf(w, "  review needed:    %d\n", r.ReviewNeeded)
		if r.TimelineTrimmed > 0 {
			fmt.Fprintf(w, "  timeline trimmed: %d\n", r.TimelineTrimmed)
		}
		writeErrorList(w, r.Errors)
	default:
		return writeIndentedJSON(w, result)
	}
	return nil
}

func writeErrorList(w io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(w, "  errors:")
	for _, e := range errs {
		fmt.Fprintf(w, "    - %s\n", e)
	}
}

// writeStatus prints the last run, today's counters, and recent errors.
func writeStatus(ctx context.Context, w io.Writer, st *store.Store, loc *time.Location, format string) error {
	today := clock.Now(loc).Format(clock.DateLayout)
	status := struct {
		LastRun      *store.RunMetadata `json:"last_run"`
		Summary      store.Summary      `json:"summary"`
		Counters     map[string]int64   `json:"counters"`
		RecentErrors []store.ErrorEntry `json:"recent_errors"`
	}{
		LastRun:      st.LastRun(ctx),
		Summary:      st.Summarize(ctx),
		Counters:     st.MetricsFor(ctx, today),
		RecentErrors: st.RecentErrors(ctx, 10),
	}

	if OutputFormat(format) == FormatJSON {
		return writeIndentedJSON(w, status)
	}

	if status.LastRun == nil {
		fmt.Fprintln(w, "No runs recorded yet.")
	} else {
		fmt.Fprintf(w, "Last run: %s (%s)\n", status.LastRun.Status, status.LastRun.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(w, "  found %d, created %d, skipped %d\n",
			status.LastRun.EventsFound, status.LastRun.EventsCreated, status.LastRun.EventsSkipped)
		if status.LastRun.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", status.LastRun.Error)
		}
	}

	fmt.Fprintf(w, "\nCounters for %s:\n", today)
	if len(status.Counters) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		names := make([]string, 0, len(status.Counters))
		for name := range status.Counters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-22s %d\n", name, status.Counters[name])
		}
	}

	fmt.Fprintf(w, "\nStored events in window: %d\n", status.Summary.TotalEvents)
	if status.Summary.ScrapeLockHeld || status.Summary.SyncLockHeld {
		fmt.Fprintf(w, "Locks held: scrape=%t sync=%t\n",
			status.Summary.ScrapeLockHeld, status.Summary.SyncLockHeld)
	}

	if len(status.RecentErrors) > 0 {
		fmt.Fprintln(w, "\nRecent errors:")
		for _, entry := range status.RecentErrors {
			fmt.Fprintf(w, "  %s  %s\n", entry.Timestamp, entry.Message)
		}
	}
	return nil
}
