// Package caldav talks to a CalDAV collection over plain HTTP. Entries are
// single-VEVENT .ics resources addressed as {base}/{calendar}/{uid}.ics,
// and windowed reads go through a calendar-query REPORT. Recurring events
// returned by the server are expanded into concrete occurrences so callers
// only ever see plain entries.
package caldav
