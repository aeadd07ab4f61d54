package caldav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wltan/buskersync/internal/calendar"
)

const (
	contentTypeCalendar = "text/calendar; charset=utf-8"

	// Servers report query results with this timestamp form.
	reportTimeLayout = "20060102T150405Z"
)

// Config carries the collection coordinates and the credentials file, a
// single line of the form "username:password".
type Config struct {
	BaseURL         string
	CalendarID      string
	CredentialsPath string
	Timeout         time.Duration
}

// Client is a calendar backend over a CalDAV collection.
type Client struct {
	http       *http.Client
	baseURL    string
	calendarID string
	username   string
	password   string
}

var _ calendar.Backend = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	username, password, err := readCredentials(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		calendarID: cfg.CalendarID,
		username:   username,
		password:   password,
	}, nil
}

func readCredentials(path string) (string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("caldav: read credentials: %w", err)
	}
	line := strings.TrimSpace(string(raw))
	username, password, ok := strings.Cut(line, ":")
	if !ok || username == "" {
		return "", "", fmt.Errorf("caldav: credentials file %s is not username:password", path)
	}
	return username, password, nil
}

func (c *Client) entryURL(uid string) string {
	return fmt.Sprintf("%s/%s/%s.ics", c.baseURL, c.calendarID, uid)
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/%s/", c.baseURL, c.calendarID)
}

// Insert writes a new .ics resource and returns its UID. If-None-Match
// makes a UID collision fail loudly instead of overwriting.
func (c *Client) Insert(ctx context.Context, entry calendar.Entry) (string, error) {
	uid := uuid.NewString()
	body := encodeEntry(uid, entry)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.entryURL(uid), strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("caldav: build insert: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeCalendar)
	req.Header.Set("If-None-Match", "*")

	if err := c.do(req); err != nil {
		return "", err
	}
	return uid, nil
}

// Update overwrites the resource addressed by the entry's ID.
func (c *Client) Update(ctx context.Context, entry calendar.Entry) error {
	if entry.ID == "" {
		return &calendar.PermanentError{Status: http.StatusBadRequest, Reason: "update without entry id"}
	}
	body := encodeEntry(entry.ID, entry)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.entryURL(entry.ID), strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("caldav: build update: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeCalendar)
	return c.do(req)
}

func (c *Client) Get(ctx context.Context, id string) (calendar.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entryURL(id), nil)
	if err != nil {
		return calendar.Entry{}, fmt.Errorf("caldav: build get: %w", err)
	}
	body, err := c.doRead(req)
	if err != nil {
		return calendar.Entry{}, err
	}

	// The resource holds a single VEVENT; decode with an open window.
	entries, err := decodeEntries(body, time.Time{}, time.Now().AddDate(100, 0, 0))
	if err != nil {
		return calendar.Entry{}, err
	}
	if len(entries) == 0 {
		return calendar.Entry{}, calendar.ErrNotFound
	}
	entry := entries[0]
	entry.ID = id
	return entry, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.entryURL(id), nil)
	if err != nil {
		return fmt.Errorf("caldav: build delete: %w", err)
	}
	return c.do(req)
}

// List issues a calendar-query REPORT over [from, to] and returns the
// expanded entries sorted by start time.
func (c *Client) List(ctx context.Context, from, to time.Time) ([]calendar.Entry, error) {
	query := calendarQuery(from, to)
	req, err := http.NewRequestWithContext(ctx, "REPORT", c.collectionURL(), bytes.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("caldav: build report: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Depth", "1")

	body, err := c.doRead(req)
	if err != nil {
		return nil, err
	}

	payloads, err := parseMultistatus(body)
	if err != nil {
		return nil, err
	}

	var out []calendar.Entry
	for _, payload := range payloads {
		entries, derr := decodeEntries(payload, from, to)
		if derr != nil {
			// One broken resource must not hide the rest of the window.
			continue
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (c *Client) do(req *http.Request) error {
	_, err := c.doRead(req)
	return err
}

func (c *Client) doRead(req *http.Request) ([]byte, error) {
	req.SetBasicAuth(c.username, c.password)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caldav: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return nil, fmt.Errorf("caldav: read response: %w", rerr)
		}
		return body, nil
	}
	return nil, classifyStatus(resp)
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &calendar.RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusNotFound:
		return calendar.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("caldav: server error %d on %s", resp.StatusCode, resp.Request.URL.Path)
	default:
		return &calendar.PermanentError{
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("%s %s rejected", resp.Request.Method, resp.Request.URL.Path),
		}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
