// Package config loads and validates the environment-based configuration
// for buskersync. All components receive a *Config at construction time;
// there is no ambient global configuration state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values for optional settings.
const (
	DefaultTimezone        = "Asia/Singapore"
	DefaultEventTTLDays    = 90
	DefaultFetchTimeout    = 30 * time.Second
	DefaultScrapeHour      = 23
	DefaultSyncHour        = 3
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 5 * time.Second
	DefaultRateCooldown    = 60 * time.Second
	DefaultListenAddr      = ":8080"
	DefaultScrapeLockTTL   = 5 * time.Minute
	DefaultSyncLockTTL     = 10 * time.Minute
	DefaultSyncWindowDays  = 90
)

// Config is the application configuration, read once from the environment
// at startup.
type Config struct {
	// BuskerURL is the public schedule page to scrape.
	BuskerURL string

	// CalendarURL is the base URL of the CalDAV server.
	CalendarURL string
	// CalendarID names the destination calendar collection.
	CalendarID string
	// CredentialsPath points at a file holding "username:password" for the
	// calendar server.
	CredentialsPath string

	// Redis connection parameters.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Timezone is the IANA zone all civil dates and times are interpreted in.
	Timezone string

	// EventTTLDays controls how long stored events are retained.
	EventTTLDays int

	// FetchTimeout bounds a single rendered-page fetch.
	FetchTimeout time.Duration

	// ScrapeHour and SyncHour are the local wall-clock hours the two jobs
	// trigger at.
	ScrapeHour int
	SyncHour   int

	// MaxRetries and RetryDelay parameterize the shared backoff policy.
	MaxRetries int
	RetryDelay time.Duration

	// RateLimitCooldown is the fixed pause after a rate-limited calendar
	// call, applied before the next retry attempt.
	RateLimitCooldown time.Duration

	// ListenAddr is the address of the status HTTP surface.
	ListenAddr string

	// LogLevel is the minimum log level (DEBUG/INFO/WARN/ERROR).
	LogLevel string

	// SyncWindowDays is the forward window the sync cycle reconciles.
	SyncWindowDays int
}

// Load reads configuration from the environment, applying defaults for
// optional settings. Call Validate before using the result.
func Load() *Config {
	return &Config{
		BuskerURL:         os.Getenv("BUSKER_URL"),
		CalendarURL:       os.Getenv("CALENDAR_URL"),
		CalendarID:        os.Getenv("CALENDAR_ID"),
		CredentialsPath:   envStr("CALENDAR_CREDENTIALS_PATH", "./credentials/caldav"),
		RedisAddr:         envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		Timezone:          envStr("TIMEZONE", DefaultTimezone),
		EventTTLDays:      envInt("EVENT_TTL_DAYS", DefaultEventTTLDays),
		FetchTimeout:      envSeconds("FETCH_TIMEOUT_SECONDS", DefaultFetchTimeout),
		ScrapeHour:        envInt("SCRAPE_HOUR", DefaultScrapeHour),
		SyncHour:          envInt("SYNC_HOUR", DefaultSyncHour),
		MaxRetries:        envInt("MAX_RETRIES", DefaultMaxRetries),
		RetryDelay:        envSeconds("RETRY_DELAY_SECONDS", DefaultRetryDelay),
		RateLimitCooldown: envSeconds("RATE_LIMIT_COOLDOWN_SECONDS", DefaultRateCooldown),
		ListenAddr:        envStr("LISTEN_ADDR", DefaultListenAddr),
		LogLevel:          envStr("LOG_LEVEL", "INFO"),
		SyncWindowDays:    envInt("SYNC_WINDOW_DAYS", DefaultSyncWindowDays),
	}
}

// Validate checks that every required setting is present and well-formed.
// A non-nil error means the process must not start any cycle.
func (c *Config) Validate() error {
	var problems []string

	if c.BuskerURL == "" {
		problems = append(problems, "BUSKER_URL is required")
	}
	if c.CalendarURL == "" {
		problems = append(problems, "CALENDAR_URL is required")
	}
	if c.CalendarID == "" {
		problems = append(problems, "CALENDAR_ID is required")
	}
	if _, err := os.Stat(c.CredentialsPath); err != nil {
		problems = append(problems, fmt.Sprintf("calendar credentials file not found at %s", c.CredentialsPath))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid TIMEZONE %q", c.Timezone))
	}
	if c.EventTTLDays <= 0 {
		problems = append(problems, "EVENT_TTL_DAYS must be positive")
	}
	if c.ScrapeHour < 0 || c.ScrapeHour > 23 {
		problems = append(problems, "SCRAPE_HOUR must be in [0,23]")
	}
	if c.SyncHour < 0 || c.SyncHour > 23 {
		problems = append(problems, "SYNC_HOUR must be in [0,23]")
	}
	if c.MaxRetries < 1 {
		problems = append(problems, "MAX_RETRIES must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the configured timezone. Validate must have succeeded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventTTL returns the retention period for stored events.
func (c *Config) EventTTL() time.Duration {
	return time.Duration(c.EventTTLDays) * 24 * time.Hour
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
