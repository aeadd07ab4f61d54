package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wltan/buskersync/internal/clock"
	"github.com/wltan/buskersync/internal/event"
	"github.com/wltan/buskersync/internal/logger"
)

// Key layout. Shared with the original deployment's data, so these are
// wire format.
const (
	eventKeyPrefix   = "event:"
	timelineKey      = "events_timeline"
	lockKeyPrefix    = "scraper:lock:"
	lastRunKey       = "scraper:last_run"
	errorLogKey      = "errors:log"
	metricsKeyPrefix = "metrics:daily:"

	// errorLogCap bounds the errors:log list.
	errorLogCap = 100
)

// Config holds Redis connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Timeout applies to individual Redis operations.
	Timeout time.Duration

	// PoolSize is the maximum number of connections.
	PoolSize int
}

// Store wraps a Redis client with the event-store schema.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	loc    *time.Location
}

// New connects to Redis and verifies the connection. ttl is the retention
// period applied to events and daily metrics; loc is the zone civil dates
// are interpreted in.
func New(cfg Config, ttl time.Duration, loc *time.Location) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{client: client, ttl: ttl, loc: loc}, nil
}

// NewWithClient wires the store onto an existing client. Used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration, loc *time.Location) *Store {
	return &Store{client: client, ttl: ttl, loc: loc}
}

// Ping checks the backend connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Exists reports whether a record with this fingerprint is stored. Degrades
// to false on backend failure; callers fall through to the calendar-side
// existence heuristic in that case.
func (s *Store) Exists(ctx context.Context, fingerprint string) bool {
	n, err := s.client.Exists(ctx, eventKeyPrefix+fingerprint).Result()
	if err != nil {
		logger.Error("store: exists check failed", logger.Fields{"fingerprint": fingerprint}, err)
		return false
	}
	return n == 1
}

// Get retrieves a stored record by fingerprint, nil when absent or on
// backend failure.
func (s *Store) Get(ctx context.Context, fingerprint string) *event.Record {
	data, err := s.client.Get(ctx, eventKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Error("store: get failed", logger.Fields{"fingerprint": fingerprint}, err)
		}
		return nil
	}

	var rec event.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Error("store: corrupt record", logger.Fields{"fingerprint": fingerprint}, err)
		return nil
	}
	return &rec
}

// Put stores a record under its fingerprint with the configured TTL,
// overwriting any prior value, and indexes its date into the timeline
// sorted set. Last write wins.
func (s *Store) Put(ctx context.Context, rec *event.Record) bool {
	fingerprint := rec.Fingerprint()

	data, err := json.Marshal(rec)
	if err != nil {
		logger.Error("store: marshal failed", logger.Fields{"fingerprint": fingerprint}, err)
		return false
	}

	score, err := clock.DateScore(rec.Date, s.loc)
	if err != nil {
		logger.Error("store: unindexable date", logger.Fields{"date": rec.Date}, err)
		return false
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, eventKeyPrefix+fingerprint, data, s.ttl)
	pipe.ZAdd(ctx, timelineKey, redis.Z{Score: float64(score), Member: fingerprint})
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("store: put failed", logger.Fields{"fingerprint": fingerprint}, err)
		return false
	}
	return true
}

// Range returns all non-expired records whose date falls in the inclusive
// [fromDate, toDate] range, in timeline order. Fingerprints still in the
// index whose records have expired are silently skipped; index cleanup is
// lazy (see CleanupTimeline).
func (s *Store) Range(ctx context.Context, fromDate, toDate string) []*event.Record {
	fromScore, err := clock.DateScore(fromDate, s.loc)
	if err != nil {
		logger.Error("store: bad range start", logger.Fields{"date": fromDate}, err)
		return nil
	}
	toScore, err := clock.DateScore(toDate, s.loc)
	if err != nil {
		logger.Error("store: bad range end", logger.Fields{"date": toDate}, err)
		return nil
	}

	fingerprints, err := s.client.ZRangeByScore(ctx, timelineKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(fromScore, 10),
		Max: strconv.FormatInt(toScore, 10),
	}).Result()
	if err != nil {
		logger.Error("store: timeline query failed", logger.Fields{
			"from": fromDate,
			"to":   toDate,
		}, err)
		return nil
	}

	records := make([]*event.Record, 0, len(fingerprints))
	for _, fp := range fingerprints {
		if rec := s.Get(ctx, fp); rec != nil {
			records = append(records, rec)
		}
	}
	return records
}

// CleanupTimeline removes timeline entries whose events are past the
// retention period. TTL already expired the records themselves; this is
// the lazy index cleanup.
func (s *Store) CleanupTimeline(ctx context.Context) int64 {
	cutoff := clock.Now(s.loc).Add(-s.ttl).Unix()
	removed, err := s.client.ZRemRangeByScore(ctx, timelineKey, "0", strconv.FormatInt(cutoff, 10)).Result()
	if err != nil {
		logger.Error("store: timeline cleanup failed", nil, err)
		return 0
	}
	return removed
}

// TimelineSize returns the number of indexed events, 0 on failure.
func (s *Store) TimelineSize(ctx context.Context) int64 {
	n, err := s.client.ZCard(ctx, timelineKey).Result()
	if err != nil {
		logger.Error("store: timeline size failed", nil, err)
		return 0
	}
	return n
}
