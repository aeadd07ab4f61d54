package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wltan/buskersync/internal/logger"
)

// releaseScript deletes a lock only if it still holds the caller's token.
// The compare and the delete must be one atomic step, otherwise a slow
// caller could release a lock that expired and was reacquired by someone
// else in the meantime.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// AcquireLock takes the named job lock for at most ttl, returning an opaque
// token on success and "" when the lock is already held. The lock is a
// lease: it expires on its own, so holders running past ttl can lose it,
// and cycle bodies must stay idempotent under duplicate execution.
//
// Backend failure also returns "": not acquiring is the safe default.
func (s *Store) AcquireLock(ctx context.Context, name string, ttl time.Duration) string {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, lockKeyPrefix+name, token, ttl).Result()
	if err != nil {
		logger.Error("store: lock acquire failed", logger.Fields{"lock": name}, err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// ReleaseLock releases the named lock if token still owns it. Returns false
// when the lock expired and/or was taken over by another holder.
func (s *Store) ReleaseLock(ctx context.Context, name, token string) bool {
	n, err := releaseScript.Run(ctx, s.client, []string{lockKeyPrefix + name}, token).Int()
	if err != nil {
		logger.Error("store: lock release failed", logger.Fields{"lock": name}, err)
		return false
	}
	return n == 1
}

// LockHeld reports whether the named lock currently exists. Advisory only;
// used by the status surface.
func (s *Store) LockHeld(ctx context.Context, name string) bool {
	n, err := s.client.Exists(ctx, lockKeyPrefix+name).Result()
	if err != nil {
		logger.Error("store: lock check failed", logger.Fields{"lock": name}, err)
		return false
	}
	return n == 1
}
