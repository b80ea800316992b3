// Package redis implements the per-candidate analysis lock on Redis.
//
// Two concurrent analyses of the same candidate (a manual retry racing a
// scheduled run) would otherwise race on the last write. The lock is a
// SET NX key with a TTL; release deletes the key only if this holder
// still owns it.
package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// Locker implements domain.AnalysisLocker.
type Locker struct {
	rdb    *redis.Client
	script *redis.Script
}

// releaseScript deletes the lock key only when the stored token matches,
// so an expired lock re-acquired by someone else is never released by the
// previous holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// New constructs a Locker on an existing Redis client.
func New(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, script: redis.NewScript(releaseScript)}
}

// NewClient dials Redis with the given address and password.
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

// TryLock attempts to take the analysis lock for a candidate. It does not
// block: ok=false means another run holds the lock. The returned release
// func is safe to call once.
func (l *Locker) TryLock(ctx domain.Context, candidateID string, ttl time.Duration) (func(), bool, error) {
	key := "analysis:lock:" + candidateID
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// Release uses a fresh context: the run's context may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.script.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			slog.Warn("analysis lock release failed",
				slog.String("candidate_id", candidateID), slog.Any("error", err))
		}
	}
	return release, true, nil
}
