// Package locks provides a Redis-backed distributed lock, ported from the
// poker platform's lock manager and retargeted at room/tournament code
// allocation. GameSessionToken consumption does not go through it.
package locks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockTimeout      = errors.New("locks: timed out acquiring lock")
	ErrLockNotHeld      = errors.New("locks: lock not held by this holder")
	ErrLockAlreadyHeld  = errors.New("locks: lock already held")
)

const (
	DefaultLockTTL        = 30 * time.Second
	DefaultAcquireTimeout = 5 * time.Second
	DefaultRetryAttempts  = 3
	OrphanedLockAge       = 60 * time.Second
)

// Manager acquires and releases named locks against Redis. instanceID
// disambiguates which process minted a given lock value, so a release
// from a different instance can never delete another holder's lock.
type Manager struct {
	redis      *redis.Client
	instanceID string
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{redis: client, instanceID: uuid.New().String()}
}

// Lock is a held lock; callers must Release it, typically via defer.
type Lock struct {
	key        string
	value      string
	manager    *Manager
	ttl        time.Duration
	acquiredAt time.Time
}

// Acquire blocks (bounded by ctx) until the named lock is acquired or
// DefaultRetryAttempts attempts are exhausted, backing off exponentially
// between attempts and sweeping orphaned locks along the way.
func (m *Manager) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	lockKey := "lock:" + name
	lockValue := fmt.Sprintf("%s:%s", m.instanceID, uuid.New().String())

	for attempt := 0; attempt < DefaultRetryAttempts; attempt++ {
		ok, err := m.redis.SetNX(ctx, lockKey, lockValue, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{key: lockKey, value: lockValue, manager: m, ttl: ttl, acquiredAt: time.Now()}, nil
		}

		m.checkAndCleanOrphanedLock(ctx, lockKey)

		backoff := calculateBackoff(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, ErrLockTimeout
}

// AcquireWithTimeout is a convenience wrapper bounding Acquire by
// DefaultAcquireTimeout rather than an externally supplied context
// deadline.
func (m *Manager) AcquireWithTimeout(name string, ttl time.Duration) (*Lock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultAcquireTimeout)
	defer cancel()
	return m.Acquire(ctx, name, ttl)
}

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Release deletes the lock only if it is still owned by this Lock's
// value, via a Lua script so the check-and-delete is atomic.
func (l *Lock) Release(ctx context.Context) error {
	res, err := l.manager.redis.Eval(ctx, releaseScript, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if n, _ := res.(int64); n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("expire", KEYS[1], ARGV[2])
else
	return 0
end
`

// Extend bumps the lock's TTL by additionalTTL, atomically, only if
// still owned.
func (l *Lock) Extend(ctx context.Context, additionalTTL time.Duration) error {
	res, err := l.manager.redis.Eval(ctx, extendScript, []string{l.key}, l.value, int(additionalTTL.Seconds())).Result()
	if err != nil {
		return err
	}
	if n, _ := res.(int64); n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (m *Manager) checkAndCleanOrphanedLock(ctx context.Context, lockKey string) {
	idle, err := m.redis.ObjectIdleTime(ctx, lockKey).Result()
	if err != nil {
		return
	}
	if idle > OrphanedLockAge {
		if err := m.redis.Del(ctx, lockKey).Err(); err != nil {
			log.Printf("[LOCK] failed to delete orphaned lock %s: %v", lockKey, err)
			return
		}
		log.Printf("[LOCK] deleted orphaned lock %s (idle %s)", lockKey, idle)
	}
}

func calculateBackoff(attempt int) time.Duration {
	backoff := 500 * time.Millisecond
	for i := 0; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > 2*time.Second {
		backoff = 2 * time.Second
	}
	return backoff
}

// CleanupOrphanedLocks scans all "lock:*" keys and removes any idle past
// OrphanedLockAge; called once at startup the same way the teacher's
// config.InitializeServices does.
func (m *Manager) CleanupOrphanedLocks(ctx context.Context) (int, error) {
	var cursor uint64
	cleaned := 0
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, "lock:*", 100).Result()
		if err != nil {
			return cleaned, err
		}
		for _, key := range keys {
			idle, err := m.redis.ObjectIdleTime(ctx, key).Result()
			if err != nil {
				continue
			}
			if idle > OrphanedLockAge {
				if err := m.redis.Del(ctx, key).Err(); err == nil {
					cleaned++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return cleaned, nil
}
