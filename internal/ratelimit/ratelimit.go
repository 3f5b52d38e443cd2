// Package ratelimit ports internal/middleware.RateLimiter: a per-client
// token bucket limiter with periodic idle cleanup, plus a stricter
// instance tuned for WS inbound frames.
package ratelimit

import (
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
}

var DefaultConfig = Config{RequestsPerSecond: 10.0, BurstSize: 20, CleanupInterval: 5 * time.Minute}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one rate.Limiter per client key, evicting idle ones on
// a ticker, exactly as internal/middleware.RateLimiter does.
type Limiter struct {
	mu          sync.RWMutex
	limiters    map[string]*clientLimiter
	config      Config
	stopCleanup chan struct{}
}

func New(config Config) *Limiter {
	l := &Limiter{limiters: make(map[string]*clientLimiter), config: config, stopCleanup: make(chan struct{})}
	go l.cleanupLoop()
	return l
}

func (l *Limiter) Allow(clientID string) bool {
	return l.AllowN(clientID, 1)
}

func (l *Limiter) AllowN(clientID string, n int) bool {
	l.mu.Lock()
	cl, ok := l.limiters[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize)}
		l.limiters[clientID] = cl
	}
	cl.lastSeen = time.Now()
	l.mu.Unlock()
	return cl.limiter.AllowN(time.Now(), n)
}

func (l *Limiter) LimiterCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-l.config.CleanupInterval)
	removed := 0
	for id, cl := range l.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(l.limiters, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[RATELIMIT] evicted %d idle limiters", removed)
	}
}

func (l *Limiter) Stop() {
	close(l.stopCleanup)
}

// HTTPMiddleware keys by RemoteAddr and returns 429 on reject, the same
// contract as internal/middleware.RateLimiter.HTTPMiddleware.
func (l *Limiter) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.RemoteAddr) {
			http.Error(w, `{"error":"RATE_LIMITED","message":"too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewWSActionLimiter returns a stricter limiter tuned for WS inbound
// frames (answer submissions, chat), backing the "5 protocol errors in
// 30s" abuse-protection rule alongside room.Room.RecordProtocolError.
func NewWSActionLimiter() *Limiter {
	return New(Config{RequestsPerSecond: 5.0, BurstSize: 10, CleanupInterval: 5 * time.Minute})
}

// AllowAction logs on reject, matching
// internal/middleware.WebSocketActionLimiter.AllowAction.
func (l *Limiter) AllowAction(userID string) bool {
	ok := l.Allow(userID)
	if !ok {
		log.Printf("[RATELIMIT] rejected WS action for user %s", userID)
	}
	return ok
}
