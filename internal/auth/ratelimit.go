package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/askora/askora/internal/platform/httpx"
)

// RateLimitStore counts requests per client identity within a fixed window.
// Implementations must make the increment-and-read atomic per key.
type RateLimitStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter admits or rejects requests by client identity. The op name scopes
// the counter so limiters for different operations never share state, even
// over the same store.
type Limiter struct {
	store  RateLimitStore
	op     string
	window time.Duration
}

// NewLimiter constructs a Limiter over the given store and window, counting
// under the given operation name.
func NewLimiter(store RateLimitStore, op string, window time.Duration) *Limiter {
	return &Limiter{store: store, op: op, window: window}
}

// Check counts one request for clientID and returns httpx.ErrRateLimited
// once the count within the current window exceeds limit. Store failures
// surface as transient errors, never as an admit.
func (l *Limiter) Check(ctx context.Context, limit int, clientID string) error {
	count, err := l.store.Incr(ctx, "rate:"+l.op+":"+clientID, l.window)
	if err != nil {
		return fmt.Errorf("%w: rate limit store: %v", httpx.ErrTransient, err)
	}
	if count > int64(limit) {
		return httpx.ErrRateLimited
	}
	return nil
}

type rateWindow struct {
	start time.Time
	count int64
}

// MemoryRateLimitStore keeps per-client windows in process memory. State is
// best effort and lost on restart. The number of tracked clients is bounded
// by clientCap; when the cap is hit the stalest window is evicted.
type MemoryRateLimitStore struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	clientCap int
	now       func() time.Time
}

// NewMemoryRateLimitStore constructs an in-memory store tracking at most
// clientCap distinct client identities.
func NewMemoryRateLimitStore(clientCap int) *MemoryRateLimitStore {
	if clientCap <= 0 {
		clientCap = 100
	}
	return &MemoryRateLimitStore{
		windows:   make(map[string]*rateWindow),
		clientCap: clientCap,
		now:       time.Now,
	}
}

// Incr atomically counts one request for key within the current window.
func (s *MemoryRateLimitStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= window {
		if !ok && len(s.windows) >= s.clientCap {
			s.evictStalest()
		}
		w = &rateWindow{start: now}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// evictStalest drops the entry with the oldest window start. Caller holds the lock.
func (s *MemoryRateLimitStore) evictStalest() {
	var oldestKey string
	var oldest time.Time
	for key, w := range s.windows {
		if oldestKey == "" || w.start.Before(oldest) {
			oldestKey = key
			oldest = w.start
		}
	}
	if oldestKey != "" {
		delete(s.windows, oldestKey)
	}
}

// RedisRateLimitStore shares window state across service instances.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimitStore constructs a redis-backed store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, prefix: "askora:"}
}

// Incr counts one request for key, starting the window expiry on first hit.
func (s *RedisRateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, s.prefix+key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

var (
	_ RateLimitStore = (*MemoryRateLimitStore)(nil)
	_ RateLimitStore = (*RedisRateLimitStore)(nil)
)
