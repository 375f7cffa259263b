package auth

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FailureRecord tracks consecutive verification failures for one
// (email, client identity) pair.
type FailureRecord struct {
	Count       int
	LastAttempt time.Time
}

// LockoutStore persists failure records. Fail must perform an atomic
// increment-and-read per key so concurrent attempts cannot race past the
// lockout threshold.
type LockoutStore interface {
	// Fail counts one failure. An attempt arriving after window has elapsed
	// since the last one starts over at count 1.
	Fail(ctx context.Context, key string, window time.Duration) (FailureRecord, error)
	// Status returns the current record; a zero record means no failures.
	Status(ctx context.Context, key string) (FailureRecord, error)
	// Clear removes the record unconditionally.
	Clear(ctx context.Context, key string) error
}

// Tracker applies the lockout policy over a LockoutStore. Locking is keyed
// per email and per client identity, so an attacker rotating addresses
// against one account is slowed per address, and one address probing many
// accounts is slowed per account.
type Tracker struct {
	store     LockoutStore
	threshold int
	window    time.Duration
	now       func() time.Time
}

// NewTracker constructs a Tracker. threshold failures within window lock
// the key until the window elapses.
func NewTracker(store LockoutStore, threshold int, window time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &Tracker{store: store, threshold: threshold, window: window, now: time.Now}
}

func lockoutKey(email, clientID string) string {
	return "lock:" + NormalizeEmail(email) + "|" + clientID
}

// RecordFailure counts one failed verification for the pair.
func (t *Tracker) RecordFailure(ctx context.Context, email, clientID string) error {
	_, err := t.store.Fail(ctx, lockoutKey(email, clientID), t.window)
	return err
}

// RecordSuccess clears the failure record unconditionally.
func (t *Tracker) RecordSuccess(ctx context.Context, email, clientID string) error {
	return t.store.Clear(ctx, lockoutKey(email, clientID))
}

// IsLocked reports whether the pair has reached the threshold within the
// lockout window. Locked is not terminal: once the window elapses the next
// attempt starts a fresh count.
func (t *Tracker) IsLocked(ctx context.Context, email, clientID string) (bool, error) {
	rec, err := t.store.Status(ctx, lockoutKey(email, clientID))
	if err != nil {
		return false, err
	}
	return rec.Count >= t.threshold && t.now().Sub(rec.LastAttempt) < t.window, nil
}

// MemoryLockoutStore keeps failure records in process memory, guarded by a
// single mutex. Records are lost on restart; that is an accepted limitation
// of single-process state.
type MemoryLockoutStore struct {
	mu      sync.Mutex
	records map[string]FailureRecord
	now     func() time.Time
}

// NewMemoryLockoutStore constructs an in-memory store.
func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{records: make(map[string]FailureRecord), now: time.Now}
}

// Fail atomically increments the failure count, resetting it when the
// previous attempt is outside the window.
func (s *MemoryLockoutStore) Fail(_ context.Context, key string, window time.Duration) (FailureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := s.records[key]
	if rec.Count == 0 || now.Sub(rec.LastAttempt) >= window {
		rec = FailureRecord{Count: 1, LastAttempt: now}
	} else {
		rec.Count++
		rec.LastAttempt = now
	}
	s.records[key] = rec
	return rec, nil
}

// Status returns the record for key; zero value when absent.
func (s *MemoryLockoutStore) Status(_ context.Context, key string) (FailureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key], nil
}

// Clear deletes the record for key.
func (s *MemoryLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// PurgeStale removes records whose last attempt is older than staleAfter
// and returns how many were dropped. Holds the lock only for the single
// map scan.
func (s *MemoryLockoutStore) PurgeStale(staleAfter time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	purged := 0
	for key, rec := range s.records {
		if now.Sub(rec.LastAttempt) > staleAfter {
			delete(s.records, key)
			purged++
		}
	}
	return purged
}

// RedisLockoutStore shares failure records across service instances. The
// record lives in a hash whose TTL doubles as the staleness purge, so no
// janitor is needed for this implementation.
type RedisLockoutStore struct {
	client     *redis.Client
	prefix     string
	staleAfter time.Duration
	now        func() time.Time
}

// NewRedisLockoutStore constructs a redis-backed store whose entries expire
// staleAfter past the last failure.
func NewRedisLockoutStore(client *redis.Client, staleAfter time.Duration) *RedisLockoutStore {
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	return &RedisLockoutStore{client: client, prefix: "askora:", staleAfter: staleAfter, now: time.Now}
}

// Fail increments the counter and stamps the attempt time in one pipeline.
func (s *RedisLockoutStore) Fail(ctx context.Context, key string, window time.Duration) (FailureRecord, error) {
	now := s.now()
	rec, err := s.Status(ctx, key)
	if err != nil {
		return FailureRecord{}, err
	}
	count := rec.Count + 1
	if rec.Count == 0 || now.Sub(rec.LastAttempt) >= window {
		count = 1
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.prefix+key, "count", count, "last", now.UnixMilli())
	pipe.Expire(ctx, s.prefix+key, s.staleAfter)
	if _, err := pipe.Exec(ctx); err != nil {
		return FailureRecord{}, err
	}
	return FailureRecord{Count: count, LastAttempt: now}, nil
}

// Status reads the record; a missing hash yields the zero record.
func (s *RedisLockoutStore) Status(ctx context.Context, key string) (FailureRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return FailureRecord{}, err
	}
	if len(fields) == 0 {
		return FailureRecord{}, nil
	}
	count, _ := strconv.Atoi(fields["count"])
	last, _ := strconv.ParseInt(fields["last"], 10, 64)
	return FailureRecord{Count: count, LastAttempt: time.UnixMilli(last)}, nil
}

// Clear deletes the record.
func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

var (
	_ LockoutStore = (*MemoryLockoutStore)(nil)
	_ LockoutStore = (*RedisLockoutStore)(nil)
)

// Janitor periodically purges stale in-memory lockout state. It is an
// explicit background task: callers own its lifecycle via Run and the
// context, and tests can drive Sweep directly.
type Janitor struct {
	store      *MemoryLockoutStore
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewJanitor constructs a Janitor sweeping every interval, purging records
// idle longer than staleAfter.
func NewJanitor(store *MemoryLockoutStore, interval, staleAfter time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	return &Janitor{store: store, interval: interval, staleAfter: staleAfter, logger: logger}
}

// Run sweeps until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep performs a single purge pass.
func (j *Janitor) Sweep() {
	purged := j.store.PurgeStale(j.staleAfter)
	if purged > 0 && j.logger != nil {
		j.logger.Debug("purged stale lockout records", slog.Int("count", purged))
	}
}
