package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TUTOR SCHEDULING LOCK
// SetNX-based mutex keyed per tutor. The schedule and reschedule handlers hold
// it across their conflict-check-and-write sequence so two concurrent requests
// for overlapping times cannot both pass the check before either writes.
// ══════════════════════════════════════════════════════════════════════════════

const lockKeyPrefix = "schedlock:tutor:"

// Release compares the stored token before deleting so an instance whose lock
// expired cannot release a lock now held by someone else.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// TutorLock implements the per-tutor scheduling lock on Redis.
type TutorLock struct {
	client *redis.Client

	// ttl caps how long a crashed holder can block a tutor's calendar.
	ttl time.Duration

	// maxWait bounds how long Acquire polls for a contended lock.
	maxWait time.Duration

	// retryEvery is the polling interval while contended.
	retryEvery time.Duration

	// tokens remembers this instance's lock token per key between Acquire
	// and Release.
	mu     sync.Mutex
	tokens map[string]string
}

// NewTutorLock creates a tutor lock with production defaults: a 10 second
// TTL, a 3 second bounded wait, and 50ms polling.
func NewTutorLock(client *redis.Client) *TutorLock {
	return &TutorLock{
		client:     client,
		ttl:        10 * time.Second,
		maxWait:    3 * time.Second,
		retryEvery: 50 * time.Millisecond,
		tokens:     make(map[string]string),
	}
}

// WithTTL overrides the lock TTL.
func (l *TutorLock) WithTTL(ttl time.Duration) *TutorLock {
	l.ttl = ttl
	return l
}

// WithMaxWait overrides the bounded acquisition wait.
func (l *TutorLock) WithMaxWait(d time.Duration) *TutorLock {
	l.maxWait = d
	return l
}

// Acquire takes the tutor's scheduling lock, polling up to the bounded wait.
// Returns shared.ErrLockNotAcquired when the lock stays contended.
func (l *TutorLock) Acquire(ctx context.Context, tutorID shared.TutorID) error {
	key := lockKeyPrefix + tutorID.String()
	token := uuid.NewString()

	deadline := time.Now().Add(l.maxWait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("tutor lock: acquire %s: %w", key, err)
		}
		if ok {
			l.mu.Lock()
			l.tokens[key] = token
			l.mu.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			return shared.WrapError("scheduling", "acquire_lock", shared.ErrLockNotAcquired,
				"tutor calendar is locked by a concurrent request", nil)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("tutor lock: acquire %s: %w", key, ctx.Err())
		case <-time.After(l.retryEvery):
		}
	}
}

// Release frees the tutor's scheduling lock if this instance still holds it.
func (l *TutorLock) Release(ctx context.Context, tutorID shared.TutorID) error {
	key := lockKeyPrefix + tutorID.String()
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("tutor lock: release %s: %w", key, err)
	}
	return nil
}
