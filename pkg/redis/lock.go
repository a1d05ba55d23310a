package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/finance-ledger/pkg/logger"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker hands out short-lived exclusive locks stored as SET NX keys. Each
// holder owns a random token so that an expired holder never releases a lock
// taken over by someone else.
type Locker struct {
	adapter    RedisAdapter
	ttl        time.Duration
	maxRetries int
	baseDelay  time.Duration
}

func NewLocker(adapter RedisAdapter, ttl time.Duration) *Locker {
	return &Locker{
		adapter:    adapter,
		ttl:        ttl,
		maxRetries: 3,
		baseDelay:  20 * time.Millisecond,
	}
}

// Lock blocks for a few short backoff rounds and returns ErrLockNotAcquired
// when the key stays taken. The returned func releases the lock.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := []byte(uuid.NewString())
	key = "lock:" + key

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		ok, err := l.adapter.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		if attempt < l.maxRetries {
			delay := l.baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
}

func (l *Locker) release(key string, token []byte) {
	// the caller's context may already be cancelled; the key must still go
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := l.adapter.CompareAndDelete(ctx, key, token); err != nil {
		logger.Warn("failed to release lock", "key", key, "error", err)
	}
}
