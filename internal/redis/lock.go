package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("tutor lock not acquired")
)

// Locker guards the conflict re-check plus insert sequence per tutor, so two
// concurrent booking attempts for the same tutor cannot interleave.
type Locker interface {
	WithTutorLock(ctx context.Context, tutorID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisTutorLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTutorLocker creates a locker that uses a per tutor Redis key
func NewRedisTutorLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisTutorLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisTutorLocker) WithTutorLock(ctx context.Context, tutorID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:tutor:%s", tutorID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire tutor lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisTutorLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release tutor lock: %w", err)
	}
	return nil
}
