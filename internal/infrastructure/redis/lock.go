package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goRedis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goRedis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-holder lease on a Redis key, used so only one
// instance runs a scheduler cycle at a time.
type Lock struct {
	client goRedis.Cmdable
	key    string
	ttl    time.Duration
}

func NewLock(client goRedis.Cmdable, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = "reminders:scheduler:cycle"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// TryAcquire attempts to take the lease. ok is false when another holder has it.
func (l *Lock) TryAcquire(ctx context.Context) (release func(context.Context) error, ok bool, err error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("redis lock: client not configured")
	}
	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release = func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}
