package starboard

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// releases the lock only if we still own it
var redisUnlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker shares the reconciliation lock between several bot processes
// using SET NX with an expiry. TTL has to be longer than one mirror creation.
type RedisLocker struct {
	Client       *redis.Client
	Prefix       string
	TTL          time.Duration
	PollInterval time.Duration
	Log          *logrus.Entry
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		Client:       client,
		Prefix:       "starboard:lock:",
		TTL:          ttl,
		PollInterval: 25 * time.Millisecond,
		Log:          logrus.NewEntry(logrus.StandardLogger()),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.Prefix + key
	token := uuid.New().String()

	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.Client.SetNX(redisKey, token, l.TTL).Result()
		if err != nil {
			return nil, errors.Wrap(err, "acquiring redis lock")
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		err := redisUnlockScript.Run(l.Client, []string{redisKey}, token).Err()
		if err != nil && l.Log != nil {
			l.Log.WithError(err).WithField("key", redisKey).Warn("releasing redis lock failed, it expires after its ttl")
		}
	}, nil
}
