package starboard

import (
	"context"
	"time"

	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/storage"
	"github.com/dgraph-io/ristretto"
	"github.com/go-redis/cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ConfigSource resolves the starboard config of a guild, nil means the
// starboard is not configured there
type ConfigSource interface {
	GetConfig(ctx context.Context, guildID string) (*models.StarboardConfig, error)
}

type cachedConfig struct {
	Found  bool                   `msgpack:"found"`
	Config models.StarboardConfig `msgpack:"config"`
}

// ConfigResolver reads configs through an in-process cache and, if set, a
// shared redis cache in front of the config store
type ConfigResolver struct {
	store  storage.ConfigStore
	local  *ristretto.Cache
	remote *cache.Codec
	ttl    time.Duration
	group  singleflight.Group

	// Log receives failures of the redis cache, which never fail a lookup
	Log *logrus.Entry
}

// NewConfigResolver builds a resolver, remote may be nil
func NewConfigResolver(store storage.ConfigStore, remote *cache.Codec, ttl time.Duration) (*ConfigResolver, error) {
	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        100000,
		MaxCost:            10000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &ConfigResolver{
		store:  store,
		local:  local,
		remote: remote,
		ttl:    ttl,
		Log:    logrus.NewEntry(logrus.StandardLogger()),
	}, nil
}

func configCacheKey(guildID string) string {
	return "starboard:config:" + guildID
}

func (r *ConfigResolver) GetConfig(ctx context.Context, guildID string) (*models.StarboardConfig, error) {
	key := configCacheKey(guildID)

	if value, ok := r.local.Get(key); ok {
		return value.(cachedConfig).result(), nil
	}

	value, err, _ := r.group.Do(key, func() (interface{}, error) {
		var entry cachedConfig

		if r.remote != nil {
			if err := r.remote.Get(key, &entry); err == nil {
				r.storeLocal(key, entry)
				return entry, nil
			}
		}

		config, err := r.store.GetConfig(ctx, guildID)
		switch {
		case storage.IsNotFound(err):
			entry = cachedConfig{Found: false}
		case err != nil:
			return nil, err
		default:
			entry = cachedConfig{Found: true, Config: *config}
		}

		r.storeLocal(key, entry)
		if r.remote != nil {
			err = r.remote.Set(&cache.Item{
				Key:        key,
				Object:     entry,
				Expiration: r.ttl,
			})
			if err != nil {
				r.warn(err, key, "caching config in redis failed")
			}
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(cachedConfig).result(), nil
}

// Invalidate drops the cached config after it was written
func (r *ConfigResolver) Invalidate(guildID string) {
	key := configCacheKey(guildID)
	r.local.Del(key)
	if r.remote != nil {
		err := r.remote.Delete(key)
		if err != nil && err != cache.ErrCacheMiss {
			r.warn(err, key, "dropping cached config from redis failed")
		}
	}
}

func (r *ConfigResolver) warn(err error, key, message string) {
	if r.Log != nil {
		r.Log.WithError(err).WithField("key", key).Warn(message)
	}
}

func (r *ConfigResolver) storeLocal(key string, entry cachedConfig) {
	r.local.SetWithTTL(key, entry, 1, r.ttl)
	r.local.Wait()
}

func (c cachedConfig) result() *models.StarboardConfig {
	if !c.Found {
		return nil
	}
	config := c.Config
	return &config
}
