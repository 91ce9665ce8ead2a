package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

const cacheKeyPrefix = "advisor:course:"

// RedisCache is a read-through cache for single course lookups. Listings
// pass through uncached. Redis failures bypass the cache.
type RedisCache struct {
	store  Store
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisClient connects to addr. The connection is established lazily.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisCache(store Store, client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisCache{store: store, client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Course(ctx context.Context, moduleID string) (*CourseInfo, error) {
	key := cacheKeyPrefix + moduleID
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var course CourseInfo
		if jerr := json.Unmarshal(raw, &course); jerr == nil {
			return &course, nil
		}
		c.log.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Debug("course cache unavailable", "error", err)
	}

	course, err := c.store.Course(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if data, jerr := json.Marshal(course); jerr == nil {
		if serr := c.client.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			c.log.Debug("course cache write failed", "error", serr)
		}
	}
	return course, nil
}

func (c *RedisCache) Courses(ctx context.Context, programID string) ([]CourseInfo, error) {
	return c.store.Courses(ctx, programID)
}

// Ping checks the underlying store; the cache is optional.
func (c *RedisCache) Ping(ctx context.Context) error {
	return ping(ctx, c.store)
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
