package service

import (
	"context"
	"strconv"
	"time"

	"portfolio-be/pkg/logger"
	"portfolio-be/pkg/redis"
)

// setIfGeneration stores the count only while the generation key still holds
// the generation the caller read before querying the store. A missing
// generation key is generation 0.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// bumpGeneration deletes the count and starts a new generation in one step
var bumpGeneration = redis.NewScript(`
redis.call('DEL', KEYS[1])
return redis.call('INCR', KEYS[2])
`)

// redisCountCache shares the count and its generation between instances.
// Redis expires the count after ttl; Invalidate deletes it and bumps the
// generation, so a recompute started on any instance before the bump cannot
// store its result after it.
type redisCountCache struct {
	client *redis.Client
	key    string
	genKey string
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisCountCache creates a count cache backed by Redis
func NewRedisCountCache(client *redis.Client, ttl time.Duration, logger *logger.Logger) CountCache {
	return &redisCountCache{
		client: client,
		key:    client.KeyBuilder.KeyVisitCount(),
		genKey: client.KeyBuilder.KeyVisitCountGeneration(),
		ttl:    ttl,
		logger: logger,
	}
}

// Get treats any Redis failure as a miss so the count is recomputed. The
// generation returned then is 0, which at worst makes the following Set a
// no-op.
func (c *redisCountCache) Get(ctx context.Context) (int64, uint64, bool) {
	vals, err := c.client.MGet(ctx, c.key, c.genKey)
	if err != nil || len(vals) != 2 {
		c.logger.WithError(err).Warn("Visit count cache read failed, falling back to database")
		return 0, 0, false
	}

	var gen uint64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseUint(raw, 10, 64); err != nil {
			c.logger.WithField("value", raw).Warn("Visit count generation corrupted, falling back to database")
			return 0, 0, false
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return 0, gen, false
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || count < 0 {
		c.logger.WithField("value", raw).Warn("Visit count cache corrupted, falling back to database")
		return 0, gen, false
	}
	return count, gen, true
}

func (c *redisCountCache) Set(ctx context.Context, count int64, gen uint64) {
	_, err := c.client.RunScript(ctx, setIfGeneration, []string{c.key, c.genKey},
		count, strconv.FormatUint(gen, 10), c.ttl.Milliseconds())
	if err != nil {
		c.logger.WithError(err).Warn("Failed to cache visit count")
	}
}

func (c *redisCountCache) Invalidate(ctx context.Context) error {
	_, err := c.client.RunScript(ctx, bumpGeneration, []string{c.key, c.genKey})
	return err
}
