package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	failsKeyPrefix = "fittrack_login_fails:"
	blockKeyPrefix = "fittrack_login_block:"
)

// Redis keeps failure counters and blocks as expiring keys, so limits are
// shared between server instances pointing at the same Redis.
type Redis struct {
	c   *redis.Client
	cfg Config
}

// NewRedis constructs a Redis-backed limiter. Zero config fields take DefaultConfig values.
func NewRedis(c *redis.Client, cfg Config) *Redis {
	return &Redis{c: c, cfg: cfg.withDefaults()}
}

func redisKeys(login string, ipHash []byte) (fails, block string) {
	suffix := NormalizeLogin(login) + ":" + hex.EncodeToString(ipHash)
	return failsKeyPrefix + suffix, blockKeyPrefix + suffix
}

// Allow reports whether login is currently allowed; the block key's TTL is the retry-after.
func (l *Redis) Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	_, block := redisKeys(login, ipHash)
	ttl, err := l.c.TTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	// missing keys report a negative TTL
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Success drops both keys for the pair.
func (l *Redis) Success(ctx context.Context, login string, ipHash []byte) error {
	fails, block := redisKeys(login, ipHash)
	return l.c.Del(ctx, fails, block).Err()
}

// Failure increments the windowed counter and sets the block key at the threshold.
func (l *Redis) Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := redisKeys(login, ipHash)

	n, err := l.c.Incr(ctx, fails).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.c.Expire(ctx, fails, l.cfg.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if n < int64(l.cfg.MaxFails) {
		return false, 0, nil
	}

	if err := l.c.Set(ctx, block, 1, l.cfg.BlockFor).Err(); err != nil {
		return false, 0, err
	}
	if err := l.c.Del(ctx, fails).Err(); err != nil {
		return false, 0, err
	}
	return true, l.cfg.BlockFor, nil
}
