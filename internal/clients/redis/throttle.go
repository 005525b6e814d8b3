package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
)

// Throttle gates best-effort notification emission. Allow reports whether the
// key has not fired within the window; a failed redis call counts as allowed
// so a degraded throttle can only over-emit, never drop completions.
type Throttle interface {
	Allow(ctx context.Context, key string, window time.Duration) bool
}

type redisThrottle struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewThrottle(log *logger.Logger, rdb *goredis.Client) Throttle {
	return &redisThrottle{
		log: log.With("client", "RedisThrottle"),
		rdb: rdb,
	}
}

func (t *redisThrottle) Allow(ctx context.Context, key string, window time.Duration) bool {
	if t == nil || t.rdb == nil {
		return true
	}
	ok, err := t.rdb.SetNX(ctx, "throttle:"+key, 1, window).Result()
	if err != nil {
		t.log.Warn("throttle check failed, allowing emission", "key", key, "error", err)
		return true
	}
	return ok
}
