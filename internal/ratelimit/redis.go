package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the same sliding window on a shared Redis, for
// deployments running more than one instance. Timestamps live in a
// sorted set scored by unix-nanos; hard blocks are plain keys with TTL.
//
// On Redis errors the store fails open: throttling is protection, not a
// correctness requirement, and an unreachable Redis must not take
// checkout down with it.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Check(ctx context.Context, identifier string, p Policy) Result {
	k := "rl:" + key(identifier, p)
	blockKey := "rl:block:" + key(identifier, p)
	now := time.Now()

	ttl, err := s.rdb.TTL(ctx, blockKey).Result()
	if err == nil && ttl > 0 {
		return Result{Allowed: false, Blocked: true, ResetIn: ttl}
	}

	cutoff := strconv.FormatInt(now.Add(-p.Window).UnixNano(), 10)
	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", cutoff)
	card := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true, Remaining: p.Limit}
	}

	n := int(card.Val())
	if n >= p.Limit {
		resetIn := p.Window
		if oldest, err := s.rdb.ZRangeWithScores(ctx, k, 0, 0).Result(); err == nil && len(oldest) > 0 {
			resetIn = time.Unix(0, int64(oldest[0].Score)).Add(p.Window).Sub(now)
		}
		if p.BlockFor > 0 {
			s.rdb.Set(ctx, blockKey, "1", p.BlockFor)
			resetIn = p.BlockFor
		}
		return Result{Allowed: false, Blocked: p.BlockFor > 0, ResetIn: resetIn}
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe = s.rdb.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, k, p.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true, Remaining: p.Limit - n}
	}

	return Result{Allowed: true, Remaining: p.Limit - n - 1, ResetIn: p.Window}
}
