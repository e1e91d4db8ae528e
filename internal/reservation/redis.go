package reservation

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps reservations in Redis with native TTL, making holds
// visible across instances. Each hold is a hash under resv:<key>; two
// sets index holds by product and by user. Set members for expired
// holds are cleaned up lazily when the hash is found missing.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func resvKey(key string) string  { return "resv:" + key }
func prodIdx(id string) string   { return "resv:prod:" + id }
func userIdx(user string) string { return "resv:user:" + user }

func (s *RedisStore) reserved(ctx context.Context, productID string) int {
	members, err := s.rdb.SMembers(ctx, prodIdx(productID)).Result()
	if err != nil {
		return 0
	}
	total := 0
	for _, m := range members {
		qty, err := s.rdb.HGet(ctx, resvKey(m), "qty").Int()
		if err == redis.Nil {
			// Hash expired; drop the stale index member.
			s.rdb.SRem(ctx, prodIdx(productID), m)
			continue
		}
		if err == nil {
			total += qty
		}
	}
	return total
}

func (s *RedisStore) Create(ctx context.Context, productID string, qty int, userID string, availableStock int) (string, bool) {
	if availableStock-s.reserved(ctx, productID) < qty {
		return "", false
	}
	key := newKey(productID, userID)
	expires := time.Now().Add(TTL)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, resvKey(key), map[string]any{
		"product": productID,
		"user":    userID,
		"qty":     qty,
		"expires": strconv.FormatInt(expires.Unix(), 10),
	})
	pipe.Expire(ctx, resvKey(key), TTL)
	pipe.SAdd(ctx, prodIdx(productID), key)
	pipe.SAdd(ctx, userIdx(userID), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", false
	}
	return key, true
}

func (s *RedisStore) EffectiveStock(ctx context.Context, productID string, actualStock int) int {
	eff := actualStock - s.reserved(ctx, productID)
	if eff < 0 {
		return 0
	}
	return eff
}

func (s *RedisStore) Release(ctx context.Context, key string) bool {
	r, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, resvKey(key))
	pipe.SRem(ctx, prodIdx(r.ProductID), key)
	pipe.SRem(ctx, userIdx(r.UserID), key)
	_, err := pipe.Exec(ctx)
	return err == nil
}

func (s *RedisStore) ReleaseUser(ctx context.Context, userID string) int {
	members, err := s.rdb.SMembers(ctx, userIdx(userID)).Result()
	if err != nil {
		return 0
	}
	n := 0
	for _, m := range members {
		if s.Release(ctx, m) {
			n++
		}
	}
	s.rdb.Del(ctx, userIdx(userID))
	return n
}

func (s *RedisStore) Extend(ctx context.Context, key string) bool {
	if !s.Valid(ctx, key) {
		return false
	}
	expires := time.Now().Add(TTL)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, resvKey(key), "expires", strconv.FormatInt(expires.Unix(), 10))
	pipe.Expire(ctx, resvKey(key), TTL)
	_, err := pipe.Exec(ctx)
	return err == nil
}

func (s *RedisStore) Valid(ctx context.Context, key string) bool {
	_, ok := s.Get(ctx, key)
	return ok
}

func (s *RedisStore) Get(ctx context.Context, key string) (Reservation, bool) {
	vals, err := s.rdb.HGetAll(ctx, resvKey(key)).Result()
	if err != nil || len(vals) == 0 {
		return Reservation{}, false
	}
	qty, _ := strconv.Atoi(vals["qty"])
	exp, _ := strconv.ParseInt(vals["expires"], 10, 64)
	return Reservation{
		Key:       key,
		ProductID: vals["product"],
		UserID:    vals["user"],
		Qty:       qty,
		ExpiresAt: time.Unix(exp, 0),
	}, true
}
