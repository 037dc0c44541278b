package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix       = "stock:"
	rateKeyPrefix        = "rate:"
	idempotencyKeyPrefix = "idempotency:"

	idempotencyTTL = 60 * time.Second
	// Two bucket widths, so a bucket survives long enough to shape the
	// boundary-straddling burst it belongs to.
	rateBucketTTL = 2 * time.Second
)

// reserveStockScript reads, tests and decrements the stock counter in one
// indivisible step. Returns 1 on a successful reservation, 0 when the counter
// is missing or empty.
var reserveStockScript = redis.NewScript(`
local key = KEYS[1]

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current >= 1 then
	redis.call('DECR', key)
	return 1
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID string, quantity int) error {
	return r.client.Set(ctx, stockKeyPrefix+productID, quantity, 0).Err()
}

func (r *RedisAdapter) ReserveStock(ctx context.Context, productID string) (bool, error) {
	result, err := reserveStockScript.Run(ctx, r.client, []string{stockKeyPrefix + productID}).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (r *RedisAdapter) IncrementRateBucket(ctx context.Context, unixSecond int64) (int64, error) {
	key := fmt.Sprintf("%s%d", rateKeyPrefix, unixSecond)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, rateBucketTTL).Err(); err != nil {
			return 0, err
		}
	}

	return count, nil
}

func (r *RedisAdapter) IdempotencySeen(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, idempotencyKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (r *RedisAdapter) MarkIdempotency(ctx context.Context, token string) error {
	return r.client.Set(ctx, idempotencyKeyPrefix+token, 1, idempotencyTTL).Err()
}
