package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/infra/metrics"
)

// NewClient создаёт клиента Redis и проверяет подключение.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// RedisCooldown хранит глобальную перезарядку в Redis, чтобы она переживала рестарт.
type RedisCooldown struct {
	client redis.Cmdable
	key    string
}

// NewRedisCooldown создаёт перезарядку на ключе key.
func NewRedisCooldown(client redis.Cmdable, key string) *RedisCooldown {
	return &RedisCooldown{client: client, key: key}
}

// Acquire занимает окно через SET NX PX. При отказе остаток берётся из PTTL.
func (c *RedisCooldown) Acquire(ctx context.Context, now time.Time, cooldown time.Duration) (time.Duration, bool, error) {
	start := time.Now()
	ok, err := c.client.SetNX(ctx, c.key, strconv.FormatInt(now.UnixMilli(), 10), cooldown).Result()
	metrics.ObserveNetworkRequest("redis", "cooldown_setnx", c.key, start, err)
	if err != nil {
		return 0, false, err
	}
	if ok {
		return 0, true, nil
	}

	start = time.Now()
	ttl, err := c.client.PTTL(ctx, c.key).Result()
	metrics.ObserveNetworkRequest("redis", "cooldown_pttl", c.key, start, err)
	if err != nil {
		return 0, false, err
	}
	if ttl < 0 {
		// ключ исчез между SETNX и PTTL либо без TTL
		ttl = 0
	}
	return ttl, false, nil
}

var _ domain.CooldownGuard = (*RedisCooldown)(nil)
