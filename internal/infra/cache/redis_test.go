package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubRedis struct {
	redis.Cmdable
	setOK  bool
	setErr error
	ttl    time.Duration
	keys   []string
}

func (s *stubRedis) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	s.keys = append(s.keys, key)
	return redis.NewBoolResult(s.setOK, s.setErr)
}

func (s *stubRedis) PTTL(_ context.Context, _ string) *redis.DurationCmd {
	return redis.NewDurationResult(s.ttl, nil)
}

func TestRedisCooldownAcquire(t *testing.T) {
	stub := &stubRedis{setOK: true}
	cd := NewRedisCooldown(stub, "bot:kill_random:cooldown")

	left, ok, err := cd.Acquire(context.Background(), time.Now(), time.Hour)
	if err != nil || !ok || left != 0 {
		t.Fatalf("ожидали захват, получили ok=%v left=%s err=%v", ok, left, err)
	}
	if len(stub.keys) != 1 || stub.keys[0] != "bot:kill_random:cooldown" {
		t.Fatalf("неожиданные ключи %v", stub.keys)
	}
}

func TestRedisCooldownBusy(t *testing.T) {
	stub := &stubRedis{setOK: false, ttl: 20 * time.Minute}
	cd := NewRedisCooldown(stub, "k")

	left, ok, err := cd.Acquire(context.Background(), time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if ok || left != 20*time.Minute {
		t.Fatalf("ожидали отказ с остатком 20m, получили ok=%v left=%s", ok, left)
	}
}

func TestRedisCooldownError(t *testing.T) {
	stub := &stubRedis{setErr: errors.New("connection refused")}
	if _, _, err := NewRedisCooldown(stub, "k").Acquire(context.Background(), time.Now(), time.Hour); err == nil {
		t.Fatal("ожидали ошибку Redis")
	}
}
