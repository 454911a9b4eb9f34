package cooldown

import (
	"context"
	"sync"
	"time"

	"tg-roulette-bot/internal/domain"
)

// Guard — глобальная перезарядка в памяти процесса.
type Guard struct {
	mu         sync.Mutex
	lastAction time.Time
	used       bool
}

// New создаёт перезарядку, которая ещё ни разу не занималась.
func New() *Guard {
	return &Guard{}
}

// TryAcquire занимает окно перезарядки, если оно истекло.
func (g *Guard) TryAcquire(now time.Time, cooldown time.Duration) bool {
	_, ok := g.acquire(now, cooldown)
	return ok
}

// Acquire реализует domain.CooldownGuard.
func (g *Guard) Acquire(_ context.Context, now time.Time, cooldown time.Duration) (time.Duration, bool, error) {
	remaining, ok := g.acquire(now, cooldown)
	return remaining, ok, nil
}

// Remaining возвращает время до конца окна без изменения состояния.
func (g *Guard) Remaining(now time.Time, cooldown time.Duration) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining(now, cooldown)
}

func (g *Guard) acquire(now time.Time, cooldown time.Duration) (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if left := g.remaining(now, cooldown); left > 0 {
		return left, false
	}
	g.lastAction = now
	g.used = true
	return 0, true
}

func (g *Guard) remaining(now time.Time, cooldown time.Duration) time.Duration {
	if !g.used {
		return 0
	}
	left := g.lastAction.Add(cooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

var _ domain.CooldownGuard = (*Guard)(nil)
