package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedUsers ограничивает число пользователей, для которых хранится лимитер.
const maxTrackedUsers = 4096

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter пропускает не больше одного вызова пользователя за интервал.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	users    map[int64]*entry
}

// New создаёт лимитер с интервалом между вызовами.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, users: make(map[int64]*entry)}
}

// Allow сообщает, можно ли выполнить вызов сейчас. При отказе возвращает время ожидания.
func (l *Limiter) Allow(userID int64, now time.Time) (bool, time.Duration) {
	if l.interval <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.users[userID]
	if !ok {
		l.prune(now)
		e = &entry{limiter: rate.NewLimiter(rate.Every(l.interval), 1)}
		l.users[userID] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := e.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Len возвращает количество отслеживаемых пользователей.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

func (l *Limiter) prune(now time.Time) {
	if len(l.users) < maxTrackedUsers {
		return
	}
	for id, e := range l.users {
		if now.Sub(e.lastSeen) >= l.interval {
			delete(l.users, id)
		}
	}
	for len(l.users) >= maxTrackedUsers {
		for id := range l.users {
			delete(l.users, id)
			break
		}
	}
}
