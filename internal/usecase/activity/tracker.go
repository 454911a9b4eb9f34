package activity

import (
	"sort"
	"sync"
	"time"
)

// Status — результат проверки простоя чата.
type Status int

const (
	// NotIdle — чат активен либо уведомление за текущий эпизод простоя уже выдано.
	NotIdle Status = iota
	// Idle — чат простаивает, и уведомление за этот эпизод ещё не выдавалось.
	Idle
)

func (s Status) String() string {
	if s == Idle {
		return "idle"
	}
	return "not_idle"
}

type record struct {
	mu            sync.Mutex
	lastMessageAt time.Time
	notified      bool
}

// Tracker хранит время последней активности по чатам.
// Блокировки всегда берутся в порядке: карта, затем запись чата.
type Tracker struct {
	mu    sync.RWMutex
	chats map[int64]*record
}

// NewTracker создаёт пустой трекер.
func NewTracker() *Tracker {
	return &Tracker{chats: make(map[int64]*record)}
}

// Touch фиксирует активность в чате и открывает новый эпизод.
func (t *Tracker) Touch(chatID int64, now time.Time) {
	t.mu.RLock()
	rec, ok := t.chats[chatID]
	if ok {
		rec.touch(now)
		t.mu.RUnlock()
		return
	}
	t.mu.RUnlock()

	t.mu.Lock()
	rec, ok = t.chats[chatID]
	if !ok {
		rec = &record{}
		t.chats[chatID] = rec
	}
	rec.touch(now)
	t.mu.Unlock()
}

func (r *record) touch(now time.Time) {
	r.mu.Lock()
	if now.After(r.lastMessageAt) {
		r.lastMessageAt = now
	}
	r.notified = false
	r.mu.Unlock()
}

// CheckIdle возвращает Idle не более одного раза за эпизод простоя.
func (t *Tracker) CheckIdle(chatID int64, now time.Time, threshold time.Duration) Status {
	status, _ := t.claim(chatID, now, threshold)
	return status
}

// claim выполняет проверку и отметку атомарно и возвращает начало эпизода.
func (t *Tracker) claim(chatID int64, now time.Time, threshold time.Duration) (Status, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.chats[chatID]
	if !ok {
		return NotIdle, time.Time{}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.notified || now.Sub(rec.lastMessageAt) < threshold {
		return NotIdle, time.Time{}
	}
	rec.notified = true
	return Idle, rec.lastMessageAt
}

// rearm снимает отметку эпизода, если с момента claim в чате не было активности.
func (t *Tracker) rearm(chatID int64, episode time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.chats[chatID]
	if !ok {
		return false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.notified || !rec.lastMessageAt.Equal(episode) {
		return false
	}
	rec.notified = false
	return true
}

// LastSeen возвращает время последней активности в чате.
func (t *Tracker) LastSeen(chatID int64) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.chats[chatID]
	if !ok {
		return time.Time{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.lastMessageAt, true
}

// Chats возвращает снимок отслеживаемых чатов.
func (t *Tracker) Chats() []int64 {
	t.mu.RLock()
	ids := make([]int64, 0, len(t.chats))
	for id := range t.chats {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len возвращает количество отслеживаемых чатов.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chats)
}

// Forget прекращает отслеживание чата.
func (t *Tracker) Forget(chatID int64) {
	t.mu.Lock()
	delete(t.chats, chatID)
	t.mu.Unlock()
}

// EvictIdle удаляет чаты без активности с olderThan и возвращает их количество.
func (t *Tracker) EvictIdle(olderThan time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for id, rec := range t.chats {
		rec.mu.Lock()
		stale := rec.lastMessageAt.Before(olderThan)
		rec.mu.Unlock()
		if stale {
			delete(t.chats, id)
			evicted++
		}
	}
	return evicted
}
