package activity

import (
	"sync"

	"tg-roulette-bot/internal/domain"
)

// DefaultMembersPerChat — сколько последних авторов хранится на чат.
const DefaultMembersPerChat = 100

// Members запоминает недавних авторов сообщений в группах.
type Members struct {
	mu    sync.Mutex
	limit int
	chats map[int64]*recentSet
}

type recentSet struct {
	order []int64
	users map[int64]domain.Candidate
}

// NewMembers создаёт хранилище с ограничением limit на чат.
func NewMembers(limit int) *Members {
	if limit <= 0 {
		limit = DefaultMembersPerChat
	}
	return &Members{limit: limit, chats: make(map[int64]*recentSet)}
}

// Observe обновляет данные автора и переносит его в конец очереди.
func (m *Members) Observe(chatID int64, user domain.Candidate) {
	if user.UserID == 0 || user.IsBot {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.chats[chatID]
	if !ok {
		set = &recentSet{users: make(map[int64]domain.Candidate)}
		m.chats[chatID] = set
	}
	if _, seen := set.users[user.UserID]; seen {
		for i, id := range set.order {
			if id == user.UserID {
				set.order = append(set.order[:i], set.order[i+1:]...)
				break
			}
		}
	}
	set.order = append(set.order, user.UserID)
	set.users[user.UserID] = user
	for len(set.order) > m.limit {
		oldest := set.order[0]
		set.order = set.order[1:]
		delete(set.users, oldest)
	}
}

// Recent возвращает копию недавних авторов, от старых к новым.
func (m *Members) Recent(chatID int64) []domain.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.chats[chatID]
	if !ok {
		return nil
	}
	out := make([]domain.Candidate, 0, len(set.order))
	for _, id := range set.order {
		out = append(out, set.users[id])
	}
	return out
}

// Forget удаляет данные чата.
func (m *Members) Forget(chatID int64) {
	m.mu.Lock()
	delete(m.chats, chatID)
	m.mu.Unlock()
}
