package domain

import (
	"context"
	"time"
)

// Messenger отправляет сообщения в чаты.
type Messenger interface {
	// SendText отправляет текст в чат. replyTo > 0 делает сообщение ответом.
	SendText(ctx context.Context, chatID int64, text string, replyTo int) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Moderator применяет ограничения к участникам через API платформы.
type Moderator interface {
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	BotRights(ctx context.Context, chatID int64) (BotRights, error)
}

// MemberLister возвращает полный список участников чата без фильтрации.
type MemberLister interface {
	ListMembers(ctx context.Context, chatID int64) ([]Candidate, error)
}

// CooldownGuard реализует глобальную перезарядку модерационного действия.
type CooldownGuard interface {
	// Acquire атомарно проверяет окно перезарядки и, если оно истекло, занимает его.
	// При отказе возвращает оставшееся время и ok=false.
	Acquire(ctx context.Context, now time.Time, cooldown time.Duration) (remaining time.Duration, ok bool, err error)
}

// ModerationLog сохраняет историю модерационных действий.
type ModerationLog interface {
	RecordModeration(ctx context.Context, action ModerationAction) error
}

// PhraseSource отдаёт случайную фразу.
type PhraseSource interface {
	Random() string
}
