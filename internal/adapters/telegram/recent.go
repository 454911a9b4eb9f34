package telegram

import (
	"context"

	"tg-roulette-bot/internal/domain"
)

// RecentSource отдаёт недавних авторов сообщений в чате.
type RecentSource interface {
	Recent(chatID int64) []domain.Candidate
}

// AdminSource отдаёт администраторов чата.
type AdminSource interface {
	Administrators(ctx context.Context, chatID int64) ([]domain.Candidate, error)
}

// RecentLister — запасной источник участников, когда MTProto не настроен.
// Bot API не отдаёт полный список, поэтому берутся недавние авторы, а админы помечаются по getChatAdministrators.
type RecentLister struct {
	recent RecentSource
	admins AdminSource
}

// NewRecentLister создаёт источник участников поверх Bot API.
func NewRecentLister(recent RecentSource, admins AdminSource) *RecentLister {
	return &RecentLister{recent: recent, admins: admins}
}

// ListMembers реализует domain.MemberLister.
func (l *RecentLister) ListMembers(ctx context.Context, chatID int64) ([]domain.Candidate, error) {
	admins, err := l.admins.Administrators(ctx, chatID)
	if err != nil {
		return nil, err
	}
	adminIDs := make(map[int64]struct{}, len(admins))
	for _, a := range admins {
		adminIDs[a.UserID] = struct{}{}
	}

	recent := l.recent.Recent(chatID)
	out := make([]domain.Candidate, 0, len(recent)+len(admins))
	for _, c := range recent {
		if _, ok := adminIDs[c.UserID]; ok {
			c.IsAdmin = true
		}
		out = append(out, c)
	}
	return append(out, admins...), nil
}

var _ domain.MemberLister = (*RecentLister)(nil)
