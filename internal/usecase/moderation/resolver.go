package moderation

import (
	"context"
	"fmt"

	"tg-roulette-bot/internal/domain"
)

// Eligible оставляет участников, подходящих для рулетки, без повторов.
func Eligible(members []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(members))
	seen := make(map[int64]struct{}, len(members))
	for _, m := range members {
		if m.UserID == 0 || !m.Eligible() {
			continue
		}
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Resolver получает участников чата и отбирает кандидатов.
type Resolver struct {
	lister domain.MemberLister
}

// NewResolver создаёт резолвер поверх источника участников.
func NewResolver(lister domain.MemberLister) *Resolver {
	return &Resolver{lister: lister}
}

// ResolveEligible возвращает кандидатов группового чата.
func (r *Resolver) ResolveEligible(ctx context.Context, chatID int64, chatType domain.ChatType) ([]domain.Candidate, error) {
	if !chatType.IsGroup() {
		return nil, domain.ErrNotAGroupChat
	}
	members, err := r.lister.ListMembers(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMembershipQueryFailed, err)
	}
	return Eligible(members), nil
}
