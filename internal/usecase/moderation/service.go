package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/infra/metrics"
)

// Config задаёт параметры рулетки.
type Config struct {
	Cooldown    time.Duration
	Restriction time.Duration
}

// Result описывает успешное ограничение.
type Result struct {
	Target     domain.Candidate
	Until      time.Time
	Candidates int
}

// Service реализует команду случайного ограничения участника.
type Service struct {
	resolver  *Resolver
	selector  *Selector
	guard     domain.CooldownGuard
	moderator domain.Moderator
	audit     domain.ModerationLog
	events    domain.BusinessMetricRepo
	cfg       Config
	log       zerolog.Logger
}

// NewService создаёт сервис рулетки. audit и events могут быть nil.
func NewService(resolver *Resolver, selector *Selector, guard domain.CooldownGuard, moderator domain.Moderator, audit domain.ModerationLog, events domain.BusinessMetricRepo, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		resolver:  resolver,
		selector:  selector,
		guard:     guard,
		moderator: moderator,
		audit:     audit,
		events:    events,
		cfg:       cfg,
		log:       logger,
	}
}

// KillRandom ограничивает случайного участника группы.
// Перезарядка расходуется при успешном захвате и не возвращается при ошибке ограничения.
func (s *Service) KillRandom(ctx context.Context, inv domain.Invocation) (Result, error) {
	result, err := s.killRandom(ctx, inv)
	metrics.ObserveModeration(resultLabel(err))
	return result, err
}

func (s *Service) killRandom(ctx context.Context, inv domain.Invocation) (Result, error) {
	if !inv.ChatType.IsGroup() {
		return Result{}, domain.ErrNotAGroupChat
	}

	rights, err := s.moderator.BotRights(ctx, inv.ChatID)
	if err != nil {
		return Result{}, fmt.Errorf("проверка прав бота: %w", err)
	}
	if !rights.IsAdmin {
		return Result{}, domain.ErrBotNotAdmin
	}
	if !rights.CanRestrictMembers {
		return Result{}, domain.ErrBotCannotRestrict
	}

	now := inv.At
	if now.IsZero() {
		now = time.Now()
	}
	remaining, ok, err := s.guard.Acquire(ctx, now, s.cfg.Cooldown)
	if err != nil {
		return Result{}, fmt.Errorf("перезарядка: %w", err)
	}
	if !ok {
		return Result{}, &domain.CooldownError{Remaining: remaining}
	}

	candidates, err := s.resolver.ResolveEligible(ctx, inv.ChatID, inv.ChatType)
	if err != nil {
		return Result{}, err
	}
	target, err := s.selector.Select(candidates)
	if err != nil {
		return Result{}, err
	}

	until := now.Add(s.cfg.Restriction)
	if err := s.moderator.RestrictMember(ctx, inv.ChatID, target.UserID, until); err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrModerationFailed, err)
	}

	s.log.Info().
		Int64("chat", inv.ChatID).
		Int64("user", inv.CallerID).
		Int64("target", target.UserID).
		Int("candidates", len(candidates)).
		Time("until", until).
		Msg("участник ограничен рулеткой")

	s.record(ctx, inv, target, len(candidates), now, until)
	return Result{Target: target, Until: until, Candidates: len(candidates)}, nil
}

func (s *Service) record(ctx context.Context, inv domain.Invocation, target domain.Candidate, candidates int, now, until time.Time) {
	if s.audit != nil {
		action := domain.ModerationAction{
			ChatID:       inv.ChatID,
			ActorID:      inv.CallerID,
			TargetUserID: target.UserID,
			TargetName:   target.DisplayName(),
			Candidates:   candidates,
			Duration:     s.cfg.Restriction,
			Until:        until,
			CreatedAt:    now,
		}
		if err := s.audit.RecordModeration(ctx, action); err != nil {
			s.log.Warn().Err(err).Int64("chat", inv.ChatID).Msg("не удалось сохранить запись модерации")
		}
	}
	if s.events != nil {
		chatID, userID := inv.ChatID, target.UserID
		metric := domain.BusinessMetric{
			Event:      domain.BusinessMetricEventModerationPerformed,
			ChatID:     &chatID,
			UserID:     &userID,
			Metadata:   map[string]any{"actor_id": inv.CallerID, "candidates": candidates},
			OccurredAt: now,
		}
		if err := s.events.RecordBusinessMetric(ctx, metric); err != nil {
			s.log.Warn().Err(err).Int64("chat", inv.ChatID).Msg("не удалось сохранить событие модерации")
		}
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "restricted"
	case errors.Is(err, domain.ErrNotAGroupChat):
		return "not_group"
	case errors.Is(err, domain.ErrBotNotAdmin), errors.Is(err, domain.ErrBotCannotRestrict):
		return "no_rights"
	case errors.Is(err, domain.ErrOnCooldown):
		return "cooldown"
	case errors.Is(err, domain.ErrMembershipQueryFailed):
		return "members_failed"
	case errors.Is(err, domain.ErrNoEligibleCandidates):
		return "no_candidates"
	case errors.Is(err, domain.ErrModerationFailed):
		return "restrict_failed"
	default:
		return "error"
	}
}
