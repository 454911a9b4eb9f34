package activity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/infra/metrics"
)

// MonitorConfig задаёт параметры периодической проверки простоя.
type MonitorConfig struct {
	Threshold time.Duration
	Interval  time.Duration
	// Retention — через сколько тишины чат перестаёт отслеживаться. 0 отключает вытеснение.
	Retention time.Duration
	Text      string
	Window    Window
}

// Monitor раз в Interval ищет простаивающие чаты и пишет в них сообщение.
type Monitor struct {
	tracker   *Tracker
	messenger domain.Messenger
	events    domain.BusinessMetricRepo
	cfg       MonitorConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewMonitor создаёт монитор. events может быть nil.
func NewMonitor(tracker *Tracker, messenger domain.Messenger, events domain.BusinessMetricRepo, cfg MonitorConfig, logger zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Monitor{
		tracker:   tracker,
		messenger: messenger,
		events:    events,
		cfg:       cfg,
		log:       logger,
		now:       time.Now,
	}
}

// Run выполняет проверки до отмены контекста.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Info().
		Dur("interval", m.cfg.Interval).
		Dur("threshold", m.cfg.Threshold).
		Str("window", m.cfg.Window.String()).
		Msg("монитор простоя запущен")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("монитор простоя остановлен")
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx, m.now())
		}
	}
}

// Tick выполняет одну проверку и возвращает количество отправленных уведомлений.
// Вне разрешённого окна состояние чатов не меняется.
func (m *Monitor) Tick(ctx context.Context, now time.Time) int {
	defer func() { metrics.TrackedChats.Set(float64(m.tracker.Len())) }()

	if !m.cfg.Window.Contains(now) {
		return 0
	}

	sent := 0
	for _, chatID := range m.tracker.Chats() {
		if ctx.Err() != nil {
			break
		}
		status, episode := m.tracker.claim(chatID, now, m.cfg.Threshold)
		if status != Idle {
			continue
		}
		if m.notify(ctx, chatID, episode, now) {
			sent++
		}
	}

	if m.cfg.Retention > 0 {
		if evicted := m.tracker.EvictIdle(now.Add(-m.cfg.Retention)); evicted > 0 {
			m.log.Debug().Int("evicted", evicted).Msg("вытеснены давно молчащие чаты")
		}
	}
	return sent
}

func (m *Monitor) notify(ctx context.Context, chatID int64, episode, now time.Time) bool {
	err := m.messenger.SendText(ctx, chatID, m.cfg.Text, 0)
	metrics.ObserveIdleNotification(err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		if errors.Is(err, domain.ErrChatUnavailable) {
			m.tracker.Forget(chatID)
			m.log.Warn().Err(err).Int64("chat", chatID).Msg("чат недоступен, отслеживание прекращено")
			return false
		}
		m.tracker.rearm(chatID, episode)
		m.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение о простое")
		return false
	}

	m.log.Info().Int64("chat", chatID).Time("last_message_at", episode).Msg("отправлено сообщение о простое")
	if m.events != nil {
		id := chatID
		metric := domain.BusinessMetric{
			Event:      domain.BusinessMetricEventIdleNotified,
			ChatID:     &id,
			Metadata:   map[string]any{"silent_for": now.Sub(episode).String()},
			OccurredAt: now,
		}
		if err := m.events.RecordBusinessMetric(ctx, metric); err != nil {
			m.log.Warn().Err(err).Int64("chat", chatID).Msg("не удалось сохранить событие простоя")
		}
	}
	return true
}
