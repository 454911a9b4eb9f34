package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	ChatID     *int64
	UserID     *int64
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventModerationPerformed фиксирует успешное ограничение участника рулеткой.
	BusinessMetricEventModerationPerformed = "moderation_performed"
	// BusinessMetricEventIdleNotified фиксирует отправку сообщения о мёртвом чате.
	BusinessMetricEventIdleNotified = "idle_notified"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
