package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BotCommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Количество обработанных команд бота",
	}, []string{"command", "status"})

	IdleNotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idle_notifications_total",
		Help: "Уведомления о простое чата",
	}, []string{"status"})

	TrackedChats = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracked_chats",
		Help: "Количество чатов, за активностью которых следит бот",
	})

	ModerationActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_actions_total",
		Help: "Результаты команды рулетки",
	}, []string{"result"})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	FilteredMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filtered_messages_total",
		Help: "Сообщения, удалённые фильтром ботов",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BotCommandsTotal,
		IdleNotificationsTotal,
		TrackedChats,
		ModerationActionsTotal,
		BotSendErrors,
		FilteredMessagesTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveCommand увеличивает счётчик команды с итоговым статусом.
func ObserveCommand(command, status string) {
	if command == "" {
		command = "unknown"
	}
	BotCommandsTotal.WithLabelValues(command, status).Inc()
}

// ObserveModeration фиксирует результат рулетки.
func ObserveModeration(result string) {
	ModerationActionsTotal.WithLabelValues(result).Inc()
}

// ObserveIdleNotification фиксирует попытку отправить сообщение о простое.
func ObserveIdleNotification(err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	IdleNotificationsTotal.WithLabelValues(status).Inc()
}
