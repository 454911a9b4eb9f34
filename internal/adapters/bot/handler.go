package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-roulette-bot/internal/adapters/telegram"
	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/infra/metrics"
	"tg-roulette-bot/internal/usecase/activity"
	"tg-roulette-bot/internal/usecase/dispatch"
)

// Handler обрабатывает апдейты Telegram: фильтр, учёт активности и команды.
type Handler struct {
	messenger  domain.Messenger
	dispatcher *dispatch.Dispatcher
	tracker    *activity.Tracker
	members    *activity.Members
	filter     *Filter
	username   string
	log        zerolog.Logger
	now        func() time.Time
}

// NewHandler создаёт обработчик. members и filter могут быть nil.
func NewHandler(messenger domain.Messenger, dispatcher *dispatch.Dispatcher, tracker *activity.Tracker, members *activity.Members, filter *Filter, botUsername string, log zerolog.Logger) *Handler {
	return &Handler{
		messenger:  messenger,
		dispatcher: dispatcher,
		tracker:    tracker,
		members:    members,
		filter:     filter,
		username:   strings.TrimPrefix(botUsername, "@"),
		log:        log,
		now:        time.Now,
	}
}

// HandleUpdate обрабатывает входящий апдейт. Ошибки и паники не выходят за пределы апдейта.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	log := h.log.With().Int("update", upd.UpdateID).Str("trace", uuid.NewString()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("паника при обработке апдейта")
		}
	}()

	if upd.MyChatMember != nil {
		h.handleMembership(log, upd.MyChatMember)
		return
	}
	msg := upd.Message
	if msg == nil {
		return
	}
	h.handleMessage(log.WithContext(ctx), msg)
}

func (h *Handler) handleMembership(log zerolog.Logger, upd *tgbotapi.ChatMemberUpdated) {
	switch upd.NewChatMember.Status {
	case "left", "kicked":
		h.tracker.Forget(upd.Chat.ID)
		if h.members != nil {
			h.members.Forget(upd.Chat.ID)
		}
		log.Info().Int64("chat", upd.Chat.ID).Str("status", upd.NewChatMember.Status).Msg("бот покинул чат, данные чата удалены")
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	log := zerolog.Ctx(ctx)
	if msg.Chat == nil {
		return
	}
	in := inbound(msg, h.now())

	if reason, ok := h.filter.Match(msg); ok {
		metrics.FilteredMessagesTotal.Inc()
		if err := h.messenger.DeleteMessage(ctx, in.ChatID, in.MessageID); err != nil {
			log.Warn().Err(err).Int64("chat", in.ChatID).Int("message", in.MessageID).Str("reason", reason).Msg("не удалось удалить сообщение бота")
			return
		}
		log.Info().Int64("chat", in.ChatID).Int("message", in.MessageID).Str("reason", reason).Msg("сообщение бота удалено")
		return
	}

	if msg.From != nil && !in.SenderIsBot {
		h.tracker.Touch(in.ChatID, in.ReceivedAt)
		if h.members != nil && in.ChatType.IsGroup() {
			h.members.Observe(in.ChatID, telegram.CandidateFromUser(msg.From))
		}
	}

	token, args, ok := dispatch.ParseCommand(in.Text, h.username)
	if !ok {
		return
	}
	h.runCommand(ctx, in, token, args)
}

func (h *Handler) runCommand(ctx context.Context, in domain.InboundMessage, token, args string) {
	log := zerolog.Ctx(ctx).With().Str("command", token).Int64("chat", in.ChatID).Int64("user", in.SenderID).Logger()
	inv := domain.Invocation{
		Command:    token,
		Args:       args,
		ChatID:     in.ChatID,
		ChatType:   in.ChatType,
		CallerID:   in.SenderID,
		CallerName: in.SenderName,
		MessageID:  in.MessageID,
		At:         h.now(),
	}

	out, err := h.dispatcher.Dispatch(ctx, inv)
	switch {
	case errors.Is(err, domain.ErrUnknownCommand):
		log.Debug().Msg("неизвестная команда")
		return
	case err != nil:
		metrics.ObserveCommand(token, "error")
		log.Warn().Err(err).Msg("команда завершилась ошибкой")
	default:
		metrics.ObserveCommand(token, "ok")
		log.Info().Msg("команда выполнена")
	}

	if out.Text == "" {
		return
	}
	if err := h.messenger.SendText(ctx, in.ChatID, out.Text, in.MessageID); err != nil {
		metrics.BotSendErrors.Inc()
		log.Error().Err(err).Msg("не удалось отправить ответ")
	}
}

func inbound(msg *tgbotapi.Message, now time.Time) domain.InboundMessage {
	in := domain.InboundMessage{
		ChatID:     msg.Chat.ID,
		ChatType:   domain.ChatType(msg.Chat.Type),
		MessageID:  msg.MessageID,
		Text:       msg.Text,
		ReceivedAt: now,
	}
	if msg.From != nil {
		in.SenderID = msg.From.ID
		in.SenderUsername = msg.From.UserName
		in.SenderName = telegram.CandidateFromUser(msg.From).DisplayName()
		in.SenderIsBot = msg.From.IsBot
	}
	return in
}

// WebhookHandler принимает апдейты от Telegram по HTTP.
func (h *Handler) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var upd tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			h.log.Warn().Err(err).Msg("некорректный апдейт в вебхуке")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), upd)
		w.WriteHeader(http.StatusOK)
	})
}
