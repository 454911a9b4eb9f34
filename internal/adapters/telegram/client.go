package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/infra/metrics"
)

// BotAPI — часть tgbotapi.BotAPI, которая нужна клиенту.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

// Client реализует отправку сообщений и модерацию через Bot API.
type Client struct {
	api   BotAPI
	botID int64
}

var (
	_ domain.Messenger = (*Client)(nil)
	_ domain.Moderator = (*Client)(nil)
)

// NewClient создаёт клиента. botID нужен для проверки прав самого бота.
func NewClient(api BotAPI, botID int64) *Client {
	return &Client{api: api, botID: botID}
}

// SendText отправляет текст, разбивая его на части по лимиту Telegram.
// Ответом на replyTo делается только первая часть.
func (c *Client) SendText(_ context.Context, chatID int64, text string, replyTo int) error {
	for i, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 && replyTo > 0 {
			msg.ReplyToMessageID = replyTo
			msg.AllowSendingWithoutReply = true
		}
		start := time.Now()
		_, err := c.api.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return classify(err)
		}
	}
	return nil
}

// DeleteMessage удаляет сообщение.
func (c *Client) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	start := time.Now()
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	metrics.ObserveNetworkRequest("telegram_bot", "delete_message", strconv.FormatInt(chatID, 10), start, err)
	return classify(err)
}

// RestrictMember запрещает участнику писать до until.
func (c *Client) RestrictMember(_ context.Context, chatID, userID int64, until time.Time) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        until.Unix(),
		Permissions:      &tgbotapi.ChatPermissions{},
	}
	start := time.Now()
	_, err := c.api.Request(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", "restrict_member", strconv.FormatInt(chatID, 10), start, err)
	return classify(err)
}

// BotRights возвращает права бота в чате.
func (c *Client) BotRights(_ context.Context, chatID int64) (domain.BotRights, error) {
	start := time.Now()
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: c.botID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_member", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return domain.BotRights{}, classify(err)
	}
	return rightsOf(member), nil
}

// Administrators возвращает администраторов чата как кандидатов с IsAdmin.
func (c *Client) Administrators(_ context.Context, chatID int64) ([]domain.Candidate, error) {
	start := time.Now()
	admins, err := c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_administrators", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]domain.Candidate, 0, len(admins))
	for _, m := range admins {
		if m.User == nil {
			continue
		}
		cand := CandidateFromUser(m.User)
		cand.IsAdmin = true
		out = append(out, cand)
	}
	return out, nil
}

func rightsOf(m tgbotapi.ChatMember) domain.BotRights {
	if m.IsCreator() {
		return domain.BotRights{IsAdmin: true, CanRestrictMembers: true, CanDeleteMessages: true}
	}
	if !m.IsAdministrator() {
		return domain.BotRights{}
	}
	return domain.BotRights{
		IsAdmin:            true,
		CanRestrictMembers: m.CanRestrictMembers,
		CanDeleteMessages:  m.CanDeleteMessages,
	}
}

// CandidateFromUser переводит пользователя Bot API в доменного кандидата.
func CandidateFromUser(u *tgbotapi.User) domain.Candidate {
	return domain.Candidate{
		UserID:    u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}

// classify помечает ошибки, после которых писать в чат бессмысленно.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		if apiErr.Code == 403 || strings.Contains(msg, "chat not found") || strings.Contains(msg, "bot was kicked") {
			return fmt.Errorf("%w: %w", domain.ErrChatUnavailable, err)
		}
	}
	return err
}
