package bot

import (
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Причины удаления сообщения фильтром.
const (
	ReasonFromBot    = "from_user"
	ReasonForwarded  = "forward_from"
	ReasonViaBot     = "via_bot"
	ReasonMention    = "mention"
	ReasonBotCommand = "bot_command"
	ReasonReplyToBot = "reply_to_bot"
)

// Filter находит сообщения, связанные с заблокированным ботом.
type Filter struct {
	target string
}

// NewFilter создаёт фильтр. Пустое имя отключает фильтр.
func NewFilter(username string) *Filter {
	return &Filter{target: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))}
}

// Enabled сообщает, задан ли бот для блокировки.
func (f *Filter) Enabled() bool {
	return f != nil && f.target != ""
}

// Match возвращает причину, по которой сообщение нужно удалить.
func (f *Filter) Match(msg *tgbotapi.Message) (string, bool) {
	if !f.Enabled() || msg == nil {
		return "", false
	}
	if reason, ok := f.fromTarget(msg); ok {
		return reason, true
	}
	if reason, ok := f.mentionsTarget(msg); ok {
		return reason, true
	}
	if msg.ReplyToMessage != nil {
		if _, ok := f.fromTarget(msg.ReplyToMessage); ok {
			return ReasonReplyToBot, true
		}
	}
	return "", false
}

func (f *Filter) fromTarget(msg *tgbotapi.Message) (string, bool) {
	switch {
	case msg.From != nil && msg.From.IsBot && f.is(msg.From):
		return ReasonFromBot, true
	case msg.ForwardFrom != nil && msg.ForwardFrom.IsBot && f.is(msg.ForwardFrom):
		return ReasonForwarded, true
	case msg.ViaBot != nil && f.is(msg.ViaBot):
		return ReasonViaBot, true
	}
	return "", false
}

func (f *Filter) is(u *tgbotapi.User) bool {
	return strings.ToLower(u.UserName) == f.target
}

func (f *Filter) mentionsTarget(msg *tgbotapi.Message) (string, bool) {
	check := func(text string, entities []tgbotapi.MessageEntity) (string, bool) {
		if text == "" || len(entities) == 0 {
			return "", false
		}
		encoded := utf16.Encode([]rune(text))
		for _, e := range entities {
			if e.Type != "mention" && e.Type != "bot_command" {
				continue
			}
			piece, ok := entityText(encoded, e)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(piece), f.target) {
				return e.Type, true
			}
		}
		return "", false
	}
	if reason, ok := check(msg.Text, msg.Entities); ok {
		return reason, true
	}
	return check(msg.Caption, msg.CaptionEntities)
}

// entityText вырезает сущность; смещения Telegram считаются в UTF-16.
func entityText(encoded []uint16, e tgbotapi.MessageEntity) (string, bool) {
	if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(encoded) {
		return "", false
	}
	return string(utf16.Decode(encoded[e.Offset : e.Offset+e.Length])), true
}
