package domain

import (
	"strconv"
	"strings"
	"time"
)

// ChatType описывает тип чата Telegram.
type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

// IsGroup сообщает, является ли чат групповым.
func (t ChatType) IsGroup() bool {
	return t == ChatTypeGroup || t == ChatTypeSupergroup
}

// InboundMessage — входящее сообщение, приведённое к доменному виду.
type InboundMessage struct {
	ChatID         int64
	ChatType       ChatType
	MessageID      int
	SenderID       int64
	SenderUsername string
	SenderName     string
	SenderIsBot    bool
	Text           string
	ReceivedAt     time.Time
}

// Candidate — участник чата, которого можно выбрать для ограничения.
type Candidate struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
	IsDeleted bool
	IsAdmin   bool
}

// Eligible сообщает, подходит ли участник для рулетки.
func (c Candidate) Eligible() bool {
	return !c.IsBot && !c.IsDeleted && !c.IsAdmin
}

// DisplayName возвращает @username или полное имя участника.
func (c Candidate) DisplayName() string {
	if c.Username != "" {
		return "@" + c.Username
	}
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name == "" {
		return "id" + strconv.FormatInt(c.UserID, 10)
	}
	return name
}

// Invocation — контекст вызова команды.
type Invocation struct {
	Command    string
	Args       string
	ChatID     int64
	ChatType   ChatType
	CallerID   int64
	CallerName string
	MessageID  int
	At         time.Time
}

// Outcome — результат обработки команды.
type Outcome struct {
	// Text отправляется ответом на сообщение с командой. Пустой текст означает отсутствие ответа.
	Text string
}

// Reply создаёт Outcome с текстом ответа.
func Reply(text string) Outcome {
	return Outcome{Text: text}
}

// BotRights описывает права бота в чате.
type BotRights struct {
	IsAdmin            bool
	CanRestrictMembers bool
	CanDeleteMessages  bool
}

// ModerationAction — запись об ограничении участника.
type ModerationAction struct {
	ChatID       int64
	ActorID      int64
	TargetUserID int64
	TargetName   string
	Candidates   int
	Duration     time.Duration
	Until        time.Time
	CreatedAt    time.Time
}
