package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"

	"tg-roulette-bot/internal/domain"
)

// HandlerFunc обрабатывает вызов команды.
type HandlerFunc func(ctx context.Context, inv domain.Invocation) (domain.Outcome, error)

// Command описывает зарегистрированную команду.
type Command struct {
	Token       string
	Description string
	Handler     HandlerFunc
}

var tokenPattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Dispatcher сопоставляет имя команды с обработчиком.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string
}

// New создаёт пустой диспетчер.
func New() *Dispatcher {
	return &Dispatcher{commands: make(map[string]Command)}
}

// Register добавляет команду. Повторная регистрация имени — ошибка.
func (d *Dispatcher) Register(cmd Command) error {
	token := strings.ToLower(strings.TrimPrefix(cmd.Token, "/"))
	if !tokenPattern.MatchString(token) || cmd.Handler == nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCommand, cmd.Token)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.commands[token]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCommand, token)
	}
	cmd.Token = token
	d.commands[token] = cmd
	d.order = append(d.order, token)
	return nil
}

// MustRegister регистрирует команды и паникует при ошибке.
func (d *Dispatcher) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := d.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Dispatch вызывает обработчик команды синхронно.
func (d *Dispatcher) Dispatch(ctx context.Context, inv domain.Invocation) (out domain.Outcome, err error) {
	token := strings.ToLower(inv.Command)
	d.mu.RLock()
	cmd, ok := d.commands[token]
	d.mu.RUnlock()
	if !ok {
		return domain.Outcome{}, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, token)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в команде %s: %v\n%s", token, r, debug.Stack())
		}
	}()
	inv.Command = token
	return cmd.Handler(ctx, inv)
}

// Commands возвращает команды в порядке регистрации.
func (d *Dispatcher) Commands() []Command {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Command, 0, len(d.order))
	for _, token := range d.order {
		out = append(out, d.commands[token])
	}
	return out
}

// ParseCommand выделяет команду и аргументы из текста сообщения.
// Команды с упоминанием другого бота не считаются нашими.
func ParseCommand(text, botUsername string) (token, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	head = strings.TrimPrefix(head, "/")
	name, mention, addressed := strings.Cut(head, "@")
	if addressed && !strings.EqualFold(mention, strings.TrimPrefix(botUsername, "@")) {
		return "", "", false
	}
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(rest), true
}
