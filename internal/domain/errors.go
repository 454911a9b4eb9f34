package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownCommand        = errors.New("неизвестная команда")
	ErrInvalidCommand        = errors.New("некорректное имя команды")
	ErrDuplicateCommand      = errors.New("команда уже зарегистрирована")
	ErrNotAGroupChat         = errors.New("команда доступна только в групповых чатах")
	ErrOnCooldown            = errors.New("команда на перезарядке")
	ErrMembershipQueryFailed = errors.New("не удалось получить участников чата")
	ErrNoEligibleCandidates  = errors.New("нет подходящих участников")
	ErrModerationFailed      = errors.New("не удалось ограничить участника")
	ErrBotNotAdmin           = errors.New("бот не администратор чата")
	ErrBotCannotRestrict     = errors.New("у бота нет права ограничивать участников")
	ErrChatUnavailable       = errors.New("чат недоступен для бота")
	ErrNoPhrases             = errors.New("список фраз пуст")
)

// CooldownError возвращается, если глобальная перезарядка ещё не истекла.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: осталось %s", ErrOnCooldown, e.Remaining.Round(time.Second))
}

// Is позволяет сравнивать ошибку с ErrOnCooldown через errors.Is.
func (e *CooldownError) Is(target error) bool {
	return target == ErrOnCooldown
}
