package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tg-roulette-bot/internal/adapters/telegram"
	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/usecase/dispatch"
	"tg-roulette-bot/internal/usecase/moderation"
	"tg-roulette-bot/internal/usecase/ratelimit"
)

// Roulette выполняет случайное ограничение участника.
type Roulette interface {
	KillRandom(ctx context.Context, inv domain.Invocation) (moderation.Result, error)
}

// RightsSource сообщает права бота в чате.
type RightsSource interface {
	BotRights(ctx context.Context, chatID int64) (domain.BotRights, error)
}

// Commands содержит обработчики команд бота.
type Commands struct {
	phrases  domain.PhraseSource
	limiter  *ratelimit.Limiter
	roulette Roulette
	rights   RightsSource
	log      zerolog.Logger

	menu func() []dispatch.Command
}

// NewCommands создаёт набор команд.
func NewCommands(phrases domain.PhraseSource, limiter *ratelimit.Limiter, roulette Roulette, rights RightsSource, log zerolog.Logger) *Commands {
	return &Commands{
		phrases:  phrases,
		limiter:  limiter,
		roulette: roulette,
		rights:   rights,
		log:      log,
	}
}

// Register регистрирует команды в диспетчере. Порядок регистрации задаёт меню бота.
func (c *Commands) Register(d *dispatch.Dispatcher) error {
	c.menu = d.Commands
	cmds := []dispatch.Command{
		{Token: "start", Description: "это сообщение", Handler: c.start},
		{Token: "ping", Description: "пинг (не чаще раза в секунду)", Handler: c.ping},
		{Token: "kill_random", Description: "замутить случайного участника (только группы)", Handler: c.killRandom},
		{Token: "can_delete", Description: "проверить право бота удалять сообщения", Handler: c.canDelete},
		{Token: "help", Description: "помощь", Handler: c.help},
	}
	for _, cmd := range cmds {
		if err := d.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (c *Commands) start(context.Context, domain.Invocation) (domain.Outcome, error) {
	return domain.Reply("На связи бот 213.\n\nДоступные команды:\n" + c.commandList()), nil
}

func (c *Commands) help(context.Context, domain.Invocation) (domain.Outcome, error) {
	return domain.Reply("📖 Помощь:\n\n" + c.commandList()), nil
}

func (c *Commands) commandList() string {
	if c.menu == nil {
		return ""
	}
	var b strings.Builder
	for i, cmd := range c.menu() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "/%s - %s", cmd.Token, cmd.Description)
	}
	return b.String()
}

func (c *Commands) ping(_ context.Context, inv domain.Invocation) (domain.Outcome, error) {
	if ok, wait := c.limiter.Allow(inv.CallerID, inv.At); !ok {
		c.log.Debug().Int64("user", inv.CallerID).Dur("wait", wait).Msg("ping отклонён лимитером")
		return domain.Reply(fmt.Sprintf("⏳ Подожди %.1f сек перед следующим запросом", wait.Seconds())), nil
	}
	return domain.Reply(c.phrases.Random()), nil
}

func (c *Commands) killRandom(ctx context.Context, inv domain.Invocation) (domain.Outcome, error) {
	res, err := c.roulette.KillRandom(ctx, inv)
	if err != nil {
		return domain.Reply(killRandomErrorText(err)), err
	}
	return domain.Reply(fmt.Sprintf("🎯 Рулетка выбрала жертву: %s\n🔇 Мут на %s",
		res.Target.DisplayName(), telegram.FormatRemaining(res.Until.Sub(inv.At)))), nil
}

func killRandomErrorText(err error) string {
	var cd *domain.CooldownError
	switch {
	case errors.As(err, &cd):
		return fmt.Sprintf("⏳ Рулетка на перезарядке.\nПопробуйте снова через %s.", telegram.FormatRemaining(cd.Remaining))
	case errors.Is(err, domain.ErrNotAGroupChat):
		return "❌ Эта команда работает только в групповых чатах"
	case errors.Is(err, domain.ErrBotNotAdmin):
		return "❌ У бота нет прав администратора для ограничения участников"
	case errors.Is(err, domain.ErrBotCannotRestrict):
		return "❌ У бота нет права ограничивать участников"
	case errors.Is(err, domain.ErrMembershipQueryFailed):
		return "❌ Не удалось получить список участников чата"
	case errors.Is(err, domain.ErrNoEligibleCandidates):
		return "⚠️ Не могу найти участников для рулетки. Бот ещё не накопил информацию об активных участниках чата."
	case errors.Is(err, domain.ErrModerationFailed):
		return "❌ Ошибка при попытке ограничить участника"
	default:
		return "❌ Произошла непредвиденная ошибка"
	}
}

func (c *Commands) canDelete(ctx context.Context, inv domain.Invocation) (domain.Outcome, error) {
	if inv.ChatType == domain.ChatTypePrivate {
		return domain.Reply("Да, в личке бот может удалять свои сообщения."), nil
	}
	rights, err := c.rights.BotRights(ctx, inv.ChatID)
	if err != nil {
		return domain.Reply("Не удалось проверить права (подробности в логах)."), fmt.Errorf("права бота: %w", err)
	}
	if rights.CanDeleteMessages {
		return domain.Reply("Да, у меня есть право удалять сообщения в этом чате."), nil
	}
	return domain.Reply("Нет прав удалять сообщения. Дайте боту 'Delete messages' в настройках админов."), nil
}
