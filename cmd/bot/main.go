package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gotd/td/session"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	botadapter "tg-roulette-bot/internal/adapters/bot"
	"tg-roulette-bot/internal/adapters/mtproto"
	"tg-roulette-bot/internal/adapters/repo"
	"tg-roulette-bot/internal/adapters/telegram"
	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/infra/cache"
	"tg-roulette-bot/internal/infra/config"
	"tg-roulette-bot/internal/infra/db"
	apphttp "tg-roulette-bot/internal/infra/http"
	"tg-roulette-bot/internal/infra/log"
	"tg-roulette-bot/internal/infra/metrics"
	"tg-roulette-bot/internal/usecase/activity"
	"tg-roulette-bot/internal/usecase/cooldown"
	"tg-roulette-bot/internal/usecase/dispatch"
	"tg-roulette-bot/internal/usecase/moderation"
	"tg-roulette-bot/internal/usecase/phrases"
	"tg-roulette-bot/internal/usecase/ratelimit"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		logger.Fatal().Err(err).Msg("бот остановлен с ошибкой")
	}
	logger.Info().Msg("бот остановлен")
}

func run(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("часовой пояс: %w", err)
	}
	window, err := activity.ParseWindow(cfg.Idle.WindowStart, cfg.Idle.WindowEnd, loc)
	if err != nil {
		return fmt.Errorf("окно уведомлений: %w", err)
	}
	phraseSource, err := phrases.Load(cfg.PhrasesFile)
	if err != nil {
		return err
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("создание бота: %w", err)
	}
	logger.Info().Str("username", botAPI.Self.UserName).Int("phrases", phraseSource.Len()).Msg("бот авторизован")
	tgClient := telegram.NewClient(botAPI, botAPI.Self.ID)

	var (
		pg     *repo.Postgres
		audit  domain.ModerationLog
		events domain.BusinessMetricRepo
	)
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("подключение к БД: %w", err)
		}
		defer pool.Close()
		pg = repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("схема БД: %w", err)
		}
		audit, events = pg, pg
	}

	var guard domain.CooldownGuard = cooldown.New()
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("подключение к Redis: %w", err)
		}
		defer rdb.Close()
		guard = cache.NewRedisCooldown(rdb, cfg.Moderation.CooldownKey)
		logger.Info().Str("key", cfg.Moderation.CooldownKey).Msg("перезарядка рулетки хранится в Redis")
	}

	tracker := activity.NewTracker()
	recent := activity.NewMembers(activity.DefaultMembersPerChat)

	var (
		lister   domain.MemberLister = telegram.NewRecentLister(recent, tgClient)
		mtClient *mtproto.Client
	)
	if cfg.MTProtoEnabled() {
		var storage session.Storage = &session.FileStorage{Path: cfg.MTProto.SessionFile}
		if pg != nil {
			storage = repo.NewSessionStorage(pg, cfg.MTProto.SessionName)
		}
		mtLog := log.Component(logger, "mtproto")
		mtClient = mtproto.NewClient(cfg.Telegram.APIID, cfg.Telegram.APIHash, storage, mtLog)
		lister = mtproto.NewMembers(mtClient.API, mtLog)
	}

	roulette := moderation.NewService(
		moderation.NewResolver(lister),
		moderation.NewSelector(),
		guard,
		tgClient,
		audit,
		events,
		moderation.Config{Cooldown: cfg.Moderation.Cooldown, Restriction: cfg.Moderation.Restriction},
		log.Component(logger, "moderation"),
	)

	dispatcher := dispatch.New()
	commands := botadapter.NewCommands(phraseSource, ratelimit.New(cfg.PingInterval), roulette, tgClient, log.Component(logger, "commands"))
	if err := commands.Register(dispatcher); err != nil {
		return fmt.Errorf("регистрация команд: %w", err)
	}
	setCommandMenu(botAPI, dispatcher, logger)

	handler := botadapter.NewHandler(tgClient, dispatcher, tracker, recent, botadapter.NewFilter(cfg.BlockedBotUsername), botAPI.Self.UserName, log.Component(logger, "bot"))
	monitor := activity.NewMonitor(tracker, tgClient, events, activity.MonitorConfig{
		Threshold: cfg.Idle.Threshold,
		Interval:  cfg.Idle.Interval,
		Retention: cfg.Idle.Retention,
		Text:      cfg.Idle.Message,
		Window:    window,
	}, log.Component(logger, "activity"))
	server := apphttp.NewServer(log.Component(logger, "http"), registry)

	// Маршрут вебхука регистрируется до запуска сервера: chi не допускает изменения дерева во время обслуживания.
	if cfg.WebhookMode() {
		webhook := apphttp.WebhookSecretMiddleware(cfg.Telegram.WebhookSecret)(handler.WebhookHandler())
		if err := server.Mount(cfg.Telegram.WebhookPath, webhook); err != nil {
			return fmt.Errorf("маршрут вебхука: %w", err)
		}
		if err := setWebhook(botAPI, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			return err
		}
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("вебхук установлен")
	} else if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn().Err(err).Msg("не удалось снять вебхук")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return server.Start(cfg.HTTPAddr) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if mtClient != nil {
		g.Go(func() error { return mtClient.Run(gctx) })
	}
	if !cfg.WebhookMode() {
		g.Go(func() error { return poll(gctx, botAPI, handler, cfg.Telegram.PollTimeout, cfg.Telegram.Workers, logger) })
	}

	logger.Info().Str("window", window.String()).Dur("threshold", cfg.Idle.Threshold).Bool("webhook", cfg.WebhookMode()).Bool("mtproto", mtClient != nil).Msg("бот запущен")
	return g.Wait()
}

// poll читает апдейты long polling и обрабатывает их не более чем в workers горутинах.
func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, handler *botadapter.Handler, timeout, workers int, logger zerolog.Logger) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	updates := botAPI.GetUpdatesChan(u)

	var pool errgroup.Group
	pool.SetLimit(workers)
	defer func() { _ = pool.Wait() }()

	logger.Info().Int("workers", workers).Msg("long polling запущен")
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			pool.Go(func() error {
				handler.HandleUpdate(ctx, upd)
				return nil
			})
		}
	}
}

func setWebhook(botAPI *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := botAPI.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("установка вебхука: %w", err)
	}
	return nil
}

func setCommandMenu(botAPI *tgbotapi.BotAPI, dispatcher *dispatch.Dispatcher, logger zerolog.Logger) {
	var menu []tgbotapi.BotCommand
	for _, cmd := range dispatcher.Commands() {
		menu = append(menu, tgbotapi.BotCommand{Command: cmd.Token, Description: cmd.Description})
	}
	if _, err := botAPI.Request(tgbotapi.NewSetMyCommands(menu...)); err != nil {
		logger.Warn().Err(err).Msg("не удалось обновить меню команд")
	}
}
