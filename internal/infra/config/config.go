package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"prod"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	Timezone string `envconfig:"BOT_TIMEZONE" default:"Europe/Moscow"`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN" required:"true"`
		WebhookURL    string `envconfig:"TG_WEBHOOK_URL"`
		WebhookPath   string `envconfig:"TG_WEBHOOK_PATH" default:"/bot/webhook"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
		PollTimeout   int    `envconfig:"TG_POLL_TIMEOUT" default:"30"`
		Workers       int    `envconfig:"TG_UPDATE_WORKERS" default:"8"`
		APIID         int    `envconfig:"TG_API_ID"`
		APIHash       string `envconfig:"TG_API_HASH"`
	} `envconfig:""`

	MTProto struct {
		SessionFile string `envconfig:"MTPROTO_SESSION_FILE" default:"data/mtproto-session.json"`
		SessionName string `envconfig:"MTPROTO_SESSION_NAME" default:"default"`
		Phone       string `envconfig:"MTPROTO_PHONE"`
	} `envconfig:""`

	PhrasesFile string `envconfig:"PHRASES_FILE" default:"data/phrases.json"`

	Idle struct {
		Threshold   time.Duration `envconfig:"IDLE_THRESHOLD" default:"15m"`
		Interval    time.Duration `envconfig:"IDLE_CHECK_INTERVAL" default:"1m"`
		WindowStart string        `envconfig:"IDLE_WINDOW_START" default:"09:00"`
		WindowEnd   string        `envconfig:"IDLE_WINDOW_END" default:"21:00"`
		Message     string        `envconfig:"IDLE_MESSAGE" default:"💀 dead chat"`
		Retention   time.Duration `envconfig:"IDLE_RETENTION" default:"720h"`
	} `envconfig:""`

	Moderation struct {
		Cooldown    time.Duration `envconfig:"MODERATION_COOLDOWN" default:"1h"`
		Restriction time.Duration `envconfig:"MODERATION_RESTRICTION" default:"3h"`
		CooldownKey string        `envconfig:"MODERATION_COOLDOWN_KEY" default:"bot:kill_random:cooldown"`
	} `envconfig:""`

	PingInterval       time.Duration `envconfig:"PING_INTERVAL" default:"1s"`
	BlockedBotUsername string        `envconfig:"BLOCKED_BOT_USERNAME"`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает и проверяет конфиг без завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate проверяет значения, которые envconfig не может проверить сам.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("TG_BOT_TOKEN не задан"))
	}
	durations := map[string]time.Duration{
		"IDLE_THRESHOLD":         c.Idle.Threshold,
		"IDLE_CHECK_INTERVAL":    c.Idle.Interval,
		"MODERATION_COOLDOWN":    c.Moderation.Cooldown,
		"MODERATION_RESTRICTION": c.Moderation.Restriction,
	}
	for _, name := range []string{"IDLE_THRESHOLD", "IDLE_CHECK_INTERVAL", "MODERATION_COOLDOWN", "MODERATION_RESTRICTION"} {
		if durations[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s должен быть положительным", name))
		}
	}
	if c.Idle.Retention < 0 {
		errs = append(errs, errors.New("IDLE_RETENTION не может быть отрицательным"))
	}
	if c.PingInterval < 0 {
		errs = append(errs, errors.New("PING_INTERVAL не может быть отрицательным"))
	}
	if c.Telegram.PollTimeout <= 0 {
		errs = append(errs, errors.New("TG_POLL_TIMEOUT должен быть положительным"))
	}
	if c.Telegram.Workers <= 0 {
		errs = append(errs, errors.New("TG_UPDATE_WORKERS должен быть положительным"))
	}
	if c.Telegram.APIID != 0 && c.Telegram.APIHash == "" {
		errs = append(errs, errors.New("TG_API_HASH обязателен вместе с TG_API_ID"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("BOT_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location возвращает часовой пояс бота.
func (c AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// WebhookMode сообщает, нужно ли принимать апдейты через вебхук.
func (c AppConfig) WebhookMode() bool {
	return c.Telegram.WebhookURL != ""
}

// MTProtoEnabled сообщает, заданы ли ключи приложения для пользовательской сессии.
func (c AppConfig) MTProtoEnabled() bool {
	return c.Telegram.APIID != 0 && c.Telegram.APIHash != ""
}
