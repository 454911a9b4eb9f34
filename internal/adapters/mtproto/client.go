package mtproto

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
)

// ErrNotAuthorized возвращается, если в хранилище нет авторизованной пользовательской сессии.
var ErrNotAuthorized = errors.New("MTProto-сессия не авторизована, запустите mtproto-login")

// Client держит подключение gotd и отдаёт raw API после авторизации.
type Client struct {
	client *telegram.Client
	log    zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewClient создаёт MTProto клиента поверх хранилища сессии.
func NewClient(apiID int, apiHash string, storage session.Storage, log zerolog.Logger) *Client {
	return &Client{
		client: telegram.NewClient(apiID, apiHash, telegram.Options{SessionStorage: storage}),
		log:    log,
		ready:  make(chan struct{}),
	}
}

// Run подключается и держит соединение до отмены контекста.
func (c *Client) Run(ctx context.Context) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("статус авторизации: %w", err)
		}
		if !status.Authorized {
			return ErrNotAuthorized
		}
		if status.User != nil {
			c.log.Info().Int64("user", status.User.ID).Str("username", status.User.Username).Msg("MTProto сессия подключена")
		}
		c.readyOnce.Do(func() { close(c.ready) })
		<-ctx.Done()
		return ctx.Err()
	})
}

// API ждёт готовности подключения и возвращает клиента raw API.
func (c *Client) API(ctx context.Context) (RawAPI, error) {
	select {
	case <-c.ready:
		return c.client.API(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("MTProto не готов: %w", ctx.Err())
	}
}

// CodePrompt запрашивает у оператора код подтверждения.
type CodePrompt func(ctx context.Context) (string, error)

// Login проходит интерактивную авторизацию и сохраняет сессию в хранилище клиента.
func Login(ctx context.Context, apiID int, apiHash string, storage session.Storage, phone, password string, code CodePrompt) (*tg.User, error) {
	client := telegram.NewClient(apiID, apiHash, telegram.Options{SessionStorage: storage})
	var self *tg.User
	err := client.Run(ctx, func(ctx context.Context) error {
		codeAuth := auth.CodeAuthenticatorFunc(func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
			return code(ctx)
		})
		flow := auth.NewFlow(auth.Constant(phone, password, codeAuth), auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("авторизация: %w", err)
		}
		user, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("получение профиля: %w", err)
		}
		self = user
		return nil
	})
	return self, err
}
