package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-roulette-bot/internal/domain"
	"tg-roulette-bot/internal/usecase/activity"
	"tg-roulette-bot/internal/usecase/dispatch"
)

type sentText struct {
	chatID  int64
	text    string
	replyTo int
}

type fakeMessenger struct {
	sent    []sentText
	deleted []int
	sendErr error
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string, replyTo int) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentText{chatID: chatID, text: text, replyTo: replyTo})
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

type handlerFixture struct {
	handler   *Handler
	messenger *fakeMessenger
	tracker   *activity.Tracker
	members   *activity.Members
	calls     []domain.Invocation
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	fx := &handlerFixture{
		messenger: &fakeMessenger{},
		tracker:   activity.NewTracker(),
		members:   activity.NewMembers(10),
	}
	d := dispatch.New()
	d.MustRegister(
		dispatch.Command{Token: "echo", Description: "эхо", Handler: func(_ context.Context, inv domain.Invocation) (domain.Outcome, error) {
			fx.calls = append(fx.calls, inv)
			return domain.Reply("эхо: " + inv.Args), nil
		}},
		dispatch.Command{Token: "boom", Description: "паника", Handler: func(context.Context, domain.Invocation) (domain.Outcome, error) {
			panic("сломалось")
		}},
		dispatch.Command{Token: "fail", Description: "ошибка", Handler: func(context.Context, domain.Invocation) (domain.Outcome, error) {
			return domain.Reply("не вышло"), errors.New("ошибка команды")
		}},
	)
	fx.handler = NewHandler(fx.messenger, d, fx.tracker, fx.members, NewFilter("spambot"), "roulette_bot", zerolog.Nop())
	fx.handler.now = func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC) }
	return fx
}

func groupMessage(id int, from *tgbotapi.User, text string, at time.Time) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: id, Message: &tgbotapi.Message{
		MessageID: id,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: -100, Type: "supergroup"},
		Date:      int(at.Unix()),
		Text:      text,
	}}
}

func TestHandleUpdateTouchesActivity(t *testing.T) {
	fx := newFixture(t)
	// Дата Telegram округлена до секунды и может отставать, активность считается по времени получения.
	sent := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	fx.handler.HandleUpdate(context.Background(), groupMessage(1, &tgbotapi.User{ID: 7, FirstName: "Петя"}, "привет", sent))

	want := fx.handler.now()
	last, ok := fx.tracker.LastSeen(-100)
	if !ok || !last.Equal(want) {
		t.Fatalf("ожидали активность в %v, получили %v (ok=%v)", want, last, ok)
	}
	if recent := fx.members.Recent(-100); len(recent) != 1 || recent[0].UserID != 7 {
		t.Fatalf("автор должен попасть в недавних участников: %+v", recent)
	}
	if len(fx.messenger.sent) != 0 {
		t.Fatal("обычное сообщение не требует ответа")
	}
}

func TestHandleUpdateIgnoresBotsForActivity(t *testing.T) {
	fx := newFixture(t)
	fx.handler.HandleUpdate(context.Background(), groupMessage(1, &tgbotapi.User{ID: 8, IsBot: true, UserName: "goodbot"}, "бип", time.Now()))
	if _, ok := fx.tracker.LastSeen(-100); ok {
		t.Fatal("сообщения ботов не считаются активностью")
	}
}

func TestHandleUpdateDispatchesCommand(t *testing.T) {
	fx := newFixture(t)
	fx.handler.HandleUpdate(context.Background(), groupMessage(5, &tgbotapi.User{ID: 7}, "/echo@roulette_bot раз два", time.Now()))

	if len(fx.calls) != 1 {
		t.Fatalf("ожидали один вызов команды, получили %d", len(fx.calls))
	}
	inv := fx.calls[0]
	if inv.Command != "echo" || inv.Args != "раз два" || inv.CallerID != 7 || inv.ChatType != domain.ChatTypeSupergroup {
		t.Fatalf("неверный контекст вызова: %+v", inv)
	}
	if len(fx.messenger.sent) != 1 {
		t.Fatalf("ожидали один ответ, получили %d", len(fx.messenger.sent))
	}
	if got := fx.messenger.sent[0]; got.replyTo != 5 || got.text != "эхо: раз два" {
		t.Fatalf("неверный ответ: %+v", got)
	}
}

func TestHandleUpdateCommandIsolation(t *testing.T) {
	fx := newFixture(t)
	from := &tgbotapi.User{ID: 7}

	fx.handler.HandleUpdate(context.Background(), groupMessage(1, from, "/unknown", time.Now()))
	fx.handler.HandleUpdate(context.Background(), groupMessage(2, from, "/boom", time.Now()))
	fx.handler.HandleUpdate(context.Background(), groupMessage(3, from, "/fail", time.Now()))
	fx.handler.HandleUpdate(context.Background(), groupMessage(4, from, "/echo@other_bot", time.Now()))
	fx.handler.HandleUpdate(context.Background(), groupMessage(5, from, "/echo", time.Now()))

	if len(fx.calls) != 1 {
		t.Fatalf("после неизвестной команды и паники бот должен продолжать работу, вызовов %d", len(fx.calls))
	}
	if len(fx.messenger.sent) != 2 {
		t.Fatalf("ожидали ответ на /fail и /echo, получили %d", len(fx.messenger.sent))
	}
	if fx.messenger.sent[0].text != "не вышло" {
		t.Fatalf("текст ошибки команды должен уйти пользователю, получили %q", fx.messenger.sent[0].text)
	}
}

func TestHandleUpdateFiltersBlockedBot(t *testing.T) {
	fx := newFixture(t)
	upd := groupMessage(9, &tgbotapi.User{ID: 7}, "/echo", time.Now())
	upd.Message.ViaBot = &tgbotapi.User{ID: 500, IsBot: true, UserName: "spambot"}

	fx.handler.HandleUpdate(context.Background(), upd)

	if len(fx.messenger.deleted) != 1 || fx.messenger.deleted[0] != 9 {
		t.Fatalf("сообщение должно быть удалено: %v", fx.messenger.deleted)
	}
	if len(fx.calls) != 0 {
		t.Fatal("после удаления обработка сообщения прекращается")
	}
	if _, ok := fx.tracker.LastSeen(-100); ok {
		t.Fatal("удалённое сообщение не считается активностью")
	}
}

func TestHandleUpdateBotLeftForgetsChat(t *testing.T) {
	fx := newFixture(t)
	fx.handler.HandleUpdate(context.Background(), groupMessage(1, &tgbotapi.User{ID: 7}, "привет", time.Now()))

	fx.handler.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 2, MyChatMember: &tgbotapi.ChatMemberUpdated{
		Chat:          tgbotapi.Chat{ID: -100, Type: "supergroup"},
		NewChatMember: tgbotapi.ChatMember{Status: "kicked"},
	}})

	if _, ok := fx.tracker.LastSeen(-100); ok {
		t.Fatal("чат должен быть забыт после удаления бота")
	}
	if len(fx.members.Recent(-100)) != 0 {
		t.Fatal("недавние участники должны быть забыты")
	}
}

func TestWebhookHandler(t *testing.T) {
	fx := newFixture(t)
	h := fx.handler.WebhookHandler()

	body := `{"update_id":1,"message":{"message_id":3,"date":1709290000,"chat":{"id":-100,"type":"group"},"from":{"id":7,"is_bot":false,"first_name":"Петя"},"text":"/echo hi"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if len(fx.calls) != 1 || fx.calls[0].Args != "hi" {
		t.Fatalf("апдейт из вебхука должен быть обработан: %+v", fx.calls)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидали 400 на битый JSON, получили %d", rec.Code)
	}
}
