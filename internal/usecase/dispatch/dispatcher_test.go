package dispatch

import (
	"context"
	"errors"
	"testing"

	"tg-roulette-bot/internal/domain"
)

func echo(text string) HandlerFunc {
	return func(context.Context, domain.Invocation) (domain.Outcome, error) {
		return domain.Reply(text), nil
	}
}

func TestDispatchRoutesByToken(t *testing.T) {
	d := New()
	d.MustRegister(
		Command{Token: "ping", Handler: echo("pong")},
		Command{Token: "/Help", Handler: echo("help")},
	)

	out, err := d.Dispatch(context.Background(), domain.Invocation{Command: "ping"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out.Text != "pong" {
		t.Fatalf("ожидали pong, получили %q", out.Text)
	}
	out, err = d.Dispatch(context.Background(), domain.Invocation{Command: "HELP"})
	if err != nil || out.Text != "help" {
		t.Fatalf("ожидали help, получили %q, %v", out.Text, err)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := New()
	if _, err := d.Dispatch(context.Background(), domain.Invocation{Command: "nope"}); !errors.Is(err, domain.ErrUnknownCommand) {
		t.Fatalf("ожидали ErrUnknownCommand, получили %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	d := New()
	if err := d.Register(Command{Token: "ping", Handler: echo("a")}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := d.Register(Command{Token: "PING", Handler: echo("b")}); !errors.Is(err, domain.ErrDuplicateCommand) {
		t.Fatalf("ожидали ErrDuplicateCommand, получили %v", err)
	}
}

func TestRegisterInvalid(t *testing.T) {
	d := New()
	for _, cmd := range []Command{
		{Token: "", Handler: echo("")},
		{Token: "with space", Handler: echo("")},
		{Token: "ok"},
	} {
		if err := d.Register(cmd); !errors.Is(err, domain.ErrInvalidCommand) {
			t.Fatalf("%q: ожидали ErrInvalidCommand, получили %v", cmd.Token, err)
		}
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("ожидали панику")
		}
	}()
	New().MustRegister(Command{Token: "a", Handler: echo("")}, Command{Token: "a", Handler: echo("")})
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := New()
	d.MustRegister(Command{Token: "boom", Handler: func(context.Context, domain.Invocation) (domain.Outcome, error) {
		panic("кончились патроны")
	}})
	if _, err := d.Dispatch(context.Background(), domain.Invocation{Command: "boom"}); err == nil {
		t.Fatal("ожидали ошибку после паники")
	}
}

func TestCommandsOrder(t *testing.T) {
	d := New()
	d.MustRegister(
		Command{Token: "start", Handler: echo("")},
		Command{Token: "help", Handler: echo("")},
		Command{Token: "ping", Handler: echo("")},
	)
	cmds := d.Commands()
	if len(cmds) != 3 || cmds[0].Token != "start" || cmds[2].Token != "ping" {
		t.Fatalf("неожиданный порядок команд: %+v", cmds)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text      string
		wantToken string
		wantArgs  string
		wantOK    bool
	}{
		{text: "/ping", wantToken: "ping", wantOK: true},
		{text: "/Kill_Random@RouletteBot", wantToken: "kill_random", wantOK: true},
		{text: "/ping@otherbot", wantOK: false},
		{text: "/help some args", wantToken: "help", wantArgs: "some args", wantOK: true},
		{text: "/ping\nвторая строка", wantToken: "ping", wantArgs: "вторая строка", wantOK: true},
		{text: "просто текст", wantOK: false},
		{text: "/", wantOK: false},
	}
	for _, tt := range tests {
		token, args, ok := ParseCommand(tt.text, "roulettebot")
		if ok != tt.wantOK || token != tt.wantToken || args != tt.wantArgs {
			t.Fatalf("ParseCommand(%q) = %q, %q, %v", tt.text, token, args, ok)
		}
	}
}
