package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gotd/td/session"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"tg-roulette-bot/internal/adapters/mtproto"
	"tg-roulette-bot/internal/adapters/repo"
	"tg-roulette-bot/internal/infra/config"
	"tg-roulette-bot/internal/infra/db"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		phone       string
		sessionName string
		filePath    string
		toFile      bool
	)
	flag.StringVar(&phone, "phone", cfg.MTProto.Phone, "Номер телефона аккаунта в международном формате")
	flag.StringVar(&sessionName, "name", cfg.MTProto.SessionName, "Имя сессии в базе данных")
	flag.StringVar(&filePath, "file", cfg.MTProto.SessionFile, "Файл сессии, если база данных не используется")
	flag.BoolVar(&toFile, "to-file", false, "Сохранить сессию в файл даже при заданном PG_DSN")
	flag.Parse()

	if !cfg.MTProtoEnabled() {
		log.Fatal().Msg("mtproto-login: нужны TG_API_ID и TG_API_HASH")
	}
	if phone == "" {
		log.Fatal().Msg("mtproto-login: укажите номер телефона (-phone или MTPROTO_PHONE)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var storage session.Storage = &session.FileStorage{Path: filePath}
	target := filePath
	if cfg.PGDSN != "" && !toFile {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mtproto-login: не удалось подключиться к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("mtproto-login: не удалось подготовить схему")
		}
		storage = repo.NewSessionStorage(pg, sessionName)
		target = "postgres:" + sessionName
	} else if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		log.Fatal().Err(err).Msg("mtproto-login: не удалось создать каталог сессии")
	}

	stdin := bufio.NewReader(os.Stdin)
	code := func(context.Context) (string, error) {
		fmt.Print("Код из Telegram: ")
		line, err := stdin.ReadString('\n')
		return strings.TrimSpace(line), err
	}
	password := readPassword()

	user, err := mtproto.Login(ctx, cfg.Telegram.APIID, cfg.Telegram.APIHash, storage, phone, password, code)
	if err != nil {
		log.Fatal().Err(err).Msg("mtproto-login: авторизация не удалась")
	}
	fmt.Printf("Сессия аккаунта %d (@%s) сохранена: %s\n", user.ID, user.Username, target)
}

// readPassword спрашивает пароль 2FA без эха. Пустой ввод означает, что 2FA не включена.
func readPassword() string {
	if v := os.Getenv("MTPROTO_PASSWORD"); v != "" {
		return v
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ""
	}
	fmt.Print("Пароль 2FA (Enter, если не задан): ")
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		log.Fatal().Err(err).Msg("mtproto-login: не удалось прочитать пароль")
	}
	return strings.TrimSpace(string(raw))
}

