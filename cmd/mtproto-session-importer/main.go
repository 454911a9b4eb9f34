package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gotd/td/session"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tg-roulette-bot/internal/adapters/repo"
	"tg-roulette-bot/internal/infra/config"
	"tg-roulette-bot/internal/infra/db"
)

func main() {
	_ = godotenv.Load()

	var (
		filePath    string
		sessionName string
	)
	flag.StringVar(&filePath, "file", "", "Путь к файлу сессии gotd (результат mtproto-login -to-file)")
	flag.StringVar(&sessionName, "name", "", "Имя сессии в базе данных (по умолчанию MTPROTO_SESSION_NAME)")
	flag.Parse()

	if filePath == "" {
		log.Fatal().Msg("mtproto-importer: укажите файл сессии (-file)")
	}

	cfg := config.Load()
	if cfg.PGDSN == "" {
		log.Fatal().Msg("mtproto-importer: нужен PG_DSN")
	}
	if sessionName == "" {
		sessionName = cfg.MTProto.SessionName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loader := session.Loader{Storage: &session.FileStorage{Path: filePath}}
	data, err := loader.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("mtproto-importer: файл не похож на сессию gotd")
	}
	raw, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("mtproto-importer: не удалось прочитать файл сессии")
	}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("mtproto-importer: не удалось подключиться к БД")
	}
	defer pool.Close()

	pg := repo.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("mtproto-importer: не удалось подготовить схему")
	}
	if err := pg.StoreMTProtoSession(ctx, sessionName, raw); err != nil {
		log.Fatal().Err(err).Msg("mtproto-importer: не удалось сохранить сессию")
	}

	fmt.Printf("Сессия %q (DC %d, %d байт) сохранена в базе данных\n", sessionName, data.DC, len(raw))
}
