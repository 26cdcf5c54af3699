package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"chatlog-bot/internal/bot"
	"chatlog-bot/internal/config"
	"chatlog-bot/internal/logger"
	"chatlog-bot/internal/repository"
	"chatlog-bot/internal/service"
)

func main() {
	initOnly := flag.Bool("init", false, "create the database schema and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init(false)
		log.Fatal().Err(err).Msg("config")
	}
	logger.Init(cfg.Debug)

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	store := repository.NewStore(db)
	defer store.Close()

	if *initOnly {
		log.Info().Str("database", cfg.DatabaseURL).Msg("database schema ready")
		return
	}

	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_TOKEN is required")
	}

	statsSvc := service.NewStatsService()
	telegramBot, err := bot.New(cfg.TelegramToken, store, statsSvc, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	scheduler := service.NewSchedulerService(time.UTC)
	if cfg.DigestInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.DigestInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("digest")
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("schedule digests")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Info().Msg("chatlog bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
