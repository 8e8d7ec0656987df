package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"xlog/internal/app"
	"xlog/internal/auth"
	"xlog/internal/config"
	"xlog/internal/llm"
	"xlog/internal/logger"
	"xlog/internal/relay"
	"xlog/internal/scheduler"
	"xlog/internal/telegram"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg, closer, err := logger.New(logger.Options{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		Output:   cfg.LogOutput,
		FilePath: cfg.LogFilePath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init logger")
	}
	defer closer.Close()
	if envErr != nil {
		lg.Warn().Err(envErr).Msg(".env file not found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error().Err(err).Msg("bot stopped with error")
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	sessions, err := a.Sessions(ctx)
	if err != nil {
		return err
	}
	model, err := llm.New(cfg)
	if err != nil {
		return err
	}

	rl := relay.New(a.Assembler, model, a.Transcript, a.Registry, relay.Options{
		ContextLimit: cfg.ContextLimit,
		Location:     a.Location,
	}, lg.With().Str("component", "relay").Logger())

	sched := scheduler.New(cfg.WarmupSchedule, a.Location, lg.With().Str("component", "scheduler").Logger())
	sched.SetWarmupFunction(func(ctx context.Context, day time.Time) { rl.Warmup(ctx, day) })
	sched.RunNow()
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	bot, err := telegram.New(cfg.TelegramBotToken, telegram.Deps{
		Auth:        auth.New(cfg.AllowedUsers),
		Sessions:    sessions,
		Registry:    a.Registry,
		Files:       a.Files,
		Transcript:  a.Transcript,
		Relay:       rl,
		RecentLimit: cfg.ContextLimit,
	}, lg.With().Str("component", "telegram").Logger())
	if err != nil {
		return err
	}

	lg.Info().Strs("profiles", a.Registry.Names()).Msg("bot started")
	bot.Start(ctx)
	lg.Info().Msg("bot stopped")
	return nil
}
