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

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/usecase"
	"github.com/glintlab/review-responder/internal/conf"
	"github.com/glintlab/review-responder/internal/data"
	"github.com/glintlab/review-responder/internal/infra/feishu"
	"github.com/glintlab/review-responder/internal/server"
	"github.com/glintlab/review-responder/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	log.Logger = newLogger(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	apps, err := conf.LoadApps(cfg.AppsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load app config")
	}

	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)

	repos, err := data.NewRepositories(feishuClient, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create repositories")
	}
	defer repos.Review.Close()

	log.Info().Str("db", cfg.DBPath).Int("apps", len(apps)).
		Str("preferred_language", cfg.PreferredLanguage).
		Msg("review responder starting")

	composer := usecase.NewComposerUsecase(repos.AI, usecase.ComposerConfig{
		PreferredLanguage:     cfg.PreferredLanguage,
		PreferredLanguageName: cfg.PreferredLanguageName(),
	})

	appContext := func(platform domain.Platform, appID string) string {
		for _, app := range apps {
			if app.Platform == platform && app.ID == appID {
				return app.ReplyContext
			}
		}
		return ""
	}

	lifecycle := usecase.NewLifecycleUsecase(repos.Review, repos.Adapters, repos.Notifier, composer, appContext)

	configured := func(platform domain.Platform) bool {
		switch platform {
		case domain.PlatformGooglePlay:
			return cfg.GooglePlayConfigured()
		case domain.PlatformAppStore:
			return cfg.AppStoreConfigured()
		default:
			return true
		}
	}

	ingest := service.NewIngestionService(apps, repos.Adapters, repos.Review, composer, repos.Notifier, configured)
	scheduler := service.NewPollScheduler(ingest, cfg.PollInterval)

	srv := server.NewFeishuServer(feishuClient, cfg.Feishu.ChatID, cfg.PollInterval,
		repos.Review, repos.Notifier, lifecycle, ingest, scheduler)

	// Graceful shutdown: stop scheduling new passes; an in-flight pass
	// finishes its current review.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		srv.Stop()
		repos.Review.Close()
		os.Exit(0)
	}()

	// One immediate pass before the scheduler takes over
	go func() {
		log.Info().Msg("running initial review check")
		if _, err := ingest.ProcessAllApps(context.Background()); err != nil {
			log.Error().Err(err).Msg("initial review check failed (non-fatal)")
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// newLogger returns the global zerolog logger, console-formatted in dev
func newLogger(env string) zerolog.Logger {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return l
}
