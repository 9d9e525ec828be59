package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akozlov/spendbot/internal/bot"
	"github.com/akozlov/spendbot/internal/charts"
	"github.com/akozlov/spendbot/internal/config"
	"github.com/akozlov/spendbot/internal/dialog"
	"github.com/akozlov/spendbot/internal/gate"
	"github.com/akozlov/spendbot/internal/logging"
	"github.com/akozlov/spendbot/internal/repository"
	"github.com/akozlov/spendbot/internal/scheduler"
	"github.com/akozlov/spendbot/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logging.Setup(cfg.LogLevel)

	repo, closeRepo, err := newRepository(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeRepo()

	tracker := service.NewExpenseTracker(repo)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal(err)
	}

	var g gate.Gate = gate.AllowAll{}
	if cfg.RequiredChannel != "" {
		g = gate.NewChannelGate(api, cfg.RequiredChannel)
	}

	engine := dialog.NewEngine(tracker, dialog.NewStore(), charts.NewGenerator())
	b := bot.NewBot(api, engine, g)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reminder := scheduler.NewReminder(repo, b, cfg.ReminderHour)
	go reminder.Run(ctx)

	if err := b.Start(ctx); err != nil {
		log.Fatal(err)
	}
}

func newRepository(cfg *config.Config) (repository.Repository, func(), error) {
	if cfg.SupabaseURL != "" {
		repo, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}

	repo, err := repository.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { repo.Close() }, nil
}
