// Command pushworker runs only the push claim loop. Start as many as needed
// against the same database.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"guestbot/internal/alert"
	"guestbot/internal/config"
	"guestbot/internal/db"
	"guestbot/internal/directory"
	"guestbot/internal/logger"
	"guestbot/internal/pushes"
	"guestbot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("db connect", "err", err)
	}
	defer func() { _ = db.Close(gdb) }()
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		lg.Fatal("db migrate", "err", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "pushworker-" + uuid.NewString()
	}
	tg := telegram.New(cfg.TelegramAPIURL, cfg.BotToken)
	alerter := &alert.Telegram{Sender: tg, ChatID: cfg.LogsChatID, Log: lg}

	worker := pushes.NewWorker(&pushes.Repo{DB: gdb}, &directory.Repo{DB: gdb}, tg, alerter, lg, pushes.Options{
		WorkerID:     workerID,
		PollInterval: cfg.PollInterval,
		SendTimeout:  cfg.SendTimeout,
		Concurrency:  cfg.Concurrency,
		RatePerSec:   cfg.RatePerSec,
	})
	worker.Run(ctx)
}
