package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"guestbot/internal/alert"
	"guestbot/internal/auth"
	"guestbot/internal/bot"
	"guestbot/internal/config"
	"guestbot/internal/db"
	"guestbot/internal/directory"
	httpx "guestbot/internal/http"
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

	if created, err := auth.EnsureAdmin(ctx, gdb, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		lg.Fatal("ensure admin", "err", err)
	} else if created {
		lg.Info("admin account created", "username", cfg.AdminUsername)
	}

	tg := telegram.New(cfg.TelegramAPIURL, cfg.BotToken)
	alerter := &alert.Telegram{Sender: tg, ChatID: cfg.LogsChatID, Log: lg}
	users := &directory.Repo{DB: gdb}
	pushRepo := &pushes.Repo{DB: gdb}

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "guestbot-" + uuid.NewString()
	}
	worker := pushes.NewWorker(pushRepo, users, tg, alerter, lg, pushes.Options{
		WorkerID:     workerID,
		PollInterval: cfg.PollInterval,
		SendTimeout:  cfg.SendTimeout,
		Concurrency:  cfg.Concurrency,
		RatePerSec:   cfg.RatePerSec,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	if cfg.ReapStaleAfter > 0 {
		reaper := &pushes.Reaper{Store: pushRepo, StaleAfter: cfg.ReapStaleAfter, Alerter: alerter, Log: lg}
		stop, err := reaper.Start(ctx)
		if err != nil {
			lg.Fatal("start reaper", "err", err)
		}
		defer stop()
	}

	if cfg.BotPolling {
		b, err := bot.New(cfg.BotToken, cfg.TelegramAPIURL, users, lg)
		if err != nil {
			lg.Fatal("bot init", "err", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(ctx)
		}()
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(cfg, gdb, jwtSvc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("http server", "err", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	// the worker finishes the job it holds before returning
	wg.Wait()
}
