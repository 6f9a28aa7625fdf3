package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Philanthropists/inbox-otp-bot/internal/bot"
	"github.com/Philanthropists/inbox-otp-bot/internal/config"
	"github.com/Philanthropists/inbox-otp-bot/internal/fetch"
	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
	"github.com/Philanthropists/inbox-otp-bot/internal/metrics"
)

var GitCommit string

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) {
	log := logger.GetLogger()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Infow("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Metrics server stopped", "error", err)
		}
	}()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Configure(cfg.Log); err != nil {
		log.Fatal(err)
	}
	log := logger.GetLogger()
	defer func() { _ = log.Sync() }()

	log.Infow("Starting bot",
		"commit", GitCommit,
		"addresses", cfg.Credentials.Len(),
		"fetchTimeout", cfg.FetchTimeout.String(),
		"maxConcurrent", cfg.MaxConcurrentRequests,
	)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalw("Could not connect to Telegram", "error", err)
	}
	log.Infow("Authorized on Telegram", "username", api.Self.UserName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		serveMetrics(ctx, cfg.MetricsAddr, m)
	}

	handler := bot.NewHandler(cfg, fetch.NewFetcher(m), bot.NewTelegramSender(api), m)
	dispatcher := bot.NewDispatcher(handler, cfg.FetchTimeout, cfg.MaxConcurrentRequests)

	if err := dispatcher.Run(ctx, bot.Poll(ctx, api)); err != nil {
		log.Errorw("Dispatcher stopped", "error", err)
	}
	log.Info("Bot stopped")
}
