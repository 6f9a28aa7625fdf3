package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Philanthropists/inbox-otp-bot/internal/bot"
	"github.com/Philanthropists/inbox-otp-bot/internal/config"
	"github.com/Philanthropists/inbox-otp-bot/internal/fetch"
	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
	"github.com/Philanthropists/inbox-otp-bot/internal/metrics"
)

var GitCommit string

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Configure(cfg.Log); err != nil {
		log.Fatal(err)
	}
	log := logger.GetLogger()
	log.Infow("Starting webhook", "commit", GitCommit)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalw("Could not connect to Telegram", "error", err)
	}

	m := metrics.New()
	handler := bot.NewHandler(cfg, fetch.NewFetcher(m), bot.NewTelegramSender(api), m)

	lambda.Start(bot.NewWebhook(handler, cfg.WebhookSecret, cfg.FetchTimeout).Handle)
}
