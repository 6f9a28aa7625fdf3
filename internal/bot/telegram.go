package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Send(chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// FromUpdate keeps text messages only.
func FromUpdate(update tgbotapi.Update) (Incoming, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return Incoming{}, false
	}

	in := Incoming{ChatID: msg.Chat.ID, Text: msg.Text}
	if msg.IsCommand() {
		in.Command = strings.ToLower(msg.Command())
		in.Args = strings.TrimSpace(msg.CommandArguments())
	}

	return in, true
}

// Poll long-polls Telegram until ctx ends.
func Poll(ctx context.Context, api *tgbotapi.BotAPI) <-chan Incoming {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60

	return pump(ctx, api.GetUpdatesChan(cfg), api.StopReceivingUpdates)
}

// pump forwards text messages from updates until ctx ends or updates closes.
// On the way out it calls stop and keeps draining updates until the source
// closes it, so the sender is never left blocked.
func pump(ctx context.Context, updates tgbotapi.UpdatesChannel, stop func()) <-chan Incoming {
	out := make(chan Incoming)

	go func() {
		defer close(out)
		defer func() {
			stop()
			go func() {
				for range updates {
				}
			}()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				in, ok := FromUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- in:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
