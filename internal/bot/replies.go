package bot

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Philanthropists/inbox-otp-bot/internal/extract"
)

const (
	welcomeReply = "Welcome! I'm your bot. Use /help to see available commands."
	helpReply    = `Here are the available commands:
/start - Start the bot
/help - Show this help message
/status - Get the bot status
/fetch - Fetch the latest email (you'll need to provide your email)
/otp - Fetch the latest one-time code (you'll need to provide your email)`
	statusReply         = "The bot is running and ready to assist you!"
	fetchPromptReply    = "Please provide your email address to fetch the latest email."
	otpPromptReply      = "Please send /otp followed by your email address, for example: /otp you@gmail.com"
	unknownCommandReply = "Unknown command. Use /help to see available commands."
	unrecognizedReply   = "Sorry, the provided email address is not recognized. Please try again with a valid email."
	rateLimitedReply    = "Too many requests, please wait a moment and try again."
	notFoundReply       = "No new email found or your inbox is empty."
	otpNotFoundReply    = "No OTP code found in your recent emails."
)

const sentAtLayout = "2006-01-02 15:04:05"

func acknowledgeReply(address string, mode extract.Mode) string {
	if mode == extract.LatestOtp {
		return fmt.Sprintf("Email '%s' recognized. Looking for your latest OTP code...", address)
	}
	return fmt.Sprintf("Email '%s' recognized. Fetching your latest email...", address)
}

type formatter struct {
	location *time.Location
	maxRunes int
}

func (f formatter) result(result extract.Result, found bool, mode extract.Mode) string {
	if !found {
		if mode == extract.LatestOtp {
			return otpNotFoundReply
		}
		return notFoundReply
	}

	var text string
	if mode == extract.LatestOtp {
		text = "Latest OTP: " + result.Content
	} else {
		text = "Latest Email Content:\n\n" + f.truncate(result.Content)
	}

	if result.HasSentAt() {
		sentAt := result.SentAt
		if f.location != nil {
			sentAt = sentAt.In(f.location)
		}
		text += "\n\nSent on: " + sentAt.Format(sentAtLayout)
	}

	return text
}

func (f formatter) truncate(s string) string {
	if f.maxRunes <= 0 || utf8.RuneCountInString(s) <= f.maxRunes {
		return s
	}

	runes := []rune(s)
	return string(runes[:f.maxRunes]) + "…"
}
