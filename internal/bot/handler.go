package bot

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Philanthropists/inbox-otp-bot/internal/config"
	"github.com/Philanthropists/inbox-otp-bot/internal/extract"
	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
	"github.com/Philanthropists/inbox-otp-bot/internal/metrics"
)

// Incoming is one chat message. Command is empty for free text.
type Incoming struct {
	ChatID  int64
	Command string
	Args    string
	Text    string
}

type Sender interface {
	Send(chatID int64, text string) error
}

type MailFetcher interface {
	Fetch(ctx context.Context, address, password string, mode extract.Mode) (extract.Result, bool)
}

type Handler struct {
	credentials config.Credentials
	fetcher     MailFetcher
	sender      Sender
	limiter     *chatLimiter
	metrics     *metrics.Metrics
	format      formatter
}

func NewHandler(cfg config.Config, fetcher MailFetcher, sender Sender, m *metrics.Metrics) *Handler {
	return &Handler{
		credentials: cfg.Credentials,
		fetcher:     fetcher,
		sender:      sender,
		limiter:     newChatLimiter(cfg.RateLimitPerMinute),
		metrics:     m,
		format: formatter{
			location: cfg.DisplayLocation,
			maxRunes: cfg.MaxReplyLength,
		},
	}
}

// Handle answers one incoming message. The returned error only reports a
// reply that could not be delivered.
func (h *Handler) Handle(ctx context.Context, in Incoming) error {
	switch in.Command {
	case "":
		return h.submit(ctx, in, "text", strings.TrimSpace(in.Text), extract.LatestMessage)
	case "start":
		return h.reply(in, welcomeReply)
	case "help":
		return h.reply(in, helpReply)
	case "status":
		return h.reply(in, statusReply)
	case "fetch":
		if in.Args == "" {
			return h.reply(in, fetchPromptReply)
		}
		return h.submit(ctx, in, in.Command, in.Args, extract.LatestMessage)
	case "otp":
		if in.Args == "" {
			return h.reply(in, otpPromptReply)
		}
		return h.submit(ctx, in, in.Command, in.Args, extract.LatestOtp)
	}

	return h.reply(in, unknownCommandReply)
}

func (h *Handler) reply(in Incoming, text string) error {
	command := in.Command
	if command == "" {
		command = "text"
	}
	h.metrics.Requests.WithLabelValues(command, metrics.OutcomeReplied).Inc()

	return h.sender.Send(in.ChatID, text)
}

func (h *Handler) submit(ctx context.Context, in Incoming, command, address string, mode extract.Mode) error {
	log := logger.GetLogger().With(
		"requestId", uuid.NewString(),
		"chatId", in.ChatID,
		"command", command,
	)

	password, ok := h.credentials.Lookup(address)
	if !ok {
		log.Infow("Unrecognized email address")
		h.metrics.Requests.WithLabelValues(command, metrics.OutcomeUnrecognized).Inc()
		return h.sender.Send(in.ChatID, unrecognizedReply)
	}

	if !h.limiter.Allow(in.ChatID) {
		log.Warnw("Rate limited", "address", address)
		h.metrics.Requests.WithLabelValues(command, metrics.OutcomeRateLimited).Inc()
		return h.sender.Send(in.ChatID, rateLimitedReply)
	}

	if err := h.sender.Send(in.ChatID, acknowledgeReply(address, mode)); err != nil {
		log.Warnw("Could not acknowledge request", "error", err)
	}

	h.metrics.InFlightRequests.Inc()
	result, found := h.fetcher.Fetch(ctx, address, password, mode)
	h.metrics.InFlightRequests.Dec()

	outcome := metrics.OutcomeNotFound
	if found {
		outcome = metrics.OutcomeFound
	}
	h.metrics.Requests.WithLabelValues(command, outcome).Inc()

	log.Infow("Request handled",
		"address", address,
		"mode", mode.String(),
		"found", found,
	)

	return h.sender.Send(in.ChatID, h.format.result(result, found, mode))
}
