package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Webhook serves Telegram updates delivered through API Gateway. Each
// delivery is handled synchronously under the request timeout.
type Webhook struct {
	handler *Handler
	secret  string
	timeout time.Duration
}

func NewWebhook(handler *Handler, secret string, timeout time.Duration) *Webhook {
	return &Webhook{handler: handler, secret: secret, timeout: timeout}
}

// Handle acknowledges every well formed delivery with 200, even when the
// reply fails, so Telegram does not redeliver it.
func (w *Webhook) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := logger.GetLogger()

	if w.secret != "" && !w.authorized(req.Headers) {
		log.Warnw("Rejected webhook delivery with a bad secret token")
		return response(http.StatusUnauthorized), nil
	}

	var update tgbotapi.Update
	if err := json.Unmarshal([]byte(req.Body), &update); err != nil {
		log.Warnw("Malformed webhook delivery", "error", err)
		return response(http.StatusBadRequest), nil
	}

	in, ok := FromUpdate(update)
	if !ok {
		return response(http.StatusOK), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.handler.Handle(reqCtx, in); err != nil {
		log.Errorw("Could not deliver reply",
			"chatId", in.ChatID,
			"updateId", update.UpdateID,
			"error", err,
		)
	}

	return response(http.StatusOK), nil
}

func (w *Webhook) authorized(headers map[string]string) bool {
	for name, value := range headers {
		if strings.EqualFold(name, secretTokenHeader) {
			return subtle.ConstantTimeCompare([]byte(value), []byte(w.secret)) == 1
		}
	}
	return false
}

func response(status int) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status}
}
