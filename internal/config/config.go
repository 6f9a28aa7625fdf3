package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
)

const (
	keyTelegramToken     = "TELEGRAM_BOT_TOKEN"
	keyEmailCredentials  = "EMAIL_CREDENTIALS"
	keyFetchTimeout      = "FETCH_TIMEOUT"
	keyMaxConcurrent     = "MAX_CONCURRENT_REQUESTS"
	keyRateLimit         = "RATE_LIMIT_PER_MINUTE"
	keyLogLevel          = "LOG_LEVEL"
	keyLogDevelopment    = "LOG_DEVELOPMENT"
	keyLogFile           = "LOG_FILE"
	keyMetricsAddr       = "METRICS_ADDR"
	keyDisplayTimezone   = "DISPLAY_TIMEZONE"
	keyMaxReplyLength    = "MAX_REPLY_LENGTH"
	keyWebhookSecret     = "WEBHOOK_SECRET"
	defaultFetchTimeout  = 60 * time.Second
	defaultMaxConcurrent = 4
)

// Error reports a missing or invalid startup setting. It is always fatal.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration %s %s", e.Key, e.Reason)
}

type Config struct {
	TelegramToken string
	Credentials   Credentials

	FetchTimeout          time.Duration
	MaxConcurrentRequests int
	RateLimitPerMinute    int
	MaxReplyLength        int

	// DisplayLocation is nil when sent times keep the offset of the message.
	DisplayLocation *time.Location

	MetricsAddr string
	// WebhookSecret, when set, must match the secret token header of
	// webhook deliveries.
	WebhookSecret string
	Log           logger.Config
}

// Load reads the process environment, after merging an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault(keyFetchTimeout, defaultFetchTimeout.String())
	v.SetDefault(keyMaxConcurrent, defaultMaxConcurrent)
	v.SetDefault(keyRateLimit, 6)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogDevelopment, false)
	v.SetDefault(keyMaxReplyLength, 4000)

	token := strings.TrimSpace(v.GetString(keyTelegramToken))
	if token == "" {
		return Config{}, &Error{Key: keyTelegramToken, Reason: "must be set"}
	}

	credentials, err := ParseCredentials(v.GetString(keyEmailCredentials))
	if err != nil {
		return Config{}, err
	}

	timeout, err := time.ParseDuration(v.GetString(keyFetchTimeout))
	if err != nil || timeout <= 0 {
		return Config{}, &Error{Key: keyFetchTimeout, Reason: "must be a positive duration such as 45s"}
	}

	maxConcurrent := v.GetInt(keyMaxConcurrent)
	if maxConcurrent < 1 {
		return Config{}, &Error{Key: keyMaxConcurrent, Reason: "must be at least 1"}
	}

	rateLimit := v.GetInt(keyRateLimit)
	if rateLimit < 0 {
		return Config{}, &Error{Key: keyRateLimit, Reason: "must not be negative"}
	}

	maxReply := v.GetInt(keyMaxReplyLength)
	if maxReply < 100 {
		return Config{}, &Error{Key: keyMaxReplyLength, Reason: "must be at least 100"}
	}

	var location *time.Location
	if tz := strings.TrimSpace(v.GetString(keyDisplayTimezone)); tz != "" {
		location, err = time.LoadLocation(tz)
		if err != nil {
			return Config{}, &Error{Key: keyDisplayTimezone, Reason: err.Error()}
		}
	}

	return Config{
		TelegramToken:         token,
		Credentials:           credentials,
		FetchTimeout:          timeout,
		MaxConcurrentRequests: maxConcurrent,
		RateLimitPerMinute:    rateLimit,
		MaxReplyLength:        maxReply,
		DisplayLocation:       location,
		MetricsAddr:           strings.TrimSpace(v.GetString(keyMetricsAddr)),
		WebhookSecret:         strings.TrimSpace(v.GetString(keyWebhookSecret)),
		Log: logger.Config{
			Level:       v.GetString(keyLogLevel),
			Development: v.GetBool(keyLogDevelopment),
			File:        strings.TrimSpace(v.GetString(keyLogFile)),
			MaxSizeMB:   50,
			MaxBackups:  3,
			MaxAgeDays:  14,
		},
	}, nil
}
