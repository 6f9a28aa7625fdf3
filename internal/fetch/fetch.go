package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/Philanthropists/inbox-otp-bot/internal/datasource/imap"
	"github.com/Philanthropists/inbox-otp-bot/internal/extract"
	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
	"github.com/Philanthropists/inbox-otp-bot/internal/metrics"
	"github.com/Philanthropists/inbox-otp-bot/internal/provider"
)

type Opener func(ctx context.Context, endpoint provider.Endpoint, username, password string) (imap.MailClient, error)

type Resolver func(address string) (provider.Endpoint, error)

// Fetcher runs one extraction against one mailbox per call.
type Fetcher struct {
	Open    Opener
	Resolve Resolver

	metrics   *metrics.Metrics
	extractor *extract.Extractor
}

func NewFetcher(m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		Open:      imap.GetMailClient,
		Resolve:   provider.ForAddress,
		metrics:   m,
		extractor: extract.NewExtractor(m),
	}
}

// Fetch reports any failure as not found; the cause is only logged.
func (f *Fetcher) Fetch(ctx context.Context, address, password string, mode extract.Mode) (extract.Result, bool) {
	log := logger.GetLogger()

	result, err := f.fetch(ctx, address, password, mode)
	if err == nil {
		return result, true
	}

	reason := failureReason(err)
	f.metrics.FetchFailures.WithLabelValues(reason).Inc()

	if reason == "not_found" {
		log.Infow("No matching message",
			"address", address,
			"mode", mode.String(),
		)
	} else {
		log.Errorw("Error fetching email",
			"address", address,
			"mode", mode.String(),
			"reason", reason,
			"error", err,
		)
	}

	return extract.Result{}, false
}

func (f *Fetcher) fetch(ctx context.Context, address, password string, mode extract.Mode) (extract.Result, error) {
	endpoint, err := f.Resolve(address)
	if err != nil {
		return extract.Result{}, err
	}

	started := time.Now()
	defer f.metrics.ObserveFetch(endpoint.Name, mode.String(), started)

	mailClient, err := f.Open(ctx, endpoint, address, password)
	if err != nil {
		return extract.Result{}, err
	}
	defer func() {
		if err := mailClient.Logout(); err != nil {
			logger.GetLogger().Warnw("Logout failed",
				"address", address,
				"error", err,
			)
		}
	}()

	return f.extractor.Extract(ctx, mailClient, mode)
}

func failureReason(err error) string {
	var unsupported *provider.UnsupportedProviderError
	var connErr *imap.ConnectionError
	var authErr *imap.AuthError

	switch {
	case errors.Is(err, extract.ErrNotFound):
		return "not_found"
	case errors.As(err, &unsupported):
		return "unsupported_provider"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &connErr):
		return "connection"
	}

	return "mailbox"
}
