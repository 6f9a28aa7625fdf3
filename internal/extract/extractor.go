package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Philanthropists/inbox-otp-bot/internal/datasource/imap/types"
	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
)

var ErrNotFound = errors.New("no matching message found")

// DecodeError marks a single message that could not be parsed. The scan skips it.
type DecodeError struct {
	SeqNum uint32
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding message %d failed: %s", e.SeqNum, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Mailbox is the read side of an IMAP session.
type Mailbox interface {
	GetMessageIds(mailbox types.Mailbox) ([]uint32, error)
	GetMessage(seqNum uint32) (types.Message, error)
}

// Observer is told about every message the scan looks at.
type Observer interface {
	MessageScanned()
	MessageSkipped()
}

type nopObserver struct{}

func (nopObserver) MessageScanned() {}
func (nopObserver) MessageSkipped() {}

type Result struct {
	// Content is the message body for LatestMessage and the code for LatestOtp.
	Content string
	Subject string
	SentAt  time.Time
	SeqNum  uint32
}

func (r Result) HasSentAt() bool {
	return !r.SentAt.IsZero()
}

type Extractor struct {
	observer Observer
}

func NewExtractor(observer Observer) *Extractor {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Extractor{observer: observer}
}

// Extract walks the INBOX newest first and returns the first message that
// satisfies mode, or ErrNotFound. Listing and fetch failures end the scan;
// a message that fails to decode is skipped.
func (e *Extractor) Extract(ctx context.Context, mailbox Mailbox, mode Mode) (Result, error) {
	log := logger.GetLogger()

	ids, err := mailbox.GetMessageIds(types.Inbox)
	if err != nil {
		return Result{}, fmt.Errorf("listing %s failed: %w", types.Inbox, err)
	}

	log.Debugw("Scanning mailbox",
		"messages", len(ids),
		"mode", mode.String(),
	)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		msg, err := mailbox.GetMessage(id)
		if err != nil {
			return Result{}, fmt.Errorf("fetching message %d failed: %w", id, err)
		}

		summary, err := Decode(bytes.NewReader(msg.Raw))
		if err != nil {
			e.observer.MessageSkipped()
			log.Warnw("Skipping message",
				"error", &DecodeError{SeqNum: id, Err: err},
				"msgId", id,
			)
			continue
		}
		e.observer.MessageScanned()

		if result, ok := accept(summary, mode); ok {
			result.SeqNum = id
			return result, nil
		}
	}

	return Result{}, ErrNotFound
}

func accept(s Summary, mode Mode) (Result, bool) {
	switch mode {
	case LatestOtp:
		code, ok := FindOTP(s.Body)
		if !ok {
			return Result{}, false
		}
		return Result{Content: code, Subject: s.Subject, SentAt: s.SentAt}, true

	case LatestMessage:
		if isResetPassword(s) {
			logger.GetLogger().Infow("Reset password email ignored, checking the next one",
				"subject", s.Subject,
			)
			return Result{}, false
		}
		// Messages without any text are passed over like excluded ones.
		if s.Body == "" {
			return Result{}, false
		}
		return Result{Content: s.Body, Subject: s.Subject, SentAt: s.SentAt}, true
	}

	return Result{}, false
}
