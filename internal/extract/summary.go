package extract

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, ...).
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const maxPartSize = 4 << 20

// Summary is the normalized view of one message.
type Summary struct {
	Subject string
	Body    string
	SentAt  time.Time
}

func (s Summary) HasSentAt() bool {
	return !s.SentAt.IsZero()
}

// Decode parses a raw message. For multipart messages the first non-empty
// text/plain part wins over the first non-empty text/html part, whatever
// order they appear in; attachments are ignored. Only html bodies go through
// the html tokenizer.
func Decode(raw io.Reader) (Summary, error) {
	mr, err := mail.CreateReader(raw)
	if err != nil && !message.IsUnknownCharset(err) {
		return Summary{}, fmt.Errorf("mail.CreateReader failed: %w", err)
	}

	summary := Summary{}

	summary.Subject, err = mr.Header.Subject()
	if err != nil {
		summary.Subject = mr.Header.Get("Subject")
	}

	if date, err := mr.Header.Date(); err == nil {
		summary.SentAt = date
	}

	mediaType, _, _ := mr.Header.ContentType()
	isMultipart := strings.HasPrefix(mediaType, "multipart/")

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !(p != nil && message.IsUnknownCharset(err)) {
			return Summary{}, fmt.Errorf("mr.NextPart failed: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		partType, _, _ := h.ContentType()
		if isMultipart && partType != "text/plain" && partType != "text/html" {
			continue
		}

		b, err := io.ReadAll(io.LimitReader(p.Body, maxPartSize))
		if err != nil {
			return Summary{}, fmt.Errorf("reading %s part failed: %w", partType, err)
		}

		text := string(b)
		if strings.TrimSpace(text) == "" {
			continue
		}

		switch {
		case !isMultipart && partType == "text/html":
			html = text
		case !isMultipart:
			plain = text
		case partType == "text/plain" && plain == "":
			plain = text
		case partType == "text/html" && html == "":
			html = text
		}
	}

	if plain != "" {
		summary.Body = stripPlainTags(plain)
	} else {
		summary.Body = StripTags(html)
	}

	return summary, nil
}
