package extract_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Philanthropists/inbox-otp-bot/internal/datasource/imap/types"
	"github.com/Philanthropists/inbox-otp-bot/internal/extract"
)

// mailboxMock serves messages[0] as the oldest message.
type mailboxMock struct {
	messages []string
	listErr  error
	fetchErr map[uint32]error
	fetched  []uint32
}

func (m *mailboxMock) GetMessageIds(mailbox types.Mailbox) ([]uint32, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]uint32, 0, len(m.messages))
	for i := len(m.messages); i >= 1; i-- {
		ids = append(ids, uint32(i))
	}
	return ids, nil
}

func (m *mailboxMock) GetMessage(seqNum uint32) (types.Message, error) {
	m.fetched = append(m.fetched, seqNum)
	if err := m.fetchErr[seqNum]; err != nil {
		return types.Message{}, err
	}
	return types.Message{SeqNum: seqNum, Raw: []byte(m.messages[seqNum-1])}, nil
}

type observerMock struct {
	scanned, skipped int
}

func (o *observerMock) MessageScanned() { o.scanned++ }
func (o *observerMock) MessageSkipped() { o.skipped++ }

func plainMessage(subject, date, body string) string {
	return crlf(
		"Subject: "+subject,
		"Date: "+date,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	)
}

const malformed = "Subject: broken\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"x\"\r\n" +
	"\r\n" +
	"--x\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"!!!! not base64 !!!!\r\n" +
	"--x--\r\n"

func TestExtractLatestMessage(t *testing.T) {
	cases := []struct {
		name        string
		messages    []string
		wantContent string
		wantErr     error
	}{
		{
			name: "newest wins",
			messages: []string{
				plainMessage("old", "Mon, 01 Jan 2024 10:00:00 +0000", "older body"),
				plainMessage("new", "Tue, 02 Jan 2024 10:00:00 +0000", "newer body"),
			},
			wantContent: "newer body",
		},
		{
			name: "reset password in subject is skipped",
			messages: []string{
				plainMessage("hello", "Mon, 01 Jan 2024 10:00:00 +0000", "keep me"),
				plainMessage("Reset Password request", "Tue, 02 Jan 2024 10:00:00 +0000", "click here"),
			},
			wantContent: "keep me",
		},
		{
			name: "reset password in body is skipped",
			messages: []string{
				plainMessage("hello", "Mon, 01 Jan 2024 10:00:00 +0000", "keep me"),
				plainMessage("account", "Tue, 02 Jan 2024 10:00:00 +0000", "To RESET PASSWORD follow the link"),
			},
			wantContent: "keep me",
		},
		{
			name: "only reset password message",
			messages: []string{
				plainMessage("reset password", "Mon, 01 Jan 2024 10:00:00 +0000", "link"),
			},
			wantErr: extract.ErrNotFound,
		},
		{
			name:     "empty mailbox",
			messages: nil,
			wantErr:  extract.ErrNotFound,
		},
		{
			name: "empty body is passed over",
			messages: []string{
				plainMessage("older", "Mon, 01 Jan 2024 10:00:00 +0000", "has text"),
				plainMessage("blank", "Tue, 02 Jan 2024 10:00:00 +0000", "   "),
			},
			wantContent: "has text",
		},
		{
			name: "malformed message is skipped",
			messages: []string{
				plainMessage("older", "Mon, 01 Jan 2024 10:00:00 +0000", "survivor"),
				malformed,
			},
			wantContent: "survivor",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mailbox := &mailboxMock{messages: tc.messages}

			result, err := extract.NewExtractor(nil).Extract(context.Background(), mailbox, extract.LatestMessage)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantContent, result.Content)
			assert.True(t, result.HasSentAt())
		})
	}
}

func TestExtractLatestOtp(t *testing.T) {
	mailbox := &mailboxMock{messages: []string{
		plainMessage("older code", "Mon, 01 Jan 2024 10:00:00 +0000", "Your code is 111111"),
		plainMessage("newer code", "Tue, 02 Jan 2024 10:00:00 +0000", "Your code is 222222"),
		plainMessage("newsletter", "Wed, 03 Jan 2024 10:00:00 +0000", "Nothing to see"),
	}}

	result, err := extract.NewExtractor(nil).Extract(context.Background(), mailbox, extract.LatestOtp)
	require.NoError(t, err)

	assert.Equal(t, "222222", result.Content)
	assert.Equal(t, uint32(2), result.SeqNum)
	assert.Equal(t, []uint32{3, 2}, mailbox.fetched, "scan must stop at the first match")
}

func TestExtractLatestOtpAcceptsResetPasswordMail(t *testing.T) {
	mailbox := &mailboxMock{messages: []string{
		plainMessage("Reset password", "Mon, 01 Jan 2024 10:00:00 +0000", "Use 314159 to reset password"),
	}}

	result, err := extract.NewExtractor(nil).Extract(context.Background(), mailbox, extract.LatestOtp)
	require.NoError(t, err)
	assert.Equal(t, "314159", result.Content)
}

func TestExtractLatestOtpAfterLoneAngleBracket(t *testing.T) {
	mailbox := &mailboxMock{messages: []string{
		plainMessage("Sign in", "Mon, 01 Jan 2024 10:00:00 +0000", "if a<b then use 123456"),
	}}

	result, err := extract.NewExtractor(nil).Extract(context.Background(), mailbox, extract.LatestOtp)
	require.NoError(t, err)
	assert.Equal(t, "123456", result.Content)
}

func TestExtractLatestOtpFromHTML(t *testing.T) {
	mailbox := &mailboxMock{messages: []string{crlf(
		"Subject: Sign in",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<b>123456</b> is your code",
	)}}

	result, err := extract.NewExtractor(nil).Extract(context.Background(), mailbox, extract.LatestOtp)
	require.NoError(t, err)
	assert.Equal(t, "123456", result.Content)
	assert.False(t, result.HasSentAt())
}

func TestExtractLatestOtpNotFound(t *testing.T) {
	mailbox := &mailboxMock{messages: []string{
		plainMessage("a", "Mon, 01 Jan 2024 10:00:00 +0000", "no digits"),
		plainMessage("b", "Mon, 01 Jan 2024 11:00:00 +0000", "1234567 is too long"),
	}}

	_, err := extract.NewExtractor(nil).Extract(context.Background(), mailbox, extract.LatestOtp)
	assert.ErrorIs(t, err, extract.ErrNotFound)
	assert.Equal(t, []uint32{2, 1}, mailbox.fetched)
}

func TestExtractSkippedMessageDoesNotHideOlderOtp(t *testing.T) {
	observer := &observerMock{}
	mailbox := &mailboxMock{messages: []string{
		plainMessage("code", "Mon, 01 Jan 2024 10:00:00 +0000", "code 999000"),
		malformed,
	}}

	result, err := extract.NewExtractor(observer).Extract(context.Background(), mailbox, extract.LatestOtp)
	require.NoError(t, err)
	assert.Equal(t, "999000", result.Content)
	assert.Equal(t, 1, observer.scanned)
	assert.Equal(t, 1, observer.skipped)
}

func TestExtractAbortsOnSessionFailure(t *testing.T) {
	listErr := errors.New("connection reset")
	_, err := extract.NewExtractor(nil).Extract(context.Background(), &mailboxMock{listErr: listErr}, extract.LatestMessage)
	assert.ErrorIs(t, err, listErr)

	fetchErr := errors.New("broken pipe")
	mailbox := &mailboxMock{
		messages: []string{plainMessage("a", "Mon, 01 Jan 2024 10:00:00 +0000", "ok"), plainMessage("b", "Mon, 01 Jan 2024 10:00:00 +0000", "ok")},
		fetchErr: map[uint32]error{2: fetchErr},
	}
	_, err = extract.NewExtractor(nil).Extract(context.Background(), mailbox, extract.LatestMessage)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, []uint32{2}, mailbox.fetched)
}

func TestExtractStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mailbox := &mailboxMock{messages: []string{plainMessage("a", "Mon, 01 Jan 2024 10:00:00 +0000", "ok")}}
	_, err := extract.NewExtractor(nil).Extract(ctx, mailbox, extract.LatestMessage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mailbox.fetched)
}

func TestExtractIsIdempotent(t *testing.T) {
	var messages []string
	for i := 0; i < 5; i++ {
		messages = append(messages, plainMessage(fmt.Sprintf("m%d", i), "Mon, 01 Jan 2024 10:00:00 +0000", fmt.Sprintf("code %d00000", i+1)))
	}
	mailbox := &mailboxMock{messages: messages}
	extractor := extract.NewExtractor(nil)

	first, err := extractor.Extract(context.Background(), mailbox, extract.LatestOtp)
	require.NoError(t, err)
	second, err := extractor.Extract(context.Background(), mailbox, extract.LatestOtp)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "500000", first.Content)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "latest_message", extract.LatestMessage.String())
	assert.Equal(t, "latest_otp", extract.LatestOtp.String())
	assert.Equal(t, "unknown", extract.Mode(42).String())
}
