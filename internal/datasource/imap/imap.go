package imap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/Philanthropists/inbox-otp-bot/internal/datasource/imap/types"
	"github.com/Philanthropists/inbox-otp-bot/internal/provider"
	_imap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const defaultDialTimeout = 30 * time.Second

// MailClient is a read-only session on one mailbox. The session is bound to
// the context it was opened with: once that context ends the connection is
// dropped and every further call fails.
type MailClient interface {
	GetMessageIds(mailbox types.Mailbox) ([]uint32, error)
	GetMessage(seqNum uint32) (types.Message, error)
	Logout() error
}

func GetMailClient(ctx context.Context, endpoint provider.Endpoint, username, password string) (MailClient, error) {
	dialer := &net.Dialer{Timeout: defaultDialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Timeout = time.Until(deadline)
		if dialer.Timeout <= 0 {
			return nil, &ConnectionError{Addr: endpoint.Addr, Err: ctx.Err()}
		}
	}

	var emailClient *client.Client
	var err error
	if endpoint.TLS {
		emailClient, err = client.DialWithDialerTLS(dialer, endpoint.Addr, nil)
	} else {
		emailClient, err = client.DialWithDialer(dialer, endpoint.Addr)
	}
	if err != nil {
		return nil, &ConnectionError{Addr: endpoint.Addr, Err: err}
	}

	if deadline, ok := ctx.Deadline(); ok {
		emailClient.Timeout = time.Until(deadline)
	}

	impl := &mailClientImpl{
		ctx:    ctx,
		client: emailClient,
		stop:   make(chan struct{}),
	}
	go impl.watch()

	if err := emailClient.Login(username, password); err != nil {
		impl.close()
		_ = emailClient.Terminate()
		return nil, &AuthError{Username: username, Err: impl.cause(err)}
	}

	return impl, nil
}

type mailClientImpl struct {
	ctx    context.Context
	client *client.Client

	stop     chan struct{}
	stopOnce sync.Once
}

func (m *mailClientImpl) watch() {
	select {
	case <-m.ctx.Done():
		_ = m.client.Terminate()
	case <-m.stop:
	}
}

func (m *mailClientImpl) close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// cause prefers the context error once the session has been cut short.
func (m *mailClientImpl) cause(err error) error {
	if ctxErr := m.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%s)", ctxErr, err)
	}
	return err
}

// GetMessageIds selects the mailbox read-only and returns every sequence
// number in it, newest first.
func (m *mailClientImpl) GetMessageIds(mailbox types.Mailbox) ([]uint32, error) {
	boxStatus, err := m.client.Select(string(mailbox), true)
	if err != nil {
		return nil, m.cause(err)
	}

	if !boxStatus.ReadOnly {
		return nil, fmt.Errorf("mailbox %s was not opened read-only", mailbox)
	}

	if boxStatus.Messages == 0 {
		return nil, nil
	}

	ids, err := m.client.Search(_imap.NewSearchCriteria())
	if err != nil {
		return nil, m.cause(err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	return ids, nil
}

// GetMessage fetches the full message with BODY.PEEK[] so the \Seen flag is
// left untouched.
func (m *mailClientImpl) GetMessage(seqNum uint32) (types.Message, error) {
	seqset := new(_imap.SeqSet)
	seqset.AddNum(seqNum)

	section := &_imap.BodySectionName{Peek: true}
	items := []_imap.FetchItem{section.FetchItem()}

	messages := make(chan *_imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.Fetch(seqset, items, messages)
	}()

	var fetched *_imap.Message
	for msg := range messages {
		fetched = msg
	}

	if err := <-done; err != nil {
		return types.Message{}, m.cause(err)
	}

	if fetched == nil {
		return types.Message{}, fmt.Errorf("message %d not found", seqNum)
	}

	body := fetched.GetBody(section)
	if body == nil {
		for _, literal := range fetched.Body {
			body = literal
			break
		}
	}
	if body == nil {
		return types.Message{}, fmt.Errorf("message %d has no body", seqNum)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return types.Message{}, err
	}

	return types.Message{SeqNum: seqNum, Raw: raw}, nil
}

func (m *mailClientImpl) Logout() error {
	defer m.close()

	if m.ctx.Err() != nil {
		return m.ctx.Err()
	}

	if err := m.client.Logout(); err != nil && !errors.Is(err, client.ErrAlreadyLoggedOut) {
		return err
	}

	return nil
}
