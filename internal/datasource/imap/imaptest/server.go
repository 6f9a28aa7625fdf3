// Package imaptest runs an in-memory IMAP server for tests.
package imaptest

import (
	"bytes"
	"net"
	"testing"
	"time"

	_imap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"

	"github.com/Philanthropists/inbox-otp-bot/internal/provider"
)

// The memory backend ships a single account with these credentials.
const (
	Username = "username"
	Password = "password"
)

type Server struct {
	Endpoint provider.Endpoint

	t     *testing.T
	inbox backend.Mailbox
}

// NewServer starts a plain-text server and empties its INBOX.
func NewServer(t *testing.T) *Server {
	t.Helper()

	be := memory.New()
	user, err := be.Login(nil, Username, Password)
	if err != nil {
		t.Fatalf("memory backend login: %s", err)
	}

	inbox, err := user.GetMailbox("INBOX")
	if err != nil {
		t.Fatalf("memory backend inbox: %s", err)
	}

	srv := server.New(be)
	srv.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}

	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Close()
	})

	s := &Server{
		Endpoint: provider.Endpoint{Name: "memory", Addr: ln.Addr().String()},
		t:        t,
		inbox:    inbox,
	}
	s.clear()

	return s
}

func (s *Server) clear() {
	mbox, ok := s.inbox.(*memory.Mailbox)
	if !ok {
		s.t.Fatalf("unexpected mailbox type %T", s.inbox)
	}
	mbox.Messages = nil
}

// Append adds a message to the INBOX; later calls produce newer messages.
func (s *Server) Append(raw string) {
	s.t.Helper()

	body := bytes.NewBufferString(raw)
	if err := s.inbox.CreateMessage(nil, time.Now(), body); err != nil {
		s.t.Fatalf("append message: %s", err)
	}
}

// Seen reports whether the message at seqNum carries the \Seen flag.
func (s *Server) Seen(seqNum uint32) bool {
	s.t.Helper()

	mbox := s.inbox.(*memory.Mailbox)
	if int(seqNum) > len(mbox.Messages) || seqNum == 0 {
		s.t.Fatalf("no message %d", seqNum)
	}

	for _, flag := range mbox.Messages[seqNum-1].Flags {
		if flag == _imap.SeenFlag {
			return true
		}
	}
	return false
}
