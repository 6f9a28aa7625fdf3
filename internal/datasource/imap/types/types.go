package types

type Mailbox string

const Inbox Mailbox = "INBOX"

// Message is one fetched message in RFC 5322 wire form.
type Message struct {
	SeqNum uint32
	Raw    []byte
}
