package message

import (
	"fmt"

	"commune/core/codec"
	"commune/core/types"
	"commune/crypto"
)

const (
	recordVersion uint8 = 1

	// MaxContentLength bounds a single message body.
	MaxContentLength = 1024
)

// Message is one entry in a group's append-only message sequence. The
// tip accumulator only ever increases.
type Message struct {
	Group     crypto.Address
	MessageID uint64
	Sender    crypto.Address
	Content   string
	Timestamp int64
	TipAmount uint64
}

// Clone returns a copy of the message record.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// Marshal encodes the message in its versioned wire layout.
func (m *Message) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordMessage, recordVersion)
	w.Address(m.Group)
	w.U64(m.MessageID)
	w.Address(m.Sender)
	w.String(m.Content)
	w.I64(m.Timestamp)
	w.U64(m.TipAmount)
	return w.Bytes()
}

// Decode parses a message payload.
func Decode(raw []byte) (*Message, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordMessage, recordVersion)
	m := &Message{}
	m.Group = r.Address()
	m.MessageID = r.U64()
	m.Sender = r.Address()
	m.Content = r.String(MaxContentLength)
	m.Timestamp = r.I64()
	m.TipAmount = r.U64()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	return m, nil
}
