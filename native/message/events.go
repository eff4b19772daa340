package message

import (
	"strconv"

	"commune/core/types"
	"commune/crypto"
)

const (
	EventTypeMessageSent   = "message.sent"
	EventTypeMessageTipped = "message.tipped"
)

type messageEvent struct {
	evt *types.Event
}

func (e messageEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e messageEvent) Event() *types.Event { return e.evt }

func newMessageEvent(eventType string, addr crypto.Address, m *Message) *types.Event {
	attrs := make(map[string]string)
	attrs["message"] = addr.String()
	if m != nil {
		attrs["group"] = m.Group.String()
		attrs["id"] = strconv.FormatUint(m.MessageID, 10)
		attrs["sender"] = m.Sender.String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewSentEvent returns the payload emitted when a message is committed.
func NewSentEvent(addr crypto.Address, m *Message) *types.Event {
	return newMessageEvent(EventTypeMessageSent, addr, m)
}

// NewTippedEvent returns the payload emitted when a message receives a tip.
func NewTippedEvent(addr crypto.Address, m *Message, tipper crypto.Address, amount uint64) *types.Event {
	evt := newMessageEvent(EventTypeMessageTipped, addr, m)
	evt.Attributes["tipper"] = tipper.String()
	evt.Attributes["amount"] = strconv.FormatUint(amount, 10)
	evt.Attributes["total"] = strconv.FormatUint(m.TipAmount, 10)
	return evt
}
