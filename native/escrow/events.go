package escrow

import (
	"strconv"

	"commune/core/types"
	"commune/crypto"
)

const (
	EventTypeEscrowCreated   = "escrow.created"
	EventTypeEscrowAccepted  = "escrow.accepted"
	EventTypeEscrowCompleted = "escrow.completed"
	EventTypeEscrowCancelled = "escrow.cancelled"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

func newEscrowEvent(eventType string, addr crypto.Address, esc *Escrow) *types.Event {
	attrs := make(map[string]string)
	attrs["escrow"] = addr.String()
	if esc != nil {
		attrs["initiator"] = esc.Initiator.String()
		if !esc.Counterparty.IsZero() {
			attrs["counterparty"] = esc.Counterparty.String()
		}
		attrs["initiatorAmount"] = strconv.FormatUint(esc.InitiatorAmount, 10)
		attrs["counterpartyAmount"] = strconv.FormatUint(esc.CounterpartyAmount, 10)
		attrs["status"] = esc.Status.String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewCreatedEvent returns the payload emitted when an escrow opens.
func NewCreatedEvent(addr crypto.Address, esc *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowCreated, addr, esc)
}

// NewAcceptedEvent returns the payload emitted when a counterparty locks in.
func NewAcceptedEvent(addr crypto.Address, esc *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowAccepted, addr, esc)
}

// NewCompletedEvent returns the payload emitted when both legs settle.
func NewCompletedEvent(addr crypto.Address, esc *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowCompleted, addr, esc)
}

// NewCancelledEvent returns the payload emitted when the initiator backs out.
func NewCancelledEvent(addr crypto.Address, esc *Escrow) *types.Event {
	return newEscrowEvent(EventTypeEscrowCancelled, addr, esc)
}
