package invite

import (
	"strconv"

	"commune/core/types"
	"commune/crypto"
)

const (
	EventTypeInviteCreated = "invite.created"
	EventTypeInviteUsed    = "invite.used"
)

type inviteEvent struct {
	evt *types.Event
}

func (e inviteEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e inviteEvent) Event() *types.Event { return e.evt }

func newInviteEvent(eventType string, addr crypto.Address, inv *Invite) *types.Event {
	attrs := make(map[string]string)
	attrs["invite"] = addr.String()
	if inv != nil {
		attrs["group"] = inv.Group.String()
		attrs["code"] = inv.Code
		attrs["remaining"] = strconv.FormatUint(uint64(inv.Remaining()), 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewCreatedEvent returns the payload emitted when an invite is issued.
func NewCreatedEvent(addr crypto.Address, inv *Invite) *types.Event {
	return newInviteEvent(EventTypeInviteCreated, addr, inv)
}

// NewUsedEvent returns the payload emitted when an invite is redeemed.
func NewUsedEvent(addr crypto.Address, inv *Invite, member crypto.Address) *types.Event {
	evt := newInviteEvent(EventTypeInviteUsed, addr, inv)
	evt.Attributes["member"] = member.String()
	return evt
}
