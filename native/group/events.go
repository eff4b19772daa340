package group

import (
	"strconv"

	"commune/core/types"
	"commune/crypto"
)

const (
	EventTypeGroupCreated = "group.created"
	EventTypeGroupJoined  = "group.joined"
)

type groupEvent struct {
	evt *types.Event
}

func (e groupEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e groupEvent) Event() *types.Event { return e.evt }

func newGroupEvent(eventType string, addr crypto.Address, g *Group) *types.Event {
	attrs := make(map[string]string)
	if g != nil {
		attrs["group"] = addr.String()
		attrs["name"] = g.Name
		attrs["creator"] = g.Creator.String()
		attrs["memberCount"] = strconv.FormatUint(uint64(g.MemberCount), 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewCreatedEvent returns the canonical payload for a freshly created group.
func NewCreatedEvent(addr crypto.Address, g *Group) *types.Event {
	return newGroupEvent(EventTypeGroupCreated, addr, g)
}

// NewJoinedEvent returns the payload emitted when a member is admitted.
func NewJoinedEvent(addr crypto.Address, g *Group, member crypto.Address) *types.Event {
	evt := newGroupEvent(EventTypeGroupJoined, addr, g)
	evt.Attributes["member"] = member.String()
	return evt
}
