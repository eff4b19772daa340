package profile

import (
	"strconv"

	"commune/core/types"
)

const (
	EventTypeProfileCreated = "profile.created"
	EventTypeProfileUpdated = "profile.updated"
	EventTypeTutorialDone   = "profile.tutorial_completed"
)

type profileEvent struct {
	evt *types.Event
}

func (e profileEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e profileEvent) Event() *types.Event { return e.evt }

func newProfileEvent(eventType string, p *Profile) *types.Event {
	attrs := make(map[string]string)
	if p != nil {
		attrs["owner"] = p.Owner.String()
		attrs["username"] = p.Username
		attrs["lastActive"] = strconv.FormatInt(p.LastActive, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewCreatedEvent returns the canonical payload for a freshly created profile.
func NewCreatedEvent(p *Profile) *types.Event { return newProfileEvent(EventTypeProfileCreated, p) }

// NewUpdatedEvent returns the canonical payload for any profile mutation.
func NewUpdatedEvent(p *Profile) *types.Event { return newProfileEvent(EventTypeProfileUpdated, p) }

// NewTutorialEvent returns the payload emitted when a tutorial completes.
func NewTutorialEvent(p *Profile, tutorialID uint8, reward uint64) *types.Event {
	evt := newProfileEvent(EventTypeTutorialDone, p)
	evt.Attributes["tutorialId"] = strconv.FormatUint(uint64(tutorialID), 10)
	evt.Attributes["reward"] = strconv.FormatUint(reward, 10)
	return evt
}
