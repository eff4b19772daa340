package meme

import (
	"strconv"

	"commune/core/types"
	"commune/crypto"
)

const (
	EventTypeChallengeCreated = "meme.challenge_created"
	EventTypeMemeSubmitted    = "meme.submitted"
	EventTypeMemeVoted        = "meme.voted"
	EventTypeChallengeEnded   = "meme.challenge_ended"
)

type memeEvent struct {
	evt *types.Event
}

func (e memeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e memeEvent) Event() *types.Event { return e.evt }

// NewChallengeEvent returns the payload emitted when a contest opens.
func NewChallengeEvent(addr crypto.Address, c *Challenge) *types.Event {
	attrs := map[string]string{
		"challenge": addr.String(),
		"creator":   c.Creator.String(),
		"reward":    strconv.FormatUint(c.RewardAmount, 10),
		"endTime":   strconv.FormatInt(c.EndTime, 10),
	}
	return &types.Event{Type: EventTypeChallengeCreated, Attributes: attrs}
}

// NewSubmittedEvent returns the payload emitted when an entry lands.
func NewSubmittedEvent(challenge, submission crypto.Address, s *Submission) *types.Event {
	attrs := map[string]string{
		"challenge":  challenge.String(),
		"submission": submission.String(),
		"submitter":  s.Submitter.String(),
	}
	return &types.Event{Type: EventTypeMemeSubmitted, Attributes: attrs}
}

// NewVotedEvent returns the payload emitted when a vote is counted.
func NewVotedEvent(challenge, submission crypto.Address, s *Submission, voter crypto.Address) *types.Event {
	attrs := map[string]string{
		"challenge":  challenge.String(),
		"submission": submission.String(),
		"voter":      voter.String(),
		"votes":      strconv.FormatUint(uint64(s.Votes), 10),
	}
	return &types.Event{Type: EventTypeMemeVoted, Attributes: attrs}
}

// NewEndedEvent returns the payload emitted when the prize pays out.
func NewEndedEvent(challenge crypto.Address, c *Challenge, winner crypto.Address) *types.Event {
	attrs := map[string]string{
		"challenge": challenge.String(),
		"winner":    c.Winner.String(),
		"submitter": winner.String(),
		"reward":    strconv.FormatUint(c.RewardAmount, 10),
	}
	return &types.Event{Type: EventTypeChallengeEnded, Attributes: attrs}
}
