package meme

import (
	"fmt"

	"commune/core/codec"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

const recordVersion uint8 = 1

const (
	// MaxTitleLength bounds challenge and submission titles.
	MaxTitleLength = 64
	// MaxDescriptionLength bounds challenge and submission descriptions.
	MaxDescriptionLength = 256
	// MaxPromptLength bounds the challenge prompt.
	MaxPromptLength = 128
	// MaxImageURLLength bounds a submission's image link.
	MaxImageURLLength = 256
)

// Challenge is a timed meme contest with a native-unit prize held in
// custody at the challenge's own address. The leader triple is maintained
// on every submission and vote so ending the challenge never needs to scan
// the submissions.
type Challenge struct {
	Creator           crypto.Address
	Title             string
	Description       string
	Prompt            string
	RewardAmount      uint64
	StartTime         int64
	EndTime           int64
	Winner            crypto.Address
	SubmissionCount   uint32
	TotalVotes        uint64
	Leader            crypto.Address
	LeaderVotes       uint32
	LeaderSubmittedAt int64
}

// Clone returns a copy of the challenge record.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Decided reports whether a winner has been recorded.
func (c *Challenge) Decided() bool { return !c.Winner.IsZero() }

// Submission is one entry in a challenge. Votes only ever increase.
type Submission struct {
	Challenge   crypto.Address
	Submitter   crypto.Address
	Title       string
	Description string
	ImageURL    string
	Votes       uint32
	SubmittedAt int64
}

// Clone returns a copy of the submission record.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// VoteRecord pins one (submission, voter) pair. Its existence is the
// duplicate-vote guard.
type VoteRecord struct {
	Submission crypto.Address
	Voter      crypto.Address
	VotedAt    int64
}

// Clone returns a copy of the vote record.
func (v *VoteRecord) Clone() *VoteRecord {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

// ValidateTitle enforces the shared title bounds.
func ValidateTitle(title string) error {
	if title == "" {
		return common.Validationf("meme: empty title")
	}
	if len(title) > MaxTitleLength {
		return common.Validationf("meme: title longer than %d bytes", MaxTitleLength)
	}
	return nil
}

// ValidateDescription enforces the shared description bounds.
func ValidateDescription(desc string) error {
	if len(desc) > MaxDescriptionLength {
		return common.Validationf("meme: description longer than %d bytes", MaxDescriptionLength)
	}
	return nil
}

// Marshal encodes the challenge in its versioned wire layout.
func (c *Challenge) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordChallenge, recordVersion)
	w.Address(c.Creator)
	w.String(c.Title)
	w.String(c.Description)
	w.String(c.Prompt)
	w.U64(c.RewardAmount)
	w.I64(c.StartTime)
	w.I64(c.EndTime)
	w.OptionAddress(c.Winner)
	w.U32(c.SubmissionCount)
	w.U64(c.TotalVotes)
	w.OptionAddress(c.Leader)
	w.U32(c.LeaderVotes)
	w.I64(c.LeaderSubmittedAt)
	return w.Bytes()
}

// DecodeChallenge parses a challenge payload.
func DecodeChallenge(raw []byte) (*Challenge, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordChallenge, recordVersion)
	c := &Challenge{}
	c.Creator = r.Address()
	c.Title = r.String(MaxTitleLength)
	c.Description = r.String(MaxDescriptionLength)
	c.Prompt = r.String(MaxPromptLength)
	c.RewardAmount = r.U64()
	c.StartTime = r.I64()
	c.EndTime = r.I64()
	c.Winner = r.OptionAddress()
	c.SubmissionCount = r.U32()
	c.TotalVotes = r.U64()
	c.Leader = r.OptionAddress()
	c.LeaderVotes = r.U32()
	c.LeaderSubmittedAt = r.I64()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("meme: %w", err)
	}
	return c, nil
}

// Marshal encodes the submission in its versioned wire layout.
func (s *Submission) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordSubmission, recordVersion)
	w.Address(s.Challenge)
	w.Address(s.Submitter)
	w.String(s.Title)
	w.String(s.Description)
	w.String(s.ImageURL)
	w.U32(s.Votes)
	w.I64(s.SubmittedAt)
	return w.Bytes()
}

// DecodeSubmission parses a submission payload.
func DecodeSubmission(raw []byte) (*Submission, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordSubmission, recordVersion)
	s := &Submission{}
	s.Challenge = r.Address()
	s.Submitter = r.Address()
	s.Title = r.String(MaxTitleLength)
	s.Description = r.String(MaxDescriptionLength)
	s.ImageURL = r.String(MaxImageURLLength)
	s.Votes = r.U32()
	s.SubmittedAt = r.I64()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("meme: %w", err)
	}
	return s, nil
}

// Marshal encodes the vote record in its versioned wire layout.
func (v *VoteRecord) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordVote, recordVersion)
	w.Address(v.Submission)
	w.Address(v.Voter)
	w.I64(v.VotedAt)
	return w.Bytes()
}

// DecodeVote parses a vote record payload.
func DecodeVote(raw []byte) (*VoteRecord, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordVote, recordVersion)
	v := &VoteRecord{}
	v.Submission = r.Address()
	v.Voter = r.Address()
	v.VotedAt = r.I64()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("meme: %w", err)
	}
	return v, nil
}
