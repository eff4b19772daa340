package group

import (
	"fmt"
	"strings"

	"commune/core/codec"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

const (
	groupRecordVersion  uint8 = 1
	memberRecordVersion uint8 = 1

	// MaxNameLength bounds the creator-scoped group name.
	MaxNameLength = 32
	// MaxDescriptionLength bounds the group description.
	MaxDescriptionLength = 256
)

// Group is a chat group or broadcast channel with optional join gating.
// Name and creator are immutable after creation; the counters are maintained
// by the group engine and the message ledger.
type Group struct {
	Name                  string
	Description           string
	Creator               crypto.Address
	IsChannel             bool
	IsWhaleGroup          bool
	RequiredToken         crypto.Address
	RequiredAmount        uint64
	RequiredNFTCollection crypto.Address
	RequiredNativeBalance uint64
	MemberCount           uint32
	CreatedAt             int64
	LastMessageAt         int64
	LastMessageID         uint64
}

// Clone returns a copy of the group record.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	clone := *g
	return &clone
}

// Member is the one-per-(group, member) membership record.
type Member struct {
	Group           crypto.Address
	Member          crypto.Address
	JoinedAt        int64
	LastReadMessage uint64
	IsAdmin         bool
}

// Clone returns a copy of the membership record.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// TokenProof is a token-account fact supplied by the caller and verified by
// the execution environment. The engine checks the fact against the group's
// gating rule; it does not verify the proof cryptographically.
type TokenProof struct {
	Owner  crypto.Address
	Mint   crypto.Address
	Amount uint64
}

// NFTProof is an NFT-holding fact supplied by the caller.
type NFTProof struct {
	Owner      crypto.Address
	Collection crypto.Address
	Amount     uint64
}

// ValidateName enforces the group name bound.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return common.Validationf("group: empty name")
	}
	if len(trimmed) > MaxNameLength {
		return common.Validationf("group: name longer than %d bytes", MaxNameLength)
	}
	return nil
}

// ValidateDescription enforces the description bound.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return common.Validationf("group: description longer than %d bytes", MaxDescriptionLength)
	}
	return nil
}

// Marshal encodes the group in its versioned wire layout.
func (g *Group) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordGroup, groupRecordVersion)
	w.String(g.Name)
	w.String(g.Description)
	w.Address(g.Creator)
	w.Bool(g.IsChannel)
	w.Bool(g.IsWhaleGroup)
	w.OptionAddress(g.RequiredToken)
	w.U64(g.RequiredAmount)
	w.OptionAddress(g.RequiredNFTCollection)
	w.U64(g.RequiredNativeBalance)
	w.U32(g.MemberCount)
	w.I64(g.CreatedAt)
	w.I64(g.LastMessageAt)
	w.U64(g.LastMessageID)
	return w.Bytes()
}

// Decode parses a group payload.
func Decode(raw []byte) (*Group, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordGroup, groupRecordVersion)
	g := &Group{}
	g.Name = r.String(MaxNameLength)
	g.Description = r.String(MaxDescriptionLength)
	g.Creator = r.Address()
	g.IsChannel = r.Bool()
	g.IsWhaleGroup = r.Bool()
	g.RequiredToken = r.OptionAddress()
	g.RequiredAmount = r.U64()
	g.RequiredNFTCollection = r.OptionAddress()
	g.RequiredNativeBalance = r.U64()
	g.MemberCount = r.U32()
	g.CreatedAt = r.I64()
	g.LastMessageAt = r.I64()
	g.LastMessageID = r.U64()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	return g, nil
}

// Marshal encodes the membership record.
func (m *Member) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordGroupMember, memberRecordVersion)
	w.Address(m.Group)
	w.Address(m.Member)
	w.I64(m.JoinedAt)
	w.U64(m.LastReadMessage)
	w.Bool(m.IsAdmin)
	return w.Bytes()
}

// DecodeMember parses a membership payload.
func DecodeMember(raw []byte) (*Member, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordGroupMember, memberRecordVersion)
	m := &Member{}
	m.Group = r.Address()
	m.Member = r.Address()
	m.JoinedAt = r.I64()
	m.LastReadMessage = r.U64()
	m.IsAdmin = r.Bool()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("group: member: %w", err)
	}
	return m, nil
}
