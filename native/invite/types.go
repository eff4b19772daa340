package invite

import (
	"fmt"

	"commune/core/codec"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

const (
	recordVersion uint8 = 1

	// MaxCodeLength bounds an invite code.
	MaxCodeLength = 32
)

// Invite is a redeemable entry ticket for one group. Redemptions bypass the
// group's gating checks; the remaining budget is MaxUses - UseCount.
type Invite struct {
	Group     crypto.Address
	Code      string
	Creator   crypto.Address
	CreatedAt int64
	ExpiresAt int64
	MaxUses   uint32
	UseCount  uint32
}

// Clone returns a copy of the invite record.
func (i *Invite) Clone() *Invite {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

// Remaining reports how many redemptions the invite still allows.
func (i *Invite) Remaining() uint32 {
	if i == nil || i.UseCount >= i.MaxUses {
		return 0
	}
	return i.MaxUses - i.UseCount
}

// ValidateCode enforces the invite code bounds.
func ValidateCode(code string) error {
	if code == "" {
		return common.Validationf("invite: empty code")
	}
	if len(code) > MaxCodeLength {
		return common.Validationf("invite: code longer than %d bytes", MaxCodeLength)
	}
	return nil
}

// Marshal encodes the invite in its versioned wire layout.
func (i *Invite) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordInvite, recordVersion)
	w.Address(i.Group)
	w.String(i.Code)
	w.Address(i.Creator)
	w.I64(i.CreatedAt)
	w.I64(i.ExpiresAt)
	w.U32(i.MaxUses)
	w.U32(i.UseCount)
	return w.Bytes()
}

// Decode parses an invite payload.
func Decode(raw []byte) (*Invite, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordInvite, recordVersion)
	i := &Invite{}
	i.Group = r.Address()
	i.Code = r.String(MaxCodeLength)
	i.Creator = r.Address()
	i.CreatedAt = r.I64()
	i.ExpiresAt = r.I64()
	i.MaxUses = r.U32()
	i.UseCount = r.U32()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("invite: %w", err)
	}
	return i, nil
}
