package profile

import (
	"fmt"
	"strings"

	"commune/core/codec"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

const (
	recordVersion uint8 = 1

	// MinUsernameLength and MaxUsernameLength bound the profile username.
	MinUsernameLength = 3
	MaxUsernameLength = 32
	// MaxBioLength bounds the free-form bio.
	MaxBioLength = 256
	// MaxPictureURLLength bounds the optional hosted picture reference.
	MaxPictureURLLength = 200
	// MaxTutorialID is the highest recognised tutorial identifier.
	MaxTutorialID = 10
)

// Profile is the one-per-owner identity record. The owner and join date are
// immutable after creation; reputation only moves up outside explicit admin
// action, which is not part of this engine.
type Profile struct {
	Owner              crypto.Address
	Username           string
	Bio                string
	PictureURL         string
	NFTPicture         crypto.Address
	ShowBalance        bool
	ReputationScore    uint64
	JoinedAt           int64
	LastActive         int64
	CompletedTutorials []uint8
	TutorialRewards    uint64
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	if len(p.CompletedTutorials) > 0 {
		clone.CompletedTutorials = make([]uint8, len(p.CompletedTutorials))
		copy(clone.CompletedTutorials, p.CompletedTutorials)
	}
	return &clone
}

// HasCompletedTutorial reports whether id is in the completed set.
func (p *Profile) HasCompletedTutorial(id uint8) bool {
	for _, done := range p.CompletedTutorials {
		if done == id {
			return true
		}
	}
	return false
}

// ValidateUsername enforces the 3..32 byte username bound.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) < MinUsernameLength {
		return common.Validationf("profile: username shorter than %d bytes", MinUsernameLength)
	}
	if len(trimmed) > MaxUsernameLength {
		return common.Validationf("profile: username longer than %d bytes", MaxUsernameLength)
	}
	return nil
}

// ValidateBio enforces the bio length bound.
func ValidateBio(bio string) error {
	if len(bio) > MaxBioLength {
		return common.Validationf("profile: bio longer than %d bytes", MaxBioLength)
	}
	return nil
}

// Marshal encodes the profile in its versioned wire layout.
func (p *Profile) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordProfile, recordVersion)
	w.Address(p.Owner)
	w.String(p.Username)
	w.String(p.Bio)
	w.Bool(p.PictureURL != "")
	if p.PictureURL != "" {
		w.String(p.PictureURL)
	}
	w.OptionAddress(p.NFTPicture)
	w.Bool(p.ShowBalance)
	w.U64(p.ReputationScore)
	w.I64(p.JoinedAt)
	w.I64(p.LastActive)
	w.ByteSlice(p.CompletedTutorials)
	w.U64(p.TutorialRewards)
	return w.Bytes()
}

// Decode parses a profile payload, rejecting short, oversized or
// unknown-version records.
func Decode(raw []byte) (*Profile, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordProfile, recordVersion)
	p := &Profile{}
	p.Owner = r.Address()
	p.Username = r.String(MaxUsernameLength)
	p.Bio = r.String(MaxBioLength)
	if r.Bool() {
		p.PictureURL = r.String(MaxPictureURLLength)
	}
	p.NFTPicture = r.OptionAddress()
	p.ShowBalance = r.Bool()
	p.ReputationScore = r.U64()
	p.JoinedAt = r.I64()
	p.LastActive = r.I64()
	p.CompletedTutorials = r.ByteSlice(MaxTutorialID + 1)
	p.TutorialRewards = r.U64()
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}
