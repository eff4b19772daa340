package address

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"commune/crypto"
)

// Kind selects the fixed ASCII tag prefixed to a derivation's seed material.
type Kind string

const (
	KindProfile    Kind = "user"
	KindGroup      Kind = "group"
	KindMember     Kind = "member"
	KindMessage    Kind = "message"
	KindEscrow     Kind = "escrow"
	KindInvite     Kind = "invite"
	KindChallenge  Kind = "challenge"
	KindSubmission Kind = "submission"
	KindVote       Kind = "voter"
)

const (
	// MaxSeedLength bounds each individual seed field.
	MaxSeedLength = 32
	// MaxSeeds bounds the number of seed fields per derivation.
	MaxSeeds = 16
)

// derivedMarker domain-separates derived account hashes from any other use
// of SHA-256 in the protocol.
var derivedMarker = []byte("CommuneDerivedAccount")

var (
	// ErrBumpExhausted is returned when no bump in [0,255] yields an
	// off-curve candidate. This is an environment fault, not a caller error.
	ErrBumpExhausted = errors.New("address: bump search space exhausted")
	// ErrSeedTooLong marks an oversized seed field.
	ErrSeedTooLong = errors.New("address: seed exceeds 32 bytes")
	// ErrTooManySeeds marks a derivation with too many seed fields.
	ErrTooManySeeds = errors.New("address: too many seed fields")
)

// Derive maps (kind, seeds) to the canonical program account address and its
// disambiguation bump. The search walks the bump from 255 down and returns
// the first candidate hash that is not a valid point on the ed25519 curve,
// guaranteeing no private key can ever sign for the address. Identical
// inputs always yield the identical (address, bump) pair.
func Derive(program crypto.Address, kind Kind, seeds ...[]byte) (crypto.Address, uint8, error) {
	if len(seeds) > MaxSeeds {
		return crypto.Address{}, 0, fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return crypto.Address{}, 0, fmt.Errorf("%w (seed %d, %d bytes)", ErrSeedTooLong, i, len(seed))
		}
	}
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		h.Write([]byte(kind))
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{uint8(bump)})
		h.Write(program[:])
		h.Write(derivedMarker)
		candidate := h.Sum(nil)
		if !onCurve(candidate) {
			addr, err := crypto.NewAddress(candidate)
			if err != nil {
				return crypto.Address{}, 0, err
			}
			return addr, uint8(bump), nil
		}
	}
	return crypto.Address{}, 0, ErrBumpExhausted
}

// onCurve reports whether b decodes to a valid ed25519 curve point, i.e.
// whether some private key could control it.
func onCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// Uint64Seed encodes v as the fixed-width little-endian seed bytes the
// derivation contract requires for 64-bit integers.
func Uint64Seed(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

// Int64Seed encodes a signed 64-bit value (timestamps) as its little-endian
// two's-complement bytes.
func Int64Seed(v int64) []byte {
	return Uint64Seed(uint64(v))
}

// --- Per-entity derivations ---

// Profile derives the one-per-owner profile address.
func Profile(program, owner crypto.Address) (crypto.Address, uint8, error) {
	return Derive(program, KindProfile, owner[:])
}

// Group derives a group address from its creator-scoped name.
func Group(program crypto.Address, name string, creator crypto.Address) (crypto.Address, uint8, error) {
	return Derive(program, KindGroup, []byte(name), creator[:])
}

// Member derives the membership record address for (group, member).
func Member(program, group, member crypto.Address) (crypto.Address, uint8, error) {
	return Derive(program, KindMember, group[:], member[:])
}

// Message derives a message address from its per-group sequence number.
func Message(program, group crypto.Address, messageID uint64) (crypto.Address, uint8, error) {
	return Derive(program, KindMessage, group[:], Uint64Seed(messageID))
}

// Escrow derives an escrow address from its initiator and creation time.
func Escrow(program, initiator, counterparty crypto.Address, createdAt int64) (crypto.Address, uint8, error) {
	return Derive(program, KindEscrow, initiator[:], counterparty[:], Int64Seed(createdAt))
}

// Invite derives an invite address from its group-scoped code.
func Invite(program, group crypto.Address, code string) (crypto.Address, uint8, error) {
	return Derive(program, KindInvite, group[:], []byte(code))
}

// Challenge derives a meme challenge address from its creator and start time.
func Challenge(program, creator crypto.Address, startTime int64) (crypto.Address, uint8, error) {
	return Derive(program, KindChallenge, creator[:], Int64Seed(startTime))
}

// Submission derives the one-per-submitter submission address.
func Submission(program, challenge, submitter crypto.Address) (crypto.Address, uint8, error) {
	return Derive(program, KindSubmission, challenge[:], submitter[:])
}

// Vote derives the one-per-voter vote record address for a submission.
func Vote(program, submission, voter crypto.Address) (crypto.Address, uint8, error) {
	return Derive(program, KindVote, submission[:], voter[:])
}
