package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// AddressLength is the canonical width of a ledger address in bytes.
const AddressLength = 32

// Address represents a 32-byte ledger address. Both signing identities and
// derived program accounts share this representation; only derived accounts
// are guaranteed to have no corresponding private key.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address used as the "unset" sentinel.
var ZeroAddress = Address{}

// NewAddress builds an address from raw bytes.
func NewAddress(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("crypto: address must be %d bytes, got %d", AddressLength, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// MustAddress builds an address from raw bytes and panics on length mismatch.
// Reserved for tests and compile-time constants.
func MustAddress(b []byte) Address {
	a, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return a
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is the unset sentinel.
func (a Address) IsZero() bool { return a == ZeroAddress }

// String renders the address in base58, the text form used across the RPC
// surface and configuration files.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// DecodeAddress parses a base58 address string.
func DecodeAddress(s string) (Address, error) {
	decoded := base58.Decode(s)
	if len(decoded) != AddressLength {
		return Address{}, fmt.Errorf("crypto: invalid address %q", s)
	}
	return NewAddress(decoded)
}

// --- Key management ---

// PrivateKey wraps an ed25519 signing key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PublicKey wraps an ed25519 verification key.
type PublicKey struct {
	key ed25519.PublicKey
}

// GeneratePrivateKey creates a fresh ed25519 keypair.
func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromSeed rebuilds a key from its 32-byte seed.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes", ed25519.SeedSize)
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the 32-byte seed the key was derived from.
func (p *PrivateKey) Seed() []byte {
	return p.key.Seed()
}

// PubKey returns the verification half of the keypair.
func (p *PrivateKey) PubKey() *PublicKey {
	pub, ok := p.key.Public().(ed25519.PublicKey)
	if !ok {
		panic("crypto: unexpected public key type")
	}
	return &PublicKey{key: pub}
}

// Sign produces an ed25519 signature over msg.
func (p *PrivateKey) Sign(msg []byte) ([]byte, error) {
	if p == nil || len(p.key) == 0 {
		return nil, errors.New("crypto: nil private key")
	}
	return ed25519.Sign(p.key, msg), nil
}

// Address derives the ledger address of the keypair, which for signing
// identities is the public key itself.
func (p *PrivateKey) Address() Address {
	return p.PubKey().Address()
}

// Address returns the ledger address backed by this public key.
func (pub *PublicKey) Address() Address {
	var a Address
	copy(a[:], pub.key)
	return a
}

// Bytes returns the raw public key bytes.
func (pub *PublicKey) Bytes() []byte {
	out := make([]byte, len(pub.key))
	copy(out, pub.key)
	return out
}

// Verify checks sig over msg against the public key.
func (pub *PublicKey) Verify(msg, sig []byte) bool {
	if pub == nil || len(pub.key) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub.key, msg, sig)
}

// Equal reports whether two public keys are identical.
func (pub *PublicKey) Equal(other *PublicKey) bool {
	if pub == nil || other == nil {
		return pub == other
	}
	return bytes.Equal(pub.key, other.key)
}
