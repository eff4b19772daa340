package address

import (
	"fmt"
	"testing"

	"filippo.io/edwards25519"
	"github.com/stretchr/testify/require"

	"commune/crypto"
)

func testProgram() crypto.Address {
	return crypto.Address{0xC0, 0x41}
}

func TestDeriveDeterministic(t *testing.T) {
	owner := crypto.Address{0x01}
	first, firstBump, err := Profile(testProgram(), owner)
	require.NoError(t, err)
	second, secondBump, err := Profile(testProgram(), owner)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, firstBump, secondBump)
}

func TestDeriveKindsDisjoint(t *testing.T) {
	a := crypto.Address{0x01}
	b := crypto.Address{0x02}
	memberAddr, _, err := Derive(testProgram(), KindMember, a[:], b[:])
	require.NoError(t, err)
	submissionAddr, _, err := Derive(testProgram(), KindSubmission, a[:], b[:])
	require.NoError(t, err)
	require.NotEqual(t, memberAddr, submissionAddr, "same seeds under different kinds must not collide")
}

func TestDeriveProgramsDisjoint(t *testing.T) {
	owner := crypto.Address{0x01}
	ours, _, err := Profile(testProgram(), owner)
	require.NoError(t, err)
	theirs, _, err := Profile(crypto.Address{0xFF}, owner)
	require.NoError(t, err)
	require.NotEqual(t, ours, theirs)
}

func TestDeriveSeedBounds(t *testing.T) {
	long := make([]byte, MaxSeedLength+1)
	_, _, err := Derive(testProgram(), KindGroup, long)
	require.ErrorIs(t, err, ErrSeedTooLong)

	seeds := make([][]byte, MaxSeeds+1)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	_, _, err = Derive(testProgram(), KindGroup, seeds...)
	require.ErrorIs(t, err, ErrTooManySeeds)
}

func TestDeriveOffCurve(t *testing.T) {
	group := crypto.Address{0x07}
	for id := uint64(1); id <= 64; id++ {
		addr, _, err := Message(testProgram(), group, id)
		require.NoError(t, err)
		_, err = new(edwards25519.Point).SetBytes(addr.Bytes())
		require.Error(t, err, "derived address %s decodes as a curve point", addr)
	}
}

func TestDeriveManyDistinct(t *testing.T) {
	group := crypto.Address{0x07}
	seen := make(map[crypto.Address]uint64, 10000)
	for id := uint64(1); id <= 10000; id++ {
		addr, bump, err := Message(testProgram(), group, id)
		require.NoError(t, err)
		require.LessOrEqual(t, bump, uint8(255))
		prev, dup := seen[addr]
		require.False(t, dup, "message ids %d and %d derive the same address", prev, id)
		seen[addr] = id
	}
}

func TestDeriveHelperTuples(t *testing.T) {
	program := testProgram()
	group := crypto.Address{0x10}
	member := crypto.Address{0x11}

	cases := []struct {
		name   string
		derive func() (crypto.Address, uint8, error)
	}{
		{"profile", func() (crypto.Address, uint8, error) { return Profile(program, member) }},
		{"group", func() (crypto.Address, uint8, error) { return Group(program, "sharks", member) }},
		{"member", func() (crypto.Address, uint8, error) { return Member(program, group, member) }},
		{"message", func() (crypto.Address, uint8, error) { return Message(program, group, 9) }},
		{"escrow", func() (crypto.Address, uint8, error) { return Escrow(program, member, crypto.ZeroAddress, 1700000000) }},
		{"invite", func() (crypto.Address, uint8, error) { return Invite(program, group, "WELCOME") }},
		{"challenge", func() (crypto.Address, uint8, error) { return Challenge(program, member, 1700000000) }},
		{"submission", func() (crypto.Address, uint8, error) { return Submission(program, group, member) }},
		{"vote", func() (crypto.Address, uint8, error) { return Vote(program, group, member) }},
	}
	seen := make(map[crypto.Address]string, len(cases))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			addr, _, err := tc.derive()
			require.NoError(t, err)
			require.False(t, addr.IsZero())
			other, dup := seen[addr]
			require.False(t, dup, fmt.Sprintf("%s collides with %s", tc.name, other))
			seen[addr] = tc.name
		})
	}
}
