package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"commune/crypto"
	"commune/native/common"
	"commune/native/escrow"
	"commune/native/group"
	"commune/native/meme"
	"commune/storage"
)

func testAddr(b byte) crypto.Address {
	var a crypto.Address
	a[0] = b
	return a
}

func newTestNode(t *testing.T) *Node {
	t.Helper()
	node, err := NewNode(storage.NewMemDB(), Config{
		Program:    testAddr(0x50),
		RewardPool: testAddr(0x51),
	})
	require.NoError(t, err)
	node.SetNowFunc(func() int64 { return 1_700_000_000 })
	return node
}

func TestNewNodeRequiresProgram(t *testing.T) {
	_, err := NewNode(storage.NewMemDB(), Config{})
	require.Error(t, err)
}

func TestNodeFullFlow(t *testing.T) {
	node := newTestNode(t)
	alice := testAddr(1)
	bob := testAddr(2)

	require.NoError(t, node.ApplyGenesis(&GenesisSpec{
		Program:    node.Program().String(),
		RewardPool: testAddr(0x51).String(),
		Alloc: []GenesisAllocSpec{
			{Address: testAddr(0x51).String(), Balance: 10_000},
			{Address: alice.String(), Balance: 1_000},
			{Address: bob.String(), Balance: 1_000},
		},
	}))

	_, err := node.CreateProfile(alice, "alice", "hi", true)
	require.NoError(t, err)
	_, err = node.CreateProfile(bob, "bob", "", false)
	require.NoError(t, err)

	p, err := node.CompleteTutorial(alice, 1, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(100), p.TutorialRewards)
	balance, err := node.GetBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1_100), balance)

	_, groupAddr, err := node.CreateGroup(alice, group.Params{Name: "traders"})
	require.NoError(t, err)
	_, err = node.JoinGroup(groupAddr, bob, nil, nil)
	require.NoError(t, err)

	_, err = node.SendMessage(groupAddr, bob, 1, "gm")
	require.NoError(t, err)
	_, err = node.TipMessage(groupAddr, 1, alice, bob, 50)
	require.NoError(t, err)
	m, err := node.GetMessage(groupAddr, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(50), m.TipAmount)

	_, err = node.MarkRead(groupAddr, bob, 1)
	require.NoError(t, err)
	member, err := node.GetMember(groupAddr, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1), member.LastReadMessage)

	_, err = node.CreateInvite(groupAddr, alice, "WELCOME", 2, 1_700_003_600)
	require.NoError(t, err)
	_, err = node.UseInvite(groupAddr, testAddr(3), "WELCOME", nil, nil)
	require.NoError(t, err)

	g, err := node.GetGroup(groupAddr)
	require.NoError(t, err)
	require.Equal(t, uint32(3), g.MemberCount)
}

func TestNodeChallengeFlow(t *testing.T) {
	node := newTestNode(t)
	creator := testAddr(1)
	clock := int64(1_700_000_000)
	node.SetNowFunc(func() int64 { return clock })

	require.NoError(t, node.ApplyGenesis(&GenesisSpec{
		Program: node.Program().String(),
		Alloc:   []GenesisAllocSpec{{Address: creator.String(), Balance: 1_000}},
	}))

	_, challengeAddr, err := node.CreateChallenge(creator, meme.ChallengeParams{
		Title:        "memes",
		Prompt:       "charts",
		RewardAmount: 500,
		StartTime:    clock + 60,
		EndTime:      clock + 3600,
	})
	require.NoError(t, err)

	clock += 60
	_, subAddr, err := node.SubmitMeme(challengeAddr, testAddr(2), meme.SubmissionParams{
		Title:    "entry",
		ImageURL: "https://img.example/m.png",
	})
	require.NoError(t, err)
	_, err = node.VoteMeme(subAddr, testAddr(3))
	require.NoError(t, err)

	clock += 7200
	c, err := node.EndChallenge(challengeAddr, creator, subAddr)
	require.NoError(t, err)
	require.Equal(t, subAddr, c.Winner)

	balance, err := node.GetBalance(testAddr(2))
	require.NoError(t, err)
	require.Equal(t, uint64(500), balance)
}

func TestNodeEscrowFlow(t *testing.T) {
	node := newTestNode(t)
	alice := testAddr(1)
	bob := testAddr(2)
	mintA := testAddr(0xA0)
	mintB := testAddr(0xB0)

	require.NoError(t, node.ApplyGenesis(&GenesisSpec{
		Program: node.Program().String(),
		Alloc: []GenesisAllocSpec{
			{Address: alice.String(), Tokens: map[string]uint64{mintA.String(): 100}},
			{Address: bob.String(), Tokens: map[string]uint64{mintB.String(): 100}},
		},
	}))

	_, escrowAddr, err := node.CreateEscrow(alice, escrow.Params{
		Counterparty:       bob,
		InitiatorToken:     mintA,
		InitiatorAmount:    30,
		CounterpartyToken:  mintB,
		CounterpartyAmount: 50,
		ExpiresAt:          1_700_003_600,
	})
	require.NoError(t, err)
	_, err = node.AcceptEscrow(escrowAddr, bob)
	require.NoError(t, err)
	esc, err := node.CompleteEscrow(escrowAddr, bob)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusCompleted, esc.Status)
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	node := newTestNode(t)
	balance, err := node.GetBalance(testAddr(0x77))
	require.NoError(t, err)
	require.Equal(t, uint64(0), balance)
}

func TestNodeErrorsSurfaceCategories(t *testing.T) {
	node := newTestNode(t)

	_, err := node.GetProfile(testAddr(1))
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoadGenesisFromYAML(t *testing.T) {
	program := testAddr(0x50)
	pool := testAddr(0x51)
	alice := testAddr(1)

	path := filepath.Join(t.TempDir(), "genesis.yaml")
	doc := fmt.Sprintf(`program: %s
rewardPool: %s
alloc:
  - address: %s
    balance: 1000
`, program, pool, alice)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	spec, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Equal(t, program.String(), spec.Program)

	cfg, err := spec.Config()
	require.NoError(t, err)
	require.Equal(t, program, cfg.Program)
	require.Equal(t, pool, cfg.RewardPool)
}

func TestLoadGenesisRejectsBadAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("program: bogus\n"), 0o644))

	_, err := LoadGenesis(path)
	require.Error(t, err)
}

func TestApplyGenesisIdempotent(t *testing.T) {
	node := newTestNode(t)
	alice := testAddr(1)
	spec := &GenesisSpec{
		Program: node.Program().String(),
		Alloc:   []GenesisAllocSpec{{Address: alice.String(), Balance: 500}},
	}

	require.NoError(t, node.ApplyGenesis(spec))

	// Spend some, then re-apply: existing accounts keep their state.
	_, _, err := node.CreateChallenge(alice, meme.ChallengeParams{
		Title:        "memes",
		Prompt:       "charts",
		RewardAmount: 100,
		StartTime:    1_700_000_060,
		EndTime:      1_700_003_600,
	})
	require.NoError(t, err)
	require.NoError(t, node.ApplyGenesis(spec))

	balance, err := node.GetBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(400), balance)
}
