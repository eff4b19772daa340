package meme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"commune/core/state"
	"commune/crypto"
	"commune/native/common"
	"commune/storage"
)

func testAddr(b byte) crypto.Address {
	var a crypto.Address
	a[0] = b
	return a
}

type testEnv struct {
	mgr     *state.Manager
	engine  *Engine
	creator crypto.Address
	clock   int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		mgr:     state.NewManager(storage.NewMemDB()),
		engine:  NewEngine(testAddr(0x50)),
		creator: testAddr(1),
		clock:   1_700_000_000,
	}
	env.engine.SetNowFunc(func() int64 { return env.clock })

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		acc, err := b.Create(env.creator, "genesis")
		if err != nil {
			return err
		}
		acc.Balance = 1000
		return b.Put(env.creator, acc)
	}))
	return env
}

func (env *testEnv) params() ChallengeParams {
	return ChallengeParams{
		Title:        "friday memes",
		Description:  "best meme wins",
		Prompt:       "markets this week",
		RewardAmount: 500,
		StartTime:    env.clock + 60,
		EndTime:      env.clock + 3600,
	}
}

// createChallenge opens a contest and advances the clock to its start so
// that follow-up submissions land inside the window.
func (env *testEnv) createChallenge(t *testing.T) crypto.Address {
	t.Helper()
	p := env.params()
	var addr crypto.Address
	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		var err error
		_, addr, err = env.engine.CreateChallenge(b, env.creator, p)
		return err
	}))
	env.clock = p.StartTime
	return addr
}

func (env *testEnv) submit(t *testing.T, challenge, submitter crypto.Address) crypto.Address {
	t.Helper()
	var addr crypto.Address
	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		var err error
		_, addr, err = env.engine.Submit(b, challenge, submitter, SubmissionParams{
			Title:    "entry",
			ImageURL: "https://img.example/meme.png",
		})
		return err
	}))
	return addr
}

func (env *testEnv) vote(submission, voter crypto.Address) error {
	return env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Vote(b, submission, voter)
		return err
	})
}

func (env *testEnv) balance(t *testing.T, addr crypto.Address) uint64 {
	t.Helper()
	var balance uint64
	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		acc, ok, err := b.Get(addr)
		if err != nil {
			return err
		}
		if ok {
			balance = acc.Balance
		}
		return nil
	}))
	return balance
}

func TestCreateChallengeMovesRewardIntoCustody(t *testing.T) {
	env := newTestEnv(t)
	addr := env.createChallenge(t)

	require.Equal(t, uint64(500), env.balance(t, env.creator))
	require.Equal(t, uint64(500), env.balance(t, addr))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		c, err := env.engine.GetChallenge(b, addr)
		require.NoError(t, err)
		require.Equal(t, env.clock, c.StartTime)
		require.False(t, c.Decided())
		require.True(t, c.Leader.IsZero())
		return nil
	}))
}

func TestCreateChallengeValidation(t *testing.T) {
	env := newTestEnv(t)

	for name, mutate := range map[string]func(*ChallengeParams){
		"empty title":      func(p *ChallengeParams) { p.Title = "" },
		"long title":       func(p *ChallengeParams) { p.Title = strings.Repeat("x", MaxTitleLength+1) },
		"long description": func(p *ChallengeParams) { p.Description = strings.Repeat("x", MaxDescriptionLength+1) },
		"empty prompt":     func(p *ChallengeParams) { p.Prompt = "" },
		"zero reward":      func(p *ChallengeParams) { p.RewardAmount = 0 },
		"start in past":    func(p *ChallengeParams) { p.StartTime = env.clock },
		"end before start": func(p *ChallengeParams) { p.EndTime = p.StartTime },
	} {
		p := env.params()
		mutate(&p)
		err := env.mgr.Apply(func(b *state.Batch) error {
			_, _, err := env.engine.CreateChallenge(b, env.creator, p)
			return err
		})
		require.ErrorIs(t, err, common.ErrValidation, name)
	}
}

func TestSubmitOncePerSubmitter(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)
	submitter := testAddr(2)

	env.submit(t, challenge, submitter)

	err := env.mgr.Apply(func(b *state.Batch) error {
		_, _, err := env.engine.Submit(b, challenge, submitter, SubmissionParams{Title: "again", ImageURL: "https://img.example/2.png"})
		return err
	})
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		c, err := env.engine.GetChallenge(b, challenge)
		require.NoError(t, err)
		require.Equal(t, uint32(1), c.SubmissionCount)
		return nil
	}))
}

func TestSubmitWindow(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)

	env.clock += 7200
	err := env.mgr.Apply(func(b *state.Batch) error {
		_, _, err := env.engine.Submit(b, challenge, testAddr(2), SubmissionParams{Title: "late", ImageURL: "https://img.example/l.png"})
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestSubmitBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	p := env.params()
	var challenge crypto.Address
	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		var err error
		_, challenge, err = env.engine.CreateChallenge(b, env.creator, p)
		return err
	}))

	err := env.mgr.Apply(func(b *state.Batch) error {
		_, _, err := env.engine.Submit(b, challenge, testAddr(2), SubmissionParams{Title: "early", ImageURL: "https://img.example/e.png"})
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	env.clock = p.StartTime
	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		_, _, err := env.engine.Submit(b, challenge, testAddr(2), SubmissionParams{Title: "on time", ImageURL: "https://img.example/e.png"})
		return err
	}))
}

func TestFirstSubmissionLeads(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)
	first := env.submit(t, challenge, testAddr(2))
	env.clock += 10
	env.submit(t, challenge, testAddr(3))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		c, err := env.engine.GetChallenge(b, challenge)
		require.NoError(t, err)
		require.Equal(t, first, c.Leader)
		require.Equal(t, uint32(0), c.LeaderVotes)
		return nil
	}))
}

func TestVote(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)
	sub := env.submit(t, challenge, testAddr(2))

	require.NoError(t, env.vote(sub, testAddr(3)))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		s, err := env.engine.GetSubmission(b, challenge, testAddr(2))
		require.NoError(t, err)
		require.Equal(t, uint32(1), s.Votes)
		c, err := env.engine.GetChallenge(b, challenge)
		require.NoError(t, err)
		require.Equal(t, uint64(1), c.TotalVotes)
		require.Equal(t, uint32(1), c.LeaderVotes)
		return nil
	}))
}

func TestVoteRejections(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)
	sub := env.submit(t, challenge, testAddr(2))

	require.ErrorIs(t, env.vote(sub, testAddr(2)), common.ErrPrecondition)

	require.NoError(t, env.vote(sub, testAddr(3)))
	require.ErrorIs(t, env.vote(sub, testAddr(3)), common.ErrAlreadyExists)

	require.ErrorIs(t, env.vote(testAddr(0x77), testAddr(3)), common.ErrNotFound)

	env.clock += 7200
	require.ErrorIs(t, env.vote(sub, testAddr(4)), common.ErrPrecondition)
}

func TestLeaderTracksVotes(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)
	first := env.submit(t, challenge, testAddr(2))
	env.clock += 10
	second := env.submit(t, challenge, testAddr(3))

	require.NoError(t, env.vote(second, testAddr(4)))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		c, err := env.engine.GetChallenge(b, challenge)
		require.NoError(t, err)
		require.Equal(t, second, c.Leader)
		return nil
	}))

	// Equal tallies hand the lead back to the earlier submission.
	require.NoError(t, env.vote(first, testAddr(5)))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		c, err := env.engine.GetChallenge(b, challenge)
		require.NoError(t, err)
		require.Equal(t, first, c.Leader)
		return nil
	}))
}

func TestEndChallenge(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)
	winner := env.submit(t, challenge, testAddr(2))
	env.clock += 10
	loser := env.submit(t, challenge, testAddr(3))
	require.NoError(t, env.vote(winner, testAddr(4)))

	end := func(caller, submission crypto.Address) error {
		return env.mgr.Apply(func(b *state.Batch) error {
			_, err := env.engine.EndChallenge(b, challenge, caller, submission)
			return err
		})
	}

	// Still running.
	require.ErrorIs(t, end(env.creator, winner), common.ErrPrecondition)

	env.clock += 7200
	require.ErrorIs(t, end(testAddr(9), winner), common.ErrPrecondition)
	require.ErrorIs(t, end(env.creator, loser), common.ErrPrecondition)

	require.NoError(t, end(env.creator, winner))
	require.Equal(t, uint64(500), env.balance(t, testAddr(2)))
	require.Equal(t, uint64(0), env.balance(t, challenge))

	// Ending twice is rejected; the prize only moves once.
	require.ErrorIs(t, end(env.creator, winner), common.ErrPrecondition)

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		c, err := env.engine.GetChallenge(b, challenge)
		require.NoError(t, err)
		require.Equal(t, winner, c.Winner)
		require.True(t, c.Decided())
		return nil
	}))
}

func TestEndChallengeNoSubmissions(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.createChallenge(t)

	env.clock += 7200
	err := env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.EndChallenge(b, challenge, env.creator, testAddr(9))
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)
}
