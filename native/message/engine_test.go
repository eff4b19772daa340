package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"commune/core/state"
	"commune/crypto"
	"commune/native/common"
	"commune/native/group"
	"commune/storage"
)

func testAddr(b byte) crypto.Address {
	var a crypto.Address
	a[0] = b
	return a
}

type testEnv struct {
	mgr     *state.Manager
	groups  *group.Engine
	engine  *Engine
	creator crypto.Address
	member  crypto.Address
	group   crypto.Address
}

func newTestEnv(t *testing.T, params group.Params) *testEnv {
	t.Helper()
	program := testAddr(0x50)
	groups := group.NewEngine(program)
	groups.SetNowFunc(func() int64 { return 1_700_000_000 })
	eng := NewEngine(program, groups)
	eng.SetNowFunc(func() int64 { return 1_700_000_000 })

	env := &testEnv{
		mgr:     state.NewManager(storage.NewMemDB()),
		groups:  groups,
		engine:  eng,
		creator: testAddr(1),
		member:  testAddr(2),
	}
	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		_, addr, err := groups.Create(b, env.creator, params)
		if err != nil {
			return err
		}
		env.group = addr
		_, err = groups.Join(b, addr, env.member, nil, nil)
		return err
	}))
	return env
}

func (env *testEnv) send(t *testing.T, sender crypto.Address, id uint64, content string) error {
	t.Helper()
	return env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Send(b, env.group, sender, id, content)
		return err
	})
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t, group.Params{Name: "g"})

	require.NoError(t, env.send(t, env.member, 1, "hello"))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		m, err := env.engine.Get(b, env.group, 1)
		require.NoError(t, err)
		require.Equal(t, env.member, m.Sender)
		require.Equal(t, "hello", m.Content)
		require.Equal(t, int64(1_700_000_000), m.Timestamp)

		g, err := env.groups.Load(b, env.group)
		require.NoError(t, err)
		require.Equal(t, uint64(1), g.LastMessageID)
		require.Equal(t, int64(1_700_000_000), g.LastMessageAt)
		return nil
	}))
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t, group.Params{Name: "g"})

	require.ErrorIs(t, env.send(t, env.member, 1, ""), common.ErrValidation)
	require.ErrorIs(t, env.send(t, env.member, 1, strings.Repeat("x", MaxContentLength+1)), common.ErrValidation)
	require.ErrorIs(t, env.send(t, env.member, 0, "hi"), common.ErrValidation)
}

func TestSendRequiresMembership(t *testing.T) {
	env := newTestEnv(t, group.Params{Name: "g"})

	err := env.send(t, testAddr(9), 1, "hi")
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestSendChannelRestriction(t *testing.T) {
	env := newTestEnv(t, group.Params{Name: "announce", IsChannel: true})

	require.ErrorIs(t, env.send(t, env.member, 1, "hi"), common.ErrPrecondition)
	require.NoError(t, env.send(t, env.creator, 1, "announcement"))
}

func TestSendIDsStrictlyIncrease(t *testing.T) {
	env := newTestEnv(t, group.Params{Name: "g"})

	require.NoError(t, env.send(t, env.member, 5, "first"))

	require.ErrorIs(t, env.send(t, env.member, 5, "replay"), common.ErrPrecondition)
	require.ErrorIs(t, env.send(t, env.member, 3, "stale"), common.ErrPrecondition)

	// Gaps are fine as long as the id moves forward.
	require.NoError(t, env.send(t, env.member, 12, "second"))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		g, err := env.groups.Load(b, env.group)
		require.NoError(t, err)
		require.Equal(t, uint64(12), g.LastMessageID)
		return nil
	}))
}

func TestTip(t *testing.T) {
	env := newTestEnv(t, group.Params{Name: "g"})
	require.NoError(t, env.send(t, env.member, 1, "tip me"))

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		acc, err := b.Create(env.creator, "genesis")
		if err != nil {
			return err
		}
		acc.Balance = 100
		return b.Put(env.creator, acc)
	}))

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		m, err := env.engine.Tip(b, env.group, 1, env.creator, env.member, 40)
		if err != nil {
			return err
		}
		require.Equal(t, uint64(40), m.TipAmount)
		return nil
	}))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		tipper, _, err := b.Get(env.creator)
		require.NoError(t, err)
		require.Equal(t, uint64(60), tipper.Balance)
		sender, _, err := b.Get(env.member)
		require.NoError(t, err)
		require.Equal(t, uint64(40), sender.Balance)
		return nil
	}))
}

func TestTipRejections(t *testing.T) {
	env := newTestEnv(t, group.Params{Name: "g"})
	require.NoError(t, env.send(t, env.member, 1, "tip me"))

	err := env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Tip(b, env.group, 1, env.creator, env.member, 0)
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)

	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Tip(b, env.group, 1, env.creator, testAddr(9), 10)
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)

	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Tip(b, env.group, 1, env.member, env.member, 10)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Tip(b, env.group, 7, env.creator, env.member, 10)
		return err
	})
	require.ErrorIs(t, err, common.ErrNotFound)

	// Tipper with no funds fails the transfer.
	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Tip(b, env.group, 1, env.creator, env.member, 10)
		return err
	})
	require.Error(t, err)
}
