package escrow

import (
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
	mgr    *state.Manager
	engine *Engine
	alice  crypto.Address
	bob    crypto.Address
	mintA  crypto.Address
	mintB  crypto.Address
	clock  int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		mgr:    state.NewManager(storage.NewMemDB()),
		engine: NewEngine(testAddr(0x50)),
		alice:  testAddr(1),
		bob:    testAddr(2),
		mintA:  testAddr(0xA0),
		mintB:  testAddr(0xB0),
		clock:  1_700_000_000,
	}
	env.engine.SetNowFunc(func() int64 { return env.clock })

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		for addr, holdings := range map[crypto.Address]map[crypto.Address]uint64{
			env.alice: {env.mintA: 100},
			env.bob:   {env.mintB: 100},
		} {
			acc, err := b.Create(addr, "genesis")
			if err != nil {
				return err
			}
			for mint, amount := range holdings {
				acc.SetTokenBalance(mint, amount)
			}
			if err := b.Put(addr, acc); err != nil {
				return err
			}
		}
		return nil
	}))
	return env
}

func (env *testEnv) params() Params {
	return Params{
		Counterparty:       env.bob,
		InitiatorToken:     env.mintA,
		InitiatorAmount:    30,
		CounterpartyToken:  env.mintB,
		CounterpartyAmount: 50,
		ExpiresAt:          env.clock + 3600,
	}
}

func (env *testEnv) create(t *testing.T, p Params) crypto.Address {
	t.Helper()
	var addr crypto.Address
	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		var err error
		_, addr, err = env.engine.Create(b, env.alice, p)
		return err
	}))
	return addr
}

func (env *testEnv) tokenBalance(t *testing.T, holder, mint crypto.Address) uint64 {
	t.Helper()
	var balance uint64
	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		acc, ok, err := b.Get(holder)
		if err != nil {
			return err
		}
		if ok {
			balance = acc.TokenBalance(mint)
		}
		return nil
	}))
	return balance
}

func TestCreateMovesInitiatorLegIntoCustody(t *testing.T) {
	env := newTestEnv(t)
	addr := env.create(t, env.params())

	require.Equal(t, uint64(70), env.tokenBalance(t, env.alice, env.mintA))
	require.Equal(t, uint64(30), env.tokenBalance(t, addr, env.mintA))

	require.NoError(t, env.mgr.View(func(b *state.Batch) error {
		esc, err := env.engine.Get(b, addr)
		require.NoError(t, err)
		require.Equal(t, StatusPending, esc.Status)
		require.Equal(t, env.alice, esc.Initiator)
		require.Equal(t, env.bob, esc.Counterparty)
		require.False(t, esc.Open())
		return nil
	}))
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	for name, mutate := range map[string]func(*Params){
		"zero initiator amount":    func(p *Params) { p.InitiatorAmount = 0 },
		"zero counterparty amount": func(p *Params) { p.CounterpartyAmount = 0 },
		"missing initiator token":  func(p *Params) { p.InitiatorToken = crypto.ZeroAddress },
		"same token both legs":     func(p *Params) { p.CounterpartyToken = p.InitiatorToken },
		"self trade":               func(p *Params) { p.Counterparty = env.alice },
		"expiry in the past":       func(p *Params) { p.ExpiresAt = env.clock },
	} {
		p := env.params()
		mutate(&p)
		err := env.mgr.Apply(func(b *state.Batch) error {
			_, _, err := env.engine.Create(b, env.alice, p)
			return err
		})
		require.ErrorIs(t, err, common.ErrValidation, name)
	}
}

func TestCreateInsufficientHoldings(t *testing.T) {
	env := newTestEnv(t)
	p := env.params()
	p.InitiatorAmount = 500

	err := env.mgr.Apply(func(b *state.Batch) error {
		_, _, err := env.engine.Create(b, env.alice, p)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	// The failed create stages nothing.
	require.Equal(t, uint64(100), env.tokenBalance(t, env.alice, env.mintA))
}

func TestAcceptThenComplete(t *testing.T) {
	env := newTestEnv(t)
	addr := env.create(t, env.params())

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		esc, err := env.engine.Accept(b, addr, env.bob)
		if err != nil {
			return err
		}
		require.Equal(t, StatusAccepted, esc.Status)
		require.Equal(t, env.clock, esc.AcceptedAt)
		return nil
	}))
	require.Equal(t, uint64(50), env.tokenBalance(t, env.bob, env.mintB))
	require.Equal(t, uint64(50), env.tokenBalance(t, addr, env.mintB))

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		esc, err := env.engine.Complete(b, addr, env.alice)
		if err != nil {
			return err
		}
		require.Equal(t, StatusCompleted, esc.Status)
		return nil
	}))

	// Both legs settle and custody is empty.
	require.Equal(t, uint64(70), env.tokenBalance(t, env.alice, env.mintA))
	require.Equal(t, uint64(50), env.tokenBalance(t, env.alice, env.mintB))
	require.Equal(t, uint64(30), env.tokenBalance(t, env.bob, env.mintA))
	require.Equal(t, uint64(50), env.tokenBalance(t, env.bob, env.mintB))
	require.Equal(t, uint64(0), env.tokenBalance(t, addr, env.mintA))
	require.Equal(t, uint64(0), env.tokenBalance(t, addr, env.mintB))
}

func TestAcceptRejections(t *testing.T) {
	env := newTestEnv(t)
	addr := env.create(t, env.params())

	err := env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Accept(b, addr, env.alice)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	// Pinned to bob; a third party cannot take it.
	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Accept(b, addr, testAddr(9))
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	env.clock += 7200
	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Accept(b, addr, env.bob)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestOpenOfferAnyTaker(t *testing.T) {
	env := newTestEnv(t)
	carol := testAddr(3)
	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		acc, err := b.Create(carol, "genesis")
		if err != nil {
			return err
		}
		acc.SetTokenBalance(env.mintB, 60)
		return b.Put(carol, acc)
	}))

	p := env.params()
	p.Counterparty = crypto.ZeroAddress
	addr := env.create(t, p)

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		esc, err := env.engine.Accept(b, addr, carol)
		if err != nil {
			return err
		}
		require.Equal(t, carol, esc.Counterparty)
		return nil
	}))
}

func TestCompleteRejections(t *testing.T) {
	env := newTestEnv(t)
	addr := env.create(t, env.params())

	// Pending escrows cannot settle.
	err := env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Complete(b, addr, env.alice)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Accept(b, addr, env.bob)
		return err
	}))

	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Complete(b, addr, testAddr(9))
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestCancelRefundsInitiator(t *testing.T) {
	env := newTestEnv(t)
	addr := env.create(t, env.params())

	err := env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Cancel(b, addr, env.bob)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)

	require.NoError(t, env.mgr.Apply(func(b *state.Batch) error {
		esc, err := env.engine.Cancel(b, addr, env.alice)
		if err != nil {
			return err
		}
		require.Equal(t, StatusCancelled, esc.Status)
		return nil
	}))
	require.Equal(t, uint64(100), env.tokenBalance(t, env.alice, env.mintA))
	require.Equal(t, uint64(0), env.tokenBalance(t, addr, env.mintA))

	// A settled or cancelled escrow stays terminal.
	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Accept(b, addr, env.bob)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)
	err = env.mgr.Apply(func(b *state.Batch) error {
		_, err := env.engine.Cancel(b, addr, env.alice)
		return err
	})
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestGetMissing(t *testing.T) {
	env := newTestEnv(t)
	err := env.mgr.View(func(b *state.Batch) error {
		_, err := env.engine.Get(b, testAddr(0x77))
		return err
	})
	require.ErrorIs(t, err, common.ErrNotFound)
}
