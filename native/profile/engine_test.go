package profile

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

func newTestEngine(t *testing.T) (*Engine, *state.Manager) {
	t.Helper()
	program := testAddr(0x50)
	eng := NewEngine(program)
	eng.SetNowFunc(func() int64 { return 1_700_000_000 })
	return eng, state.NewManager(storage.NewMemDB())
}

func TestCreateProfile(t *testing.T) {
	eng, mgr := newTestEngine(t)
	owner := testAddr(1)

	var created *Profile
	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		var err error
		created, err = eng.Create(b, owner, "alice", "hello", true)
		return err
	}))
	require.Equal(t, owner, created.Owner)
	require.Equal(t, "alice", created.Username)
	require.Equal(t, int64(1_700_000_000), created.JoinedAt)
	require.Equal(t, created.JoinedAt, created.LastActive)

	var got *Profile
	require.NoError(t, mgr.View(func(b *state.Batch) error {
		var err error
		got, err = eng.Get(b, owner)
		return err
	}))
	require.Equal(t, created, got)
}

func TestCreateProfileDuplicate(t *testing.T) {
	eng, mgr := newTestEngine(t)
	owner := testAddr(1)

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, owner, "alice", "", false)
		return err
	}))

	err := mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, owner, "other", "", false)
		return err
	})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreateProfileValidation(t *testing.T) {
	eng, mgr := newTestEngine(t)

	err := mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, testAddr(1), "ab", "", false)
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)

	err = mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, testAddr(1), strings.Repeat("x", MaxUsernameLength+1), "", false)
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)

	err = mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, testAddr(1), "alice", strings.Repeat("x", MaxBioLength+1), false)
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateProfilePartial(t *testing.T) {
	eng, mgr := newTestEngine(t)
	owner := testAddr(1)

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, owner, "alice", "old bio", false)
		return err
	}))

	eng.SetNowFunc(func() int64 { return 1_700_000_100 })
	bio := "new bio"
	var updated *Profile
	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		var err error
		updated, err = eng.Update(b, owner, Update{Bio: &bio})
		return err
	}))
	require.Equal(t, "alice", updated.Username)
	require.Equal(t, "new bio", updated.Bio)
	require.False(t, updated.ShowBalance)
	require.Equal(t, int64(1_700_000_100), updated.LastActive)
	require.Equal(t, int64(1_700_000_000), updated.JoinedAt)
}

func TestUpdateProfileMissing(t *testing.T) {
	eng, mgr := newTestEngine(t)
	name := "ghost"

	err := mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Update(b, testAddr(9), Update{Username: &name})
		return err
	})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCompleteTutorialPaysOnce(t *testing.T) {
	eng, mgr := newTestEngine(t)
	owner := testAddr(1)
	pool := testAddr(0xAA)
	eng.SetRewardPool(pool)

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		if _, err := eng.Create(b, owner, "alice", "", false); err != nil {
			return err
		}
		acc, err := b.Create(pool, "genesis")
		if err != nil {
			return err
		}
		acc.Balance = 1000
		return b.Put(pool, acc)
	}))

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		p, err := eng.CompleteTutorial(b, owner, 3, 50)
		if err != nil {
			return err
		}
		require.True(t, p.HasCompletedTutorial(3))
		require.Equal(t, uint64(50), p.TutorialRewards)
		return nil
	}))

	// Repeat completion neither errors nor pays again.
	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		p, err := eng.CompleteTutorial(b, owner, 3, 50)
		if err != nil {
			return err
		}
		require.Equal(t, uint64(50), p.TutorialRewards)
		return nil
	}))

	require.NoError(t, mgr.View(func(b *state.Batch) error {
		poolAcc, _, err := b.Get(pool)
		require.NoError(t, err)
		require.Equal(t, uint64(950), poolAcc.Balance)
		ownerAcc, _, err := b.Get(owner)
		require.NoError(t, err)
		require.Equal(t, uint64(50), ownerAcc.Balance)
		return nil
	}))
}

func TestCompleteTutorialBounds(t *testing.T) {
	eng, mgr := newTestEngine(t)

	err := mgr.Apply(func(b *state.Batch) error {
		_, err := eng.CompleteTutorial(b, testAddr(1), MaxTutorialID+1, 0)
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestCompleteTutorialPoolUnconfigured(t *testing.T) {
	eng, mgr := newTestEngine(t)
	owner := testAddr(1)

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, owner, "alice", "", false)
		return err
	}))

	err := mgr.Apply(func(b *state.Batch) error {
		_, err := eng.CompleteTutorial(b, owner, 1, 10)
		return err
	})
	require.ErrorIs(t, err, common.ErrFatal)
}

func TestSetPictures(t *testing.T) {
	eng, mgr := newTestEngine(t)
	owner := testAddr(1)
	nft := testAddr(0x33)

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		_, err := eng.Create(b, owner, "alice", "", false)
		return err
	}))

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		p, err := eng.SetNFTPicture(b, owner, nft)
		if err != nil {
			return err
		}
		require.Equal(t, nft, p.NFTPicture)
		return nil
	}))

	err := mgr.Apply(func(b *state.Batch) error {
		_, err := eng.SetNFTPicture(b, owner, crypto.ZeroAddress)
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, mgr.Apply(func(b *state.Batch) error {
		p, err := eng.SetPictureURL(b, owner, "https://img.example/alice.png")
		if err != nil {
			return err
		}
		require.Equal(t, "https://img.example/alice.png", p.PictureURL)
		return nil
	}))

	err = mgr.Apply(func(b *state.Batch) error {
		_, err := eng.SetPictureURL(b, owner, strings.Repeat("x", MaxPictureURLLength+1))
		return err
	})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestProfileRoundTrip(t *testing.T) {
	p := &Profile{
		Owner:              testAddr(1),
		Username:           "alice",
		Bio:                "bio",
		PictureURL:         "https://img.example/a.png",
		NFTPicture:         testAddr(2),
		ShowBalance:        true,
		ReputationScore:    42,
		JoinedAt:           1_700_000_000,
		LastActive:         1_700_000_050,
		CompletedTutorials: []uint8{0, 3, 7},
		TutorialRewards:    150,
	}
	decoded, err := Decode(p.Marshal())
	require.NoError(t, err)
	require.Equal(t, p, decoded)

	_, err = Decode(nil)
	require.Error(t, err)
	_, err = Decode([]byte{0xFF, 0xFF})
	require.Error(t, err)
}
