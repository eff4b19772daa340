package profile

import (
	"errors"
	"time"

	"commune/core/address"
	"commune/core/events"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

// State is the slice of batch functionality the profile engine needs.
type State interface {
	Get(addr crypto.Address) (*types.Account, bool, error)
	Create(addr crypto.Address, owner string) (*types.Account, error)
	Put(addr crypto.Address, acc *types.Account) error
	Transfer(from, to crypto.Address, amount uint64) error
}

// Engine owns profile creation, mutation and tutorial progress. All state
// flows through the batch supplied per call; the engine itself carries only
// configuration.
type Engine struct {
	program    crypto.Address
	rewardPool crypto.Address
	emitter    events.Emitter
	nowFn      func() int64
}

// NewEngine constructs a profile engine bound to the given program identity.
func NewEngine(program crypto.Address) *Engine {
	return &Engine{
		program: program,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetRewardPool configures the account that funds tutorial rewards.
func (e *Engine) SetRewardPool(addr crypto.Address) { e.rewardPool = addr }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(profileEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) load(s State, owner crypto.Address) (crypto.Address, *Profile, error) {
	addr, _, err := address.Profile(e.program, owner)
	if err != nil {
		return crypto.Address{}, nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(addr)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	if !ok {
		return crypto.Address{}, nil, common.NotFoundf("profile: no profile for %s", owner)
	}
	p, err := Decode(acc.Data)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return addr, p, nil
}

func (e *Engine) store(s State, addr crypto.Address, p *Profile) error {
	acc, ok, err := s.Get(addr)
	if err != nil {
		return err
	}
	if !ok {
		return common.NotFoundf("profile: account %s vanished", addr)
	}
	acc.Data = p.Marshal()
	return s.Put(addr, acc)
}

// Create registers the one-per-owner profile. A second create for the same
// owner fails with the already-exists category instead of overwriting.
func (e *Engine) Create(s State, owner crypto.Address, username, bio string, showBalance bool) (*Profile, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateBio(bio); err != nil {
		return nil, err
	}
	addr, _, err := address.Profile(e.program, owner)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(addr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.AlreadyExistsf("profile: profile already exists for %s", owner)
		}
		return nil, err
	}
	now := e.now()
	p := &Profile{
		Owner:       owner,
		Username:    username,
		Bio:         bio,
		ShowBalance: showBalance,
		JoinedAt:    now,
		LastActive:  now,
	}
	acc.Data = p.Marshal()
	if err := s.Put(addr, acc); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(p))
	return p.Clone(), nil
}

// Update applies a partial profile mutation for the owner. Nil fields are
// left untouched.
type Update struct {
	Username    *string
	Bio         *string
	ShowBalance *bool
}

// Update mutates the owner's profile in place. Only the owner may call it;
// callers are authenticated by the execution environment before reaching the
// engine.
func (e *Engine) Update(s State, owner crypto.Address, update Update) (*Profile, error) {
	if update.Username != nil {
		if err := ValidateUsername(*update.Username); err != nil {
			return nil, err
		}
	}
	if update.Bio != nil {
		if err := ValidateBio(*update.Bio); err != nil {
			return nil, err
		}
	}
	addr, p, err := e.load(s, owner)
	if err != nil {
		return nil, err
	}
	if p.Owner != owner {
		return nil, common.Preconditionf("profile: caller does not own profile")
	}
	if update.Username != nil {
		p.Username = *update.Username
	}
	if update.Bio != nil {
		p.Bio = *update.Bio
	}
	if update.ShowBalance != nil {
		p.ShowBalance = *update.ShowBalance
	}
	p.LastActive = e.now()
	if err := e.store(s, addr, p); err != nil {
		return nil, err
	}
	e.emit(NewUpdatedEvent(p))
	return p.Clone(), nil
}

// CompleteTutorial appends tutorialID to the completed set and pays the
// reward once. Repeating a completed tutorial is a no-op and never pays
// twice.
func (e *Engine) CompleteTutorial(s State, owner crypto.Address, tutorialID uint8, reward uint64) (*Profile, error) {
	if tutorialID > MaxTutorialID {
		return nil, common.Validationf("profile: tutorial id %d out of range", tutorialID)
	}
	addr, p, err := e.load(s, owner)
	if err != nil {
		return nil, err
	}
	if p.HasCompletedTutorial(tutorialID) {
		return p.Clone(), nil
	}
	if reward > 0 {
		if e.rewardPool.IsZero() {
			return nil, common.Fatalf("profile: reward pool not configured")
		}
		if err := s.Transfer(e.rewardPool, owner, reward); err != nil {
			return nil, err
		}
	}
	p.CompletedTutorials = append(p.CompletedTutorials, tutorialID)
	p.TutorialRewards += reward
	p.LastActive = e.now()
	if err := e.store(s, addr, p); err != nil {
		return nil, err
	}
	e.emit(NewTutorialEvent(p, tutorialID, reward))
	return p.Clone(), nil
}

// SetNFTPicture stores an NFT reference already verified by the execution
// environment. The engine records the fact, it does not prove ownership.
func (e *Engine) SetNFTPicture(s State, owner, nftRef crypto.Address) (*Profile, error) {
	if nftRef.IsZero() {
		return nil, common.Validationf("profile: empty nft reference")
	}
	addr, p, err := e.load(s, owner)
	if err != nil {
		return nil, err
	}
	p.NFTPicture = nftRef
	p.LastActive = e.now()
	if err := e.store(s, addr, p); err != nil {
		return nil, err
	}
	e.emit(NewUpdatedEvent(p))
	return p.Clone(), nil
}

// SetPictureURL stores a hosted picture reference.
func (e *Engine) SetPictureURL(s State, owner crypto.Address, url string) (*Profile, error) {
	if len(url) > MaxPictureURLLength {
		return nil, common.Validationf("profile: picture url longer than %d bytes", MaxPictureURLLength)
	}
	addr, p, err := e.load(s, owner)
	if err != nil {
		return nil, err
	}
	p.PictureURL = url
	p.LastActive = e.now()
	if err := e.store(s, addr, p); err != nil {
		return nil, err
	}
	e.emit(NewUpdatedEvent(p))
	return p.Clone(), nil
}

// Get loads the profile for owner.
func (e *Engine) Get(s State, owner crypto.Address) (*Profile, error) {
	_, p, err := e.load(s, owner)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}
