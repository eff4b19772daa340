package invite

import (
	"errors"
	"time"

	"commune/core/address"
	"commune/core/events"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
	"commune/native/group"
)

// State is the slice of batch functionality the invite engine needs.
type State interface {
	Get(addr crypto.Address) (*types.Account, bool, error)
	Create(addr crypto.Address, owner string) (*types.Account, error)
	Put(addr crypto.Address, acc *types.Account) error
}

// Engine issues and redeems group invites. Redemption delegates the join
// itself, gating included, to the group engine.
type Engine struct {
	program crypto.Address
	groups  *group.Engine
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs an invite engine bound to the group engine.
func NewEngine(program crypto.Address, groups *group.Engine) *Engine {
	return &Engine{
		program: program,
		groups:  groups,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

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
	e.emitter.Emit(inviteEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Create issues a new invite for the group. Only the group creator or an
// admin member may issue one, and the (group, code) pair must be unused.
func (e *Engine) Create(s State, groupAddr, caller crypto.Address, code string, maxUses uint32, expiresAt int64) (*Invite, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if maxUses == 0 {
		return nil, common.Validationf("invite: max uses must be positive")
	}
	now := e.now()
	if expiresAt <= now {
		return nil, common.Validationf("invite: expiry must be in the future")
	}
	g, err := e.groups.Load(s, groupAddr)
	if err != nil {
		return nil, err
	}
	ok, err := e.groups.CanAdminister(s, groupAddr, g, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.Preconditionf("invite: caller is not a group admin")
	}
	inviteAddr, _, err := address.Invite(e.program, groupAddr, code)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(inviteAddr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.AlreadyExistsf("invite: code already exists for this group")
		}
		return nil, err
	}
	inv := &Invite{
		Group:     groupAddr,
		Code:      code,
		Creator:   caller,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		MaxUses:   maxUses,
	}
	acc.Data = inv.Marshal()
	if err := s.Put(inviteAddr, acc); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(inviteAddr, inv))
	return inv.Clone(), nil
}

// Use redeems one invite slot for the caller and joins them to the group.
// The group's gating rules still apply; an invite grants entry to the code,
// not an exemption from the requirements. Expiry is checked before the use
// budget so a stale invite reports expiry even when unused slots remain.
func (e *Engine) Use(s State, groupAddr, caller crypto.Address, code string, tokenProof *group.TokenProof, nftProof *group.NFTProof) (*Invite, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	inviteAddr, _, err := address.Invite(e.program, groupAddr, code)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(inviteAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("invite: no such code for this group")
	}
	inv, err := Decode(acc.Data)
	if err != nil {
		return nil, err
	}
	if e.now() >= inv.ExpiresAt {
		return nil, common.Preconditionf("invite: expired")
	}
	if inv.UseCount >= inv.MaxUses {
		return nil, common.Exhaustedf("invite: all %d uses consumed", inv.MaxUses)
	}
	if _, err := e.groups.Join(s, groupAddr, caller, tokenProof, nftProof); err != nil {
		return nil, err
	}
	inv.UseCount++
	acc.Data = inv.Marshal()
	if err := s.Put(inviteAddr, acc); err != nil {
		return nil, err
	}
	e.emit(NewUsedEvent(inviteAddr, inv, caller))
	return inv.Clone(), nil
}

// Get loads one invite by its (group, code) key.
func (e *Engine) Get(s State, groupAddr crypto.Address, code string) (*Invite, error) {
	inviteAddr, _, err := address.Invite(e.program, groupAddr, code)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(inviteAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("invite: no such code for this group")
	}
	return Decode(acc.Data)
}
