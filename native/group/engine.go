package group

import (
	"errors"
	"time"

	"commune/core/address"
	"commune/core/events"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

// State is the slice of batch functionality the group engine needs.
type State interface {
	Get(addr crypto.Address) (*types.Account, bool, error)
	Create(addr crypto.Address, owner string) (*types.Account, error)
	Put(addr crypto.Address, acc *types.Account) error
}

// Params collects the immutable settings supplied at group creation.
type Params struct {
	Name                  string
	Description           string
	IsChannel             bool
	IsWhaleGroup          bool
	RequiredToken         crypto.Address
	RequiredAmount        uint64
	RequiredNFTCollection crypto.Address
	RequiredNativeBalance uint64
}

// Engine owns group creation and membership gating.
type Engine struct {
	program crypto.Address
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a group engine bound to the given program identity.
func NewEngine(program crypto.Address) *Engine {
	return &Engine{
		program: program,
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
	e.emitter.Emit(groupEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Load reads and decodes the group record at addr.
func (e *Engine) Load(s State, addr crypto.Address) (*Group, error) {
	acc, ok, err := s.Get(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("group: no group at %s", addr)
	}
	return Decode(acc.Data)
}

func (e *Engine) store(s State, addr crypto.Address, g *Group) error {
	acc, ok, err := s.Get(addr)
	if err != nil {
		return err
	}
	if !ok {
		return common.NotFoundf("group: account %s vanished", addr)
	}
	acc.Data = g.Marshal()
	return s.Put(addr, acc)
}

// Create registers a new group. The (name, creator) pair is the identity:
// a creator reusing a name fails with already-exists. The creator becomes
// the first member and an admin.
func (e *Engine) Create(s State, creator crypto.Address, params Params) (*Group, crypto.Address, error) {
	if err := ValidateName(params.Name); err != nil {
		return nil, crypto.Address{}, err
	}
	if err := ValidateDescription(params.Description); err != nil {
		return nil, crypto.Address{}, err
	}
	if !params.RequiredToken.IsZero() && params.RequiredAmount == 0 {
		return nil, crypto.Address{}, common.Validationf("group: required token without amount")
	}
	addr, _, err := address.Group(e.program, params.Name, creator)
	if err != nil {
		return nil, crypto.Address{}, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(addr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, crypto.Address{}, common.AlreadyExistsf("group: %q already exists for creator %s", params.Name, creator)
		}
		return nil, crypto.Address{}, err
	}
	now := e.now()
	g := &Group{
		Name:                  params.Name,
		Description:           params.Description,
		Creator:               creator,
		IsChannel:             params.IsChannel,
		IsWhaleGroup:          params.IsWhaleGroup,
		RequiredToken:         params.RequiredToken,
		RequiredAmount:        params.RequiredAmount,
		RequiredNFTCollection: params.RequiredNFTCollection,
		RequiredNativeBalance: params.RequiredNativeBalance,
		CreatedAt:             now,
	}
	// The creator joins their own group unconditionally and administers it.
	if _, err := e.createMember(s, addr, creator, true); err != nil {
		return nil, crypto.Address{}, err
	}
	g.MemberCount = 1
	acc.Data = g.Marshal()
	if err := s.Put(addr, acc); err != nil {
		return nil, crypto.Address{}, err
	}
	e.emit(NewCreatedEvent(addr, g))
	return g.Clone(), addr, nil
}

// Join admits member to the group after evaluating the gating rules in their
// fixed order: native balance, then token holding, then NFT collection. Each
// failing rule reports a distinct precondition error. Exactly one membership
// record exists per (group, member) pair.
func (e *Engine) Join(s State, groupAddr, member crypto.Address, tokenProof *TokenProof, nftProof *NFTProof) (*Member, error) {
	g, err := e.Load(s, groupAddr)
	if err != nil {
		return nil, err
	}
	if err := e.checkGating(s, g, member, tokenProof, nftProof); err != nil {
		return nil, err
	}
	record, err := e.createMember(s, groupAddr, member, false)
	if err != nil {
		return nil, err
	}
	g.MemberCount++
	if err := e.store(s, groupAddr, g); err != nil {
		return nil, err
	}
	e.emit(NewJoinedEvent(groupAddr, g, member))
	return record, nil
}

func (e *Engine) checkGating(s State, g *Group, member crypto.Address, tokenProof *TokenProof, nftProof *NFTProof) error {
	if g.RequiredNativeBalance > 0 {
		acc, ok, err := s.Get(member)
		if err != nil {
			return err
		}
		var balance uint64
		if ok {
			balance = acc.Balance
		}
		if balance < g.RequiredNativeBalance {
			return common.Preconditionf("group: balance %d below required %d", balance, g.RequiredNativeBalance)
		}
	}
	if !g.RequiredToken.IsZero() {
		if tokenProof == nil {
			return common.Preconditionf("group: token holding proof required")
		}
		if tokenProof.Owner != member {
			return common.Preconditionf("group: token proof not owned by member")
		}
		if tokenProof.Mint != g.RequiredToken {
			return common.Preconditionf("group: token proof for wrong token")
		}
		if tokenProof.Amount < g.RequiredAmount {
			return common.Preconditionf("group: token holding %d below required %d", tokenProof.Amount, g.RequiredAmount)
		}
	}
	if !g.RequiredNFTCollection.IsZero() {
		if nftProof == nil {
			return common.Preconditionf("group: nft holding proof required")
		}
		if nftProof.Owner != member {
			return common.Preconditionf("group: nft proof not owned by member")
		}
		if nftProof.Collection != g.RequiredNFTCollection {
			return common.Preconditionf("group: nft from wrong collection")
		}
		if nftProof.Amount < 1 {
			return common.Preconditionf("group: nft not held")
		}
	}
	return nil
}

func (e *Engine) createMember(s State, groupAddr, member crypto.Address, isAdmin bool) (*Member, error) {
	memberAddr, _, err := address.Member(e.program, groupAddr, member)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(memberAddr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.AlreadyExistsf("group: %s already a member", member)
		}
		return nil, err
	}
	record := &Member{
		Group:    groupAddr,
		Member:   member,
		JoinedAt: e.now(),
		IsAdmin:  isAdmin,
	}
	acc.Data = record.Marshal()
	if err := s.Put(memberAddr, acc); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// Membership loads the membership record for (group, member), or a
// not-found error when the pair never joined.
func (e *Engine) Membership(s State, groupAddr, member crypto.Address) (*Member, error) {
	memberAddr, _, err := address.Member(e.program, groupAddr, member)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(memberAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("group: %s is not a member", member)
	}
	return DecodeMember(acc.Data)
}

// MarkRead advances the member's last-read message cursor. The cursor only
// moves forward.
func (e *Engine) MarkRead(s State, groupAddr, member crypto.Address, messageID uint64) (*Member, error) {
	memberAddr, _, err := address.Member(e.program, groupAddr, member)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(memberAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("group: %s is not a member", member)
	}
	record, err := DecodeMember(acc.Data)
	if err != nil {
		return nil, err
	}
	if messageID <= record.LastReadMessage {
		return record.Clone(), nil
	}
	record.LastReadMessage = messageID
	acc.Data = record.Marshal()
	if err := s.Put(memberAddr, acc); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// CanAdminister reports whether caller is the group's creator or an admin
// member.
func (e *Engine) CanAdminister(s State, groupAddr crypto.Address, g *Group, caller crypto.Address) (bool, error) {
	if g.Creator == caller {
		return true, nil
	}
	record, err := e.Membership(s, groupAddr, caller)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.IsAdmin, nil
}
