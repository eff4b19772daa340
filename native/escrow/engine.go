package escrow

import (
	"errors"
	"time"

	"commune/core/address"
	"commune/core/events"
	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
)

// State is the slice of batch functionality the escrow engine needs.
type State interface {
	Get(addr crypto.Address) (*types.Account, bool, error)
	Create(addr crypto.Address, owner string) (*types.Account, error)
	Put(addr crypto.Address, acc *types.Account) error
	TransferToken(from, to, mint crypto.Address, amount uint64) error
}

// Engine drives the two-party token swap lifecycle. Funds in flight are
// always held at the escrow's own derived address, never by the engine.
type Engine struct {
	program crypto.Address
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs an escrow engine for the given program address.
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
	e.emitter.Emit(escrowEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Params collects the terms supplied when opening an escrow. A zero
// Counterparty leaves the offer open to any taker.
type Params struct {
	Counterparty       crypto.Address
	Group              crypto.Address
	InitiatorToken     crypto.Address
	InitiatorAmount    uint64
	CounterpartyToken  crypto.Address
	CounterpartyAmount uint64
	ExpiresAt          int64
}

// Create opens a pending escrow and moves the initiator's leg into custody
// at the escrow address. Both legs must be positive, the two tokens must
// differ, and the deadline must be in the future.
func (e *Engine) Create(s State, initiator crypto.Address, p Params) (*Escrow, crypto.Address, error) {
	if p.InitiatorAmount == 0 || p.CounterpartyAmount == 0 {
		return nil, crypto.ZeroAddress, common.Validationf("escrow: both amounts must be positive")
	}
	if p.InitiatorToken.IsZero() || p.CounterpartyToken.IsZero() {
		return nil, crypto.ZeroAddress, common.Validationf("escrow: both token mints are required")
	}
	if p.InitiatorToken == p.CounterpartyToken {
		return nil, crypto.ZeroAddress, common.Validationf("escrow: cannot swap a token for itself")
	}
	if p.Counterparty == initiator {
		return nil, crypto.ZeroAddress, common.Validationf("escrow: cannot trade with yourself")
	}
	now := e.now()
	if p.ExpiresAt <= now {
		return nil, crypto.ZeroAddress, common.Validationf("escrow: expiry must be in the future")
	}
	escrowAddr, _, err := address.Escrow(e.program, initiator, p.Counterparty, now)
	if err != nil {
		return nil, crypto.ZeroAddress, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(escrowAddr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, crypto.ZeroAddress, common.AlreadyExistsf("escrow: identical offer already open")
		}
		return nil, crypto.ZeroAddress, err
	}
	esc := &Escrow{
		Initiator:          initiator,
		Counterparty:       p.Counterparty,
		Group:              p.Group,
		InitiatorToken:     p.InitiatorToken,
		InitiatorAmount:    p.InitiatorAmount,
		CounterpartyToken:  p.CounterpartyToken,
		CounterpartyAmount: p.CounterpartyAmount,
		CreatedAt:          now,
		ExpiresAt:          p.ExpiresAt,
		Status:             StatusPending,
	}
	acc.Data = esc.Marshal()
	if err := s.Put(escrowAddr, acc); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	if err := s.TransferToken(initiator, escrowAddr, p.InitiatorToken, p.InitiatorAmount); err != nil {
		return nil, crypto.ZeroAddress, err
	}
	e.emit(NewCreatedEvent(escrowAddr, esc))
	return esc.Clone(), escrowAddr, nil
}

// Accept locks in the counterparty's leg. Only a pending, unexpired escrow
// can be accepted. On an open offer the caller becomes the counterparty;
// on a pinned one the caller must match it.
func (e *Engine) Accept(s State, escrowAddr, caller crypto.Address) (*Escrow, error) {
	esc, acc, err := e.load(s, escrowAddr)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusPending {
		return nil, common.Preconditionf("escrow: cannot accept a %s escrow", esc.Status)
	}
	if e.now() >= esc.ExpiresAt {
		return nil, common.Preconditionf("escrow: offer expired")
	}
	if caller == esc.Initiator {
		return nil, common.Preconditionf("escrow: initiator cannot accept own offer")
	}
	if !esc.Open() && caller != esc.Counterparty {
		return nil, common.Preconditionf("escrow: offer is pinned to another counterparty")
	}
	esc.Counterparty = caller
	esc.AcceptedAt = e.now()
	esc.Status = StatusAccepted
	acc.Data = esc.Marshal()
	// The transfer restages this same account; the record must be written
	// first or the staged custody balance is lost.
	if err := s.Put(escrowAddr, acc); err != nil {
		return nil, err
	}
	if err := s.TransferToken(caller, escrowAddr, esc.CounterpartyToken, esc.CounterpartyAmount); err != nil {
		return nil, err
	}
	e.emit(NewAcceptedEvent(escrowAddr, esc))
	return esc.Clone(), nil
}

// Complete settles an accepted escrow: custody pays the initiator's leg to
// the counterparty and the counterparty's leg to the initiator. Either
// party may trigger settlement.
func (e *Engine) Complete(s State, escrowAddr, caller crypto.Address) (*Escrow, error) {
	esc, acc, err := e.load(s, escrowAddr)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusAccepted {
		return nil, common.Preconditionf("escrow: cannot complete a %s escrow", esc.Status)
	}
	if caller != esc.Initiator && caller != esc.Counterparty {
		return nil, common.Preconditionf("escrow: only a party to the trade can settle it")
	}
	esc.CompletedAt = e.now()
	esc.Status = StatusCompleted
	acc.Data = esc.Marshal()
	if err := s.Put(escrowAddr, acc); err != nil {
		return nil, err
	}
	if err := s.TransferToken(escrowAddr, esc.Counterparty, esc.InitiatorToken, esc.InitiatorAmount); err != nil {
		return nil, err
	}
	if err := s.TransferToken(escrowAddr, esc.Initiator, esc.CounterpartyToken, esc.CounterpartyAmount); err != nil {
		return nil, err
	}
	e.emit(NewCompletedEvent(escrowAddr, esc))
	return esc.Clone(), nil
}

// Cancel refunds a pending escrow to its initiator. Only the initiator may
// cancel, and only before the offer is accepted.
func (e *Engine) Cancel(s State, escrowAddr, caller crypto.Address) (*Escrow, error) {
	esc, acc, err := e.load(s, escrowAddr)
	if err != nil {
		return nil, err
	}
	if esc.Status != StatusPending {
		return nil, common.Preconditionf("escrow: cannot cancel a %s escrow", esc.Status)
	}
	if caller != esc.Initiator {
		return nil, common.Preconditionf("escrow: only the initiator can cancel")
	}
	esc.Status = StatusCancelled
	acc.Data = esc.Marshal()
	if err := s.Put(escrowAddr, acc); err != nil {
		return nil, err
	}
	if err := s.TransferToken(escrowAddr, esc.Initiator, esc.InitiatorToken, esc.InitiatorAmount); err != nil {
		return nil, err
	}
	e.emit(NewCancelledEvent(escrowAddr, esc))
	return esc.Clone(), nil
}

// Get loads one escrow record by address.
func (e *Engine) Get(s State, escrowAddr crypto.Address) (*Escrow, error) {
	esc, _, err := e.load(s, escrowAddr)
	if err != nil {
		return nil, err
	}
	return esc.Clone(), nil
}

func (e *Engine) load(s State, escrowAddr crypto.Address) (*Escrow, *types.Account, error) {
	acc, ok, err := s.Get(escrowAddr)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, common.NotFoundf("escrow: no escrow at %s", escrowAddr)
	}
	esc, err := Decode(acc.Data)
	if err != nil {
		return nil, nil, err
	}
	return esc, acc, nil
}
