package message

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

// State is the slice of batch functionality the message ledger needs.
type State interface {
	Get(addr crypto.Address) (*types.Account, bool, error)
	Create(addr crypto.Address, owner string) (*types.Account, error)
	Put(addr crypto.Address, acc *types.Account) error
	Transfer(from, to crypto.Address, amount uint64) error
}

// Engine is the per-group append-only message ledger.
type Engine struct {
	program crypto.Address
	groups  *group.Engine
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a message ledger bound to the group engine that owns
// membership records.
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
	e.emitter.Emit(messageEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Send appends a message to the group's sequence. The sender supplies the
// message id, but it must exceed every id committed for the group so far;
// the account creation at the derived (group, id) address is what rejects
// replays of an already-used id.
func (e *Engine) Send(s State, groupAddr, sender crypto.Address, messageID uint64, content string) (*Message, error) {
	if content == "" {
		return nil, common.Validationf("message: empty content")
	}
	if len(content) > MaxContentLength {
		return nil, common.Validationf("message: content longer than %d bytes", MaxContentLength)
	}
	if messageID == 0 {
		return nil, common.Validationf("message: message id must be positive")
	}
	g, err := e.groups.Load(s, groupAddr)
	if err != nil {
		return nil, err
	}
	if _, err := e.groups.Membership(s, groupAddr, sender); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Preconditionf("message: %s is not a member of the group", sender)
		}
		return nil, err
	}
	if g.IsChannel && sender != g.Creator {
		return nil, common.Preconditionf("message: only the creator posts to a channel")
	}
	if messageID <= g.LastMessageID {
		return nil, common.Preconditionf("message: id %d not greater than last committed %d", messageID, g.LastMessageID)
	}
	msgAddr, _, err := address.Message(e.program, groupAddr, messageID)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, err := s.Create(msgAddr, e.program.String())
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.AlreadyExistsf("message: id %d already committed", messageID)
		}
		return nil, err
	}
	now := e.now()
	m := &Message{
		Group:     groupAddr,
		MessageID: messageID,
		Sender:    sender,
		Content:   content,
		Timestamp: now,
	}
	acc.Data = m.Marshal()
	if err := s.Put(msgAddr, acc); err != nil {
		return nil, err
	}
	g.LastMessageID = messageID
	g.LastMessageAt = now
	groupAcc, ok, err := s.Get(groupAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("message: group account %s vanished", groupAddr)
	}
	groupAcc.Data = g.Marshal()
	if err := s.Put(groupAddr, groupAcc); err != nil {
		return nil, err
	}
	e.emit(NewSentEvent(msgAddr, m))
	return m.Clone(), nil
}

// Tip transfers amount from tipper to the message sender and accumulates it
// on the message record. Tipping one's own message is rejected.
func (e *Engine) Tip(s State, groupAddr crypto.Address, messageID uint64, tipper, recipient crypto.Address, amount uint64) (*Message, error) {
	if amount == 0 {
		return nil, common.Validationf("message: tip amount must be positive")
	}
	msgAddr, _, err := address.Message(e.program, groupAddr, messageID)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(msgAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("message: no message %d in group", messageID)
	}
	m, err := Decode(acc.Data)
	if err != nil {
		return nil, err
	}
	if recipient != m.Sender {
		return nil, common.Validationf("message: tip recipient is not the sender")
	}
	if tipper == m.Sender {
		return nil, common.Preconditionf("message: cannot tip own message")
	}
	if err := s.Transfer(tipper, recipient, amount); err != nil {
		return nil, err
	}
	m.TipAmount += amount
	acc.Data = m.Marshal()
	if err := s.Put(msgAddr, acc); err != nil {
		return nil, err
	}
	e.emit(NewTippedEvent(msgAddr, m, tipper, amount))
	return m.Clone(), nil
}

// Get loads one message by its (group, id) key.
func (e *Engine) Get(s State, groupAddr crypto.Address, messageID uint64) (*Message, error) {
	msgAddr, _, err := address.Message(e.program, groupAddr, messageID)
	if err != nil {
		return nil, common.Wrap(common.ErrFatal, err)
	}
	acc, ok, err := s.Get(msgAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundf("message: no message %d in group", messageID)
	}
	return Decode(acc.Data)
}
