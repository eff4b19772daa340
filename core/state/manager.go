package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"commune/core/types"
	"commune/crypto"
	"commune/native/common"
	"commune/storage"
)

var (
	// ErrAccountNotFound marks reads of addresses with no committed account.
	ErrAccountNotFound = common.Wrap(common.ErrNotFound, errors.New("state: account not found"))
	// ErrAccountExists marks a create at an occupied address. Every
	// exactly-once rule in the protocol bottoms out in this error.
	ErrAccountExists = common.Wrap(common.ErrAlreadyExists, errors.New("state: account already exists"))
	// ErrInsufficientFunds marks a debit below zero.
	ErrInsufficientFunds = common.Wrap(common.ErrPrecondition, errors.New("state: insufficient funds"))
	// ErrBatchClosed marks use of a batch after commit or abort.
	ErrBatchClosed = errors.New("state: batch closed")
)

var accountPrefix = []byte("account/")

func accountKey(addr crypto.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

// envelope is the persisted account representation. RLP keeps the layout
// canonical without hand-rolling another framing format; the entity payload
// inside Data carries its own versioned wire layout.
type envelope struct {
	Owner   string
	Balance uint64
	Tokens  []tokenEnvelope
	Data    []byte
}

type tokenEnvelope struct {
	Mint   [crypto.AddressLength]byte
	Amount uint64
}

func encodeAccount(acc *types.Account) ([]byte, error) {
	env := envelope{
		Owner:   acc.Owner,
		Balance: acc.Balance,
		Data:    acc.Data,
	}
	for _, tb := range acc.Tokens {
		env.Tokens = append(env.Tokens, tokenEnvelope{Mint: tb.Mint, Amount: tb.Amount})
	}
	return rlp.EncodeToBytes(&env)
}

func decodeAccount(raw []byte) (*types.Account, error) {
	var env envelope
	if err := rlp.DecodeBytes(raw, &env); err != nil {
		return nil, fmt.Errorf("state: malformed account envelope: %w", err)
	}
	acc := &types.Account{
		Owner:   env.Owner,
		Balance: env.Balance,
		Data:    env.Data,
	}
	for _, tb := range env.Tokens {
		acc.Tokens = append(acc.Tokens, types.TokenBalance{Mint: tb.Mint, Amount: tb.Amount})
	}
	return acc, nil
}

// Manager owns the keyed account table. All mutation flows through Apply,
// which serializes batches and commits each one atomically: either every
// staged write lands or none does.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Apply runs fn against a fresh batch under the manager lock. When fn
// returns nil every staged write is flushed; any error discards the batch
// entirely, so no partial state transition is ever observable.
func (m *Manager) Apply(fn func(*Batch) error) error {
	if m == nil || m.db == nil {
		return errors.New("state: manager not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := &Batch{manager: m, staged: make(map[crypto.Address]*types.Account)}
	if err := fn(batch); err != nil {
		batch.closed = true
		return err
	}
	return batch.flush()
}

// View runs fn against a read-only batch. Writes staged by fn are discarded.
func (m *Manager) View(fn func(*Batch) error) error {
	if m == nil || m.db == nil {
		return errors.New("state: manager not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := &Batch{manager: m, staged: make(map[crypto.Address]*types.Account)}
	defer func() { batch.closed = true }()
	return fn(batch)
}

// Batch is one atomic unit of account reads and writes. Reads observe staged
// writes first and the committed snapshot otherwise.
type Batch struct {
	manager *Manager
	staged  map[crypto.Address]*types.Account
	closed  bool
}

// Get loads the account at addr, if any. The returned account is a private
// copy; mutations are invisible until Put is called.
func (b *Batch) Get(addr crypto.Address) (*types.Account, bool, error) {
	if b == nil || b.closed {
		return nil, false, ErrBatchClosed
	}
	if acc, ok := b.staged[addr]; ok {
		if acc == nil {
			return nil, false, nil
		}
		return acc.Clone(), true, nil
	}
	raw, err := b.manager.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	acc, err := decodeAccount(raw)
	if err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// Create stages a new, empty account owned by owner at addr. It fails with
// ErrAccountExists when the address is already occupied, which is the
// mechanism behind duplicate-creation and replay rejection.
func (b *Batch) Create(addr crypto.Address, owner string) (*types.Account, error) {
	if b == nil || b.closed {
		return nil, ErrBatchClosed
	}
	_, ok, err := b.Get(addr)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}
	acc := &types.Account{Owner: owner}
	b.staged[addr] = acc.Clone()
	return acc, nil
}

// Put stages the provided account state for addr.
func (b *Batch) Put(addr crypto.Address, acc *types.Account) error {
	if b == nil || b.closed {
		return ErrBatchClosed
	}
	if acc == nil {
		return errors.New("state: nil account")
	}
	b.staged[addr] = acc.Clone()
	return nil
}

// Transfer moves native units between two accounts, creating the recipient
// lazily.
func (b *Batch) Transfer(from, to crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	src, ok, err := b.Get(from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, from)
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s", ErrInsufficientFunds, from)
	}
	dst, ok, err := b.Get(to)
	if err != nil {
		return err
	}
	if !ok {
		dst = &types.Account{}
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := b.Put(from, src); err != nil {
		return err
	}
	return b.Put(to, dst)
}

// TransferToken moves token units of mint between two accounts.
func (b *Batch) TransferToken(from, to, mint crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	src, ok, err := b.Get(from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, from)
	}
	held := src.TokenBalance(mint)
	if held < amount {
		return fmt.Errorf("%w: %s token %s", ErrInsufficientFunds, from, mint)
	}
	dst, ok, err := b.Get(to)
	if err != nil {
		return err
	}
	if !ok {
		dst = &types.Account{}
	}
	src.SetTokenBalance(mint, held-amount)
	dst.SetTokenBalance(mint, dst.TokenBalance(mint)+amount)
	if err := b.Put(from, src); err != nil {
		return err
	}
	return b.Put(to, dst)
}

func (b *Batch) flush() error {
	defer func() { b.closed = true }()
	// Encode everything before touching the database so a malformed account
	// cannot leave a half-applied batch behind.
	encoded := make(map[crypto.Address][]byte, len(b.staged))
	for addr, acc := range b.staged {
		if acc == nil {
			encoded[addr] = nil
			continue
		}
		raw, err := encodeAccount(acc)
		if err != nil {
			return err
		}
		encoded[addr] = raw
	}
	for addr, raw := range encoded {
		if raw == nil {
			if err := b.manager.db.Delete(accountKey(addr)); err != nil {
				return err
			}
			continue
		}
		if err := b.manager.db.Put(accountKey(addr), raw); err != nil {
			return err
		}
	}
	return nil
}
