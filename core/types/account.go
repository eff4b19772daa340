package types

import (
	"sort"

	"commune/crypto"
)

// Record kind tags shared by every entity payload. The tag is the first byte
// of an account's data and anchors the explicit per-kind decode step.
const (
	RecordProfile uint8 = iota + 1
	RecordGroup
	RecordGroupMember
	RecordMessage
	RecordEscrow
	RecordInvite
	RecordChallenge
	RecordSubmission
	RecordVote
)

// TokenBalance tracks one token position held by an account. Balances are
// kept as a sorted slice rather than a map so the RLP envelope stays
// canonical.
type TokenBalance struct {
	Mint   crypto.Address
	Amount uint64
}

// Account is one keyed unit of ledger state: an owner-program tag, a native
// balance, token positions and an opaque entity payload.
type Account struct {
	Owner   string
	Balance uint64
	Tokens  []TokenBalance
	Data    []byte
}

// Clone returns a deep copy so staged batch writes never alias committed
// state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{
		Owner:   a.Owner,
		Balance: a.Balance,
	}
	if len(a.Tokens) > 0 {
		clone.Tokens = make([]TokenBalance, len(a.Tokens))
		copy(clone.Tokens, a.Tokens)
	}
	if len(a.Data) > 0 {
		clone.Data = make([]byte, len(a.Data))
		copy(clone.Data, a.Data)
	}
	return clone
}

// TokenBalance returns the balance held for mint.
func (a *Account) TokenBalance(mint crypto.Address) uint64 {
	if a == nil {
		return 0
	}
	for _, tb := range a.Tokens {
		if tb.Mint == mint {
			return tb.Amount
		}
	}
	return 0
}

// SetTokenBalance records the balance for mint, keeping the slice sorted and
// dropping zeroed positions.
func (a *Account) SetTokenBalance(mint crypto.Address, amount uint64) {
	for i, tb := range a.Tokens {
		if tb.Mint == mint {
			if amount == 0 {
				a.Tokens = append(a.Tokens[:i], a.Tokens[i+1:]...)
			} else {
				a.Tokens[i].Amount = amount
			}
			return
		}
	}
	if amount == 0 {
		return
	}
	a.Tokens = append(a.Tokens, TokenBalance{Mint: mint, Amount: amount})
	sort.Slice(a.Tokens, func(i, j int) bool {
		return string(a.Tokens[i].Mint[:]) < string(a.Tokens[j].Mint[:])
	})
}
