package escrow

import (
	"fmt"

	"commune/core/codec"
	"commune/core/types"
	"commune/crypto"
)

const recordVersion uint8 = 1

// Status tracks an escrow through its lifecycle. The only legal paths are
// Pending -> Accepted -> Completed and Pending -> Cancelled.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusAccepted
	StatusCompleted
	StatusCancelled
)

// String renders the status for logs and events.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Escrow is a two-party token swap. The initiator's leg sits in custody at
// the escrow's own address from creation until completion or cancellation;
// the counterparty's leg joins it on acceptance. A zero Counterparty means
// the offer is open to any taker.
type Escrow struct {
	Initiator          crypto.Address
	Counterparty       crypto.Address
	Group              crypto.Address
	InitiatorToken     crypto.Address
	InitiatorAmount    uint64
	CounterpartyToken  crypto.Address
	CounterpartyAmount uint64
	CreatedAt          int64
	ExpiresAt          int64
	AcceptedAt         int64
	CompletedAt        int64
	Status             Status
}

// Clone returns a copy of the escrow record.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// Open reports whether the offer has no pinned counterparty.
func (e *Escrow) Open() bool { return e.Counterparty.IsZero() }

// Marshal encodes the escrow in its versioned wire layout.
func (e *Escrow) Marshal() []byte {
	w := codec.NewWriter()
	w.Header(types.RecordEscrow, recordVersion)
	w.Address(e.Initiator)
	w.OptionAddress(e.Counterparty)
	w.OptionAddress(e.Group)
	w.Address(e.InitiatorToken)
	w.U64(e.InitiatorAmount)
	w.Address(e.CounterpartyToken)
	w.U64(e.CounterpartyAmount)
	w.I64(e.CreatedAt)
	w.I64(e.ExpiresAt)
	w.I64(e.AcceptedAt)
	w.I64(e.CompletedAt)
	w.U8(uint8(e.Status))
	return w.Bytes()
}

// Decode parses an escrow payload.
func Decode(raw []byte) (*Escrow, error) {
	r := codec.NewReader(raw)
	r.Header(types.RecordEscrow, recordVersion)
	e := &Escrow{}
	e.Initiator = r.Address()
	e.Counterparty = r.OptionAddress()
	e.Group = r.OptionAddress()
	e.InitiatorToken = r.Address()
	e.InitiatorAmount = r.U64()
	e.CounterpartyToken = r.Address()
	e.CounterpartyAmount = r.U64()
	e.CreatedAt = r.I64()
	e.ExpiresAt = r.I64()
	e.AcceptedAt = r.I64()
	e.CompletedAt = r.I64()
	e.Status = Status(r.U8())
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("escrow: %w", err)
	}
	switch e.Status {
	case StatusPending, StatusAccepted, StatusCompleted, StatusCancelled:
	default:
		return nil, fmt.Errorf("escrow: unknown status %d", uint8(e.Status))
	}
	return e, nil
}
