package rpc

import (
	"net/http"

	"commune/crypto"
	"commune/native/escrow"
)

type escrowResult struct {
	Address            string `json:"address"`
	Initiator          string `json:"initiator"`
	Counterparty       string `json:"counterparty,omitempty"`
	Group              string `json:"group,omitempty"`
	InitiatorToken     string `json:"initiatorToken"`
	InitiatorAmount    uint64 `json:"initiatorAmount"`
	CounterpartyToken  string `json:"counterpartyToken"`
	CounterpartyAmount uint64 `json:"counterpartyAmount"`
	CreatedAt          int64  `json:"createdAt"`
	ExpiresAt          int64  `json:"expiresAt"`
	AcceptedAt         int64  `json:"acceptedAt,omitempty"`
	CompletedAt        int64  `json:"completedAt,omitempty"`
	Status             string `json:"status"`
}

func newEscrowResult(addr string, esc *escrow.Escrow) *escrowResult {
	return &escrowResult{
		Address:            addr,
		Initiator:          esc.Initiator.String(),
		Counterparty:       addressOrEmpty(esc.Counterparty),
		Group:              addressOrEmpty(esc.Group),
		InitiatorToken:     esc.InitiatorToken.String(),
		InitiatorAmount:    esc.InitiatorAmount,
		CounterpartyToken:  esc.CounterpartyToken.String(),
		CounterpartyAmount: esc.CounterpartyAmount,
		CreatedAt:          esc.CreatedAt,
		ExpiresAt:          esc.ExpiresAt,
		AcceptedAt:         esc.AcceptedAt,
		CompletedAt:        esc.CompletedAt,
		Status:             esc.Status.String(),
	}
}

type createEscrowParams struct {
	Initiator          string `json:"initiator"`
	Counterparty       string `json:"counterparty,omitempty"`
	Group              string `json:"group,omitempty"`
	InitiatorToken     string `json:"initiatorToken"`
	InitiatorAmount    uint64 `json:"initiatorAmount"`
	CounterpartyToken  string `json:"counterpartyToken"`
	CounterpartyAmount uint64 `json:"counterpartyAmount"`
	ExpiresAt          int64  `json:"expiresAt"`
}

func (s *Server) handleCreateEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createEscrowParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	initiator, err := parseAddress("initiator", params.Initiator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	counterparty, err := parseOptionalAddress("counterparty", params.Counterparty)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseOptionalAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	initiatorToken, err := parseAddress("initiatorToken", params.InitiatorToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	counterpartyToken, err := parseAddress("counterpartyToken", params.CounterpartyToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	esc, addr, err := s.node.CreateEscrow(initiator, escrow.Params{
		Counterparty:       counterparty,
		Group:              groupAddr,
		InitiatorToken:     initiatorToken,
		InitiatorAmount:    params.InitiatorAmount,
		CounterpartyToken:  counterpartyToken,
		CounterpartyAmount: params.CounterpartyAmount,
		ExpiresAt:          params.ExpiresAt,
	})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newEscrowResult(addr.String(), esc))
}

type escrowActorParams struct {
	Escrow string `json:"escrow"`
	Caller string `json:"caller"`
}

func (s *Server) escrowAction(w http.ResponseWriter, req *RPCRequest, action func(escrowAddr, caller crypto.Address) (*escrow.Escrow, error)) {
	var params escrowActorParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	escrowAddr, err := parseAddress("escrow", params.Escrow)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	esc, err := action(escrowAddr, caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newEscrowResult(escrowAddr.String(), esc))
}

func (s *Server) handleAcceptEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.escrowAction(w, req, s.node.AcceptEscrow)
}

func (s *Server) handleCompleteEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.escrowAction(w, req, s.node.CompleteEscrow)
}

func (s *Server) handleCancelEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.escrowAction(w, req, s.node.CancelEscrow)
}

type getEscrowParams struct {
	Escrow string `json:"escrow"`
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getEscrowParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	escrowAddr, err := parseAddress("escrow", params.Escrow)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	esc, err := s.node.GetEscrow(escrowAddr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newEscrowResult(escrowAddr.String(), esc))
}
