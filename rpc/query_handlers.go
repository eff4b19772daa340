package rpc

import (
	"fmt"
	"net/http"

	"commune/core/address"
	"commune/crypto"
)

type getBalanceParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getBalanceParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.node.GetBalance(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: addr.String(), Balance: balance})
}

type deriveAddressParams struct {
	Kind         string `json:"kind"`
	Owner        string `json:"owner,omitempty"`
	Name         string `json:"name,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Group        string `json:"group,omitempty"`
	Member       string `json:"member,omitempty"`
	MessageID    uint64 `json:"messageId,omitempty"`
	Initiator    string `json:"initiator,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	CreatedAt    int64  `json:"createdAt,omitempty"`
	Code         string `json:"code,omitempty"`
	StartTime    int64  `json:"startTime,omitempty"`
	Challenge    string `json:"challenge,omitempty"`
	Submitter    string `json:"submitter,omitempty"`
	Submission   string `json:"submission,omitempty"`
	Voter        string `json:"voter,omitempty"`
}

type deriveAddressResult struct {
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

func (s *Server) handleDeriveAddress(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params deriveAddressParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, bump, err := s.derive(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, deriveAddressResult{Address: addr.String(), Bump: bump})
}

func (s *Server) derive(p deriveAddressParams) (crypto.Address, uint8, error) {
	program := s.node.Program()
	switch address.Kind(p.Kind) {
	case address.KindProfile:
		owner, err := parseAddress("owner", p.Owner)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Profile(program, owner)
	case address.KindGroup:
		creator, err := parseAddress("creator", p.Creator)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Group(program, p.Name, creator)
	case address.KindMember:
		groupAddr, err := parseAddress("group", p.Group)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		member, err := parseAddress("member", p.Member)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Member(program, groupAddr, member)
	case address.KindMessage:
		groupAddr, err := parseAddress("group", p.Group)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Message(program, groupAddr, p.MessageID)
	case address.KindEscrow:
		initiator, err := parseAddress("initiator", p.Initiator)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		counterparty, err := parseOptionalAddress("counterparty", p.Counterparty)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Escrow(program, initiator, counterparty, p.CreatedAt)
	case address.KindInvite:
		groupAddr, err := parseAddress("group", p.Group)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Invite(program, groupAddr, p.Code)
	case address.KindChallenge:
		creator, err := parseAddress("creator", p.Creator)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Challenge(program, creator, p.StartTime)
	case address.KindSubmission:
		challenge, err := parseAddress("challenge", p.Challenge)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		submitter, err := parseAddress("submitter", p.Submitter)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Submission(program, challenge, submitter)
	case address.KindVote:
		submission, err := parseAddress("submission", p.Submission)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		voter, err := parseAddress("voter", p.Voter)
		if err != nil {
			return crypto.ZeroAddress, 0, err
		}
		return address.Vote(program, submission, voter)
	default:
		return crypto.ZeroAddress, 0, fmt.Errorf("unknown kind %q", p.Kind)
	}
}
