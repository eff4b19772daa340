package rpc

import (
	"net/http"

	"commune/native/invite"
)

type inviteResult struct {
	Group     string `json:"group"`
	Code      string `json:"code"`
	Creator   string `json:"creator"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
	MaxUses   uint32 `json:"maxUses"`
	UseCount  uint32 `json:"useCount"`
	Remaining uint32 `json:"remaining"`
}

func newInviteResult(inv *invite.Invite) *inviteResult {
	return &inviteResult{
		Group:     inv.Group.String(),
		Code:      inv.Code,
		Creator:   inv.Creator.String(),
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
		MaxUses:   inv.MaxUses,
		UseCount:  inv.UseCount,
		Remaining: inv.Remaining(),
	}
}

type createInviteParams struct {
	Group     string `json:"group"`
	Caller    string `json:"caller"`
	Code      string `json:"code"`
	MaxUses   uint32 `json:"maxUses"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createInviteParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	inv, err := s.node.CreateInvite(groupAddr, caller, params.Code, params.MaxUses, params.ExpiresAt)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newInviteResult(inv))
}

type useInviteParams struct {
	Group      string           `json:"group"`
	Caller     string           `json:"caller"`
	Code       string           `json:"code"`
	TokenProof *tokenProofParam `json:"tokenProof,omitempty"`
	NFTProof   *nftProofParam   `json:"nftProof,omitempty"`
}

func (s *Server) handleUseInvite(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params useInviteParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenProof, err := params.TokenProof.toProof()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nftProof, err := params.NFTProof.toProof()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	inv, err := s.node.UseInvite(groupAddr, caller, params.Code, tokenProof, nftProof)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newInviteResult(inv))
}

type getInviteParams struct {
	Group string `json:"group"`
	Code  string `json:"code"`
}

func (s *Server) handleGetInvite(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getInviteParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	inv, err := s.node.GetInvite(groupAddr, params.Code)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newInviteResult(inv))
}
