package rpc

import (
	"net/http"

	"commune/native/group"
)

type groupResult struct {
	Address               string `json:"address"`
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	Creator               string `json:"creator"`
	IsChannel             bool   `json:"isChannel"`
	IsWhaleGroup          bool   `json:"isWhaleGroup"`
	RequiredToken         string `json:"requiredToken,omitempty"`
	RequiredAmount        uint64 `json:"requiredAmount,omitempty"`
	RequiredNFTCollection string `json:"requiredNftCollection,omitempty"`
	RequiredNativeBalance uint64 `json:"requiredNativeBalance,omitempty"`
	MemberCount           uint32 `json:"memberCount"`
	CreatedAt             int64  `json:"createdAt"`
	LastMessageAt         int64  `json:"lastMessageAt,omitempty"`
	LastMessageID         uint64 `json:"lastMessageId"`
}

func newGroupResult(addr string, g *group.Group) *groupResult {
	return &groupResult{
		Address:               addr,
		Name:                  g.Name,
		Description:           g.Description,
		Creator:               g.Creator.String(),
		IsChannel:             g.IsChannel,
		IsWhaleGroup:          g.IsWhaleGroup,
		RequiredToken:         addressOrEmpty(g.RequiredToken),
		RequiredAmount:        g.RequiredAmount,
		RequiredNFTCollection: addressOrEmpty(g.RequiredNFTCollection),
		RequiredNativeBalance: g.RequiredNativeBalance,
		MemberCount:           g.MemberCount,
		CreatedAt:             g.CreatedAt,
		LastMessageAt:         g.LastMessageAt,
		LastMessageID:         g.LastMessageID,
	}
}

type memberResult struct {
	Group           string `json:"group"`
	Member          string `json:"member"`
	JoinedAt        int64  `json:"joinedAt"`
	LastReadMessage uint64 `json:"lastReadMessage"`
	IsAdmin         bool   `json:"isAdmin"`
}

func newMemberResult(m *group.Member) *memberResult {
	return &memberResult{
		Group:           m.Group.String(),
		Member:          m.Member.String(),
		JoinedAt:        m.JoinedAt,
		LastReadMessage: m.LastReadMessage,
		IsAdmin:         m.IsAdmin,
	}
}

type createGroupParams struct {
	Creator               string `json:"creator"`
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	IsChannel             bool   `json:"isChannel,omitempty"`
	IsWhaleGroup          bool   `json:"isWhaleGroup,omitempty"`
	RequiredToken         string `json:"requiredToken,omitempty"`
	RequiredAmount        uint64 `json:"requiredAmount,omitempty"`
	RequiredNFTCollection string `json:"requiredNftCollection,omitempty"`
	RequiredNativeBalance uint64 `json:"requiredNativeBalance,omitempty"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createGroupParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	creator, err := parseAddress("creator", params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	requiredToken, err := parseOptionalAddress("requiredToken", params.RequiredToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	requiredNFT, err := parseOptionalAddress("requiredNftCollection", params.RequiredNFTCollection)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	g, addr, err := s.node.CreateGroup(creator, group.Params{
		Name:                  params.Name,
		Description:           params.Description,
		IsChannel:             params.IsChannel,
		IsWhaleGroup:          params.IsWhaleGroup,
		RequiredToken:         requiredToken,
		RequiredAmount:        params.RequiredAmount,
		RequiredNFTCollection: requiredNFT,
		RequiredNativeBalance: params.RequiredNativeBalance,
	})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newGroupResult(addr.String(), g))
}

type joinGroupParams struct {
	Group      string           `json:"group"`
	Member     string           `json:"member"`
	TokenProof *tokenProofParam `json:"tokenProof,omitempty"`
	NFTProof   *nftProofParam   `json:"nftProof,omitempty"`
}

type tokenProofParam struct {
	Owner  string `json:"owner"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`
}

type nftProofParam struct {
	Owner      string `json:"owner"`
	Collection string `json:"collection"`
	Amount     uint64 `json:"amount"`
}

func (p *tokenProofParam) toProof() (*group.TokenProof, error) {
	if p == nil {
		return nil, nil
	}
	owner, err := parseAddress("tokenProof.owner", p.Owner)
	if err != nil {
		return nil, err
	}
	mint, err := parseAddress("tokenProof.mint", p.Mint)
	if err != nil {
		return nil, err
	}
	return &group.TokenProof{Owner: owner, Mint: mint, Amount: p.Amount}, nil
}

func (p *nftProofParam) toProof() (*group.NFTProof, error) {
	if p == nil {
		return nil, nil
	}
	owner, err := parseAddress("nftProof.owner", p.Owner)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddress("nftProof.collection", p.Collection)
	if err != nil {
		return nil, err
	}
	return &group.NFTProof{Owner: owner, Collection: collection, Amount: p.Amount}, nil
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params joinGroupParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	member, err := parseAddress("member", params.Member)
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
	m, err := s.node.JoinGroup(groupAddr, member, tokenProof, nftProof)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newMemberResult(m))
}

type markReadParams struct {
	Group     string `json:"group"`
	Member    string `json:"member"`
	MessageID uint64 `json:"messageId"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params markReadParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	member, err := parseAddress("member", params.Member)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	m, err := s.node.MarkRead(groupAddr, member, params.MessageID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newMemberResult(m))
}

type getGroupParams struct {
	Group string `json:"group"`
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getGroupParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	g, err := s.node.GetGroup(groupAddr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newGroupResult(groupAddr.String(), g))
}

type getMemberParams struct {
	Group  string `json:"group"`
	Member string `json:"member"`
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getMemberParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	groupAddr, err := parseAddress("group", params.Group)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	member, err := parseAddress("member", params.Member)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	m, err := s.node.GetMember(groupAddr, member)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newMemberResult(m))
}
