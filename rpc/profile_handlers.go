package rpc

import (
	"net/http"

	"commune/native/profile"
)

type profileResult struct {
	Owner              string  `json:"owner"`
	Username           string  `json:"username"`
	Bio                string  `json:"bio,omitempty"`
	PictureURL         string  `json:"pictureUrl,omitempty"`
	NFTPicture         string  `json:"nftPicture,omitempty"`
	ShowBalance        bool    `json:"showBalance"`
	ReputationScore    uint64  `json:"reputationScore"`
	JoinedAt           int64   `json:"joinedAt"`
	LastActive         int64   `json:"lastActive"`
	CompletedTutorials []uint8 `json:"completedTutorials,omitempty"`
	TutorialRewards    uint64  `json:"tutorialRewards"`
}

func newProfileResult(p *profile.Profile) *profileResult {
	return &profileResult{
		Owner:              p.Owner.String(),
		Username:           p.Username,
		Bio:                p.Bio,
		PictureURL:         p.PictureURL,
		NFTPicture:         addressOrEmpty(p.NFTPicture),
		ShowBalance:        p.ShowBalance,
		ReputationScore:    p.ReputationScore,
		JoinedAt:           p.JoinedAt,
		LastActive:         p.LastActive,
		CompletedTutorials: p.CompletedTutorials,
		TutorialRewards:    p.TutorialRewards,
	}
}

type createProfileParams struct {
	Owner       string `json:"owner"`
	Username    string `json:"username"`
	Bio         string `json:"bio,omitempty"`
	ShowBalance bool   `json:"showBalance,omitempty"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params createProfileParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	p, err := s.node.CreateProfile(owner, params.Username, params.Bio, params.ShowBalance)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newProfileResult(p))
}

type updateProfileParams struct {
	Owner       string  `json:"owner"`
	Username    *string `json:"username,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	ShowBalance *bool   `json:"showBalance,omitempty"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params updateProfileParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	p, err := s.node.UpdateProfile(owner, profile.Update{
		Username:    params.Username,
		Bio:         params.Bio,
		ShowBalance: params.ShowBalance,
	})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newProfileResult(p))
}

type completeTutorialParams struct {
	Owner      string `json:"owner"`
	TutorialID uint8  `json:"tutorialId"`
	Reward     uint64 `json:"reward"`
}

func (s *Server) handleCompleteTutorial(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params completeTutorialParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	p, err := s.node.CompleteTutorial(owner, params.TutorialID, params.Reward)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newProfileResult(p))
}

type setProfilePictureParams struct {
	Owner string `json:"owner"`
	NFT   string `json:"nft,omitempty"`
	URL   string `json:"url,omitempty"`
}

func (s *Server) handleSetProfilePicture(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setProfilePictureParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if (params.NFT == "") == (params.URL == "") {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one of nft or url is required", nil)
		return
	}
	var p *profile.Profile
	if params.NFT != "" {
		nft, err := parseAddress("nft", params.NFT)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		p, err = s.node.SetProfileNFTPicture(owner, nft)
		if err != nil {
			writeEngineError(w, req.ID, err)
			return
		}
	} else {
		p, err = s.node.SetProfilePictureURL(owner, params.URL)
		if err != nil {
			writeEngineError(w, req.ID, err)
			return
		}
	}
	writeResult(w, req.ID, newProfileResult(p))
}

type getProfileParams struct {
	Owner string `json:"owner"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params getProfileParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	p, err := s.node.GetProfile(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newProfileResult(p))
}
